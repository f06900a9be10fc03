package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RejectPolicy controls what a single reject does to the request
type RejectPolicy string

const (
	// RejectPolicyFinal moves the request to the rejected terminal state
	RejectPolicyFinal RejectPolicy = "reject"
	// RejectPolicyRevision restarts the workflow at the first stage and
	// reverts the target entity to draft
	RejectPolicyRevision RejectPolicy = "revision"
)

// StageDefinition is one gate in a workflow template. Stages sharing a
// parallel group activate together and must all complete before the
// workflow advances past them.
type StageDefinition struct {
	Index          int    `json:"index"`
	Name           string `json:"name"`
	ApproverRoles  []Role `json:"approverRoles"`
	RequireAll     *bool  `json:"requireAll,omitempty"` // nil falls back to template default
	TimeoutHours   *int   `json:"timeoutHours,omitempty"`
	EscalationRole *Role  `json:"escalationRole,omitempty"`
	ParallelGroup  *int   `json:"parallelGroup,omitempty"`
}

// WorkflowTemplate defines stage topology, approver requirements and
// timeout defaults. Templates are immutable once referenced by a live
// request; edits create a new version row.
type WorkflowTemplate struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID        string         `gorm:"type:varchar(255);not null;index;uniqueIndex:idx_templates_name_version" json:"tenantId"`
	Name            string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_templates_name_version" json:"name"`
	DisplayName     string         `gorm:"type:varchar(255)" json:"displayName,omitempty"`
	Category        string         `gorm:"type:varchar(100)" json:"category,omitempty"`
	TemplateVersion int            `gorm:"not null;default:1;uniqueIndex:idx_templates_name_version" json:"templateVersion"`
	IsSystem        bool           `gorm:"default:false" json:"isSystem"`
	IsPublic        bool           `gorm:"default:false" json:"isPublic"`
	AutoStart       bool           `gorm:"default:false" json:"autoStart"`
	UsageCount      uint           `gorm:"default:0" json:"usageCount"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	ApplicableEntityTypes pq.StringArray `gorm:"type:text[]" json:"applicableEntityTypes"`

	AllowParallelStages bool         `gorm:"default:false" json:"allowParallelStages"`
	RequireAllApprovers bool         `gorm:"default:false" json:"requireAllApprovers"`
	RejectPolicy        RejectPolicy `gorm:"type:varchar(20);default:'reject'" json:"rejectPolicy"`
	DefaultTimeoutHours uint         `gorm:"default:72" json:"defaultTimeoutHours"`

	// Stages is the typed topology; StagesRaw is its jsonb image. The
	// conversion happens only here, at the persistence boundary.
	Stages    []StageDefinition `gorm:"-" json:"stages"`
	StagesRaw datatypes.JSON    `gorm:"column:stages;type:jsonb" json:"-"`
}

// TableName returns the table name for WorkflowTemplate
func (WorkflowTemplate) TableName() string {
	return "workflow_templates"
}

// BeforeSave encodes the typed stage list into the jsonb column
func (t *WorkflowTemplate) BeforeSave(_ *gorm.DB) error {
	raw, err := json.Marshal(t.Stages)
	if err != nil {
		return err
	}
	t.StagesRaw = datatypes.JSON(raw)
	return nil
}

// AfterFind decodes the jsonb column into the typed stage list
func (t *WorkflowTemplate) AfterFind(_ *gorm.DB) error {
	if len(t.StagesRaw) == 0 {
		t.Stages = nil
		return nil
	}
	return json.Unmarshal(t.StagesRaw, &t.Stages)
}

// RequireAllFor resolves the quorum rule for a stage, falling back to the
// template default when the stage does not override it
func (t *WorkflowTemplate) RequireAllFor(stage StageDefinition) bool {
	if stage.RequireAll != nil {
		return *stage.RequireAll
	}
	return t.RequireAllApprovers
}

// TimeoutFor resolves the timeout for a stage in hours
func (t *WorkflowTemplate) TimeoutFor(stage StageDefinition) uint {
	if stage.TimeoutHours != nil {
		return uint(*stage.TimeoutHours)
	}
	return t.DefaultTimeoutHours
}

// AppliesTo returns true if the template may govern the given target type.
// An empty applicable set means the template applies to every type.
func (t *WorkflowTemplate) AppliesTo(target TargetType) bool {
	if len(t.ApplicableEntityTypes) == 0 {
		return true
	}
	for _, e := range t.ApplicableEntityTypes {
		if TargetType(e) == target {
			return true
		}
	}
	return false
}
