package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StageStatus is the lifecycle state of a single stage instance
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageEscalated StageStatus = "escalated"
)

// Decision values recorded on a stage
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// StageDecision is one approver's recorded decision on a stage
type StageDecision struct {
	Decision  string    `json:"decision"`
	Role      Role      `json:"role"`
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// StageInstance is the per-request record of one stage. Decisions are keyed
// by approver ID; the map is decoded from jsonb only at the persistence
// boundary.
type StageInstance struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID  uuid.UUID   `gorm:"type:uuid;not null;index:idx_stage_instances_request" json:"requestId"`
	StageIndex int         `gorm:"not null;index:idx_stage_instances_request" json:"stageIndex"`
	Status     StageStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// EscalatedRole is set when the sweep reassigns the stage
	EscalatedRole *Role `gorm:"type:varchar(50)" json:"escalatedRole,omitempty"`

	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	DueAt       *time.Time `gorm:"index" json:"dueAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Decisions    map[string]StageDecision `gorm:"-" json:"decisions,omitempty"`
	DecisionsRaw datatypes.JSON           `gorm:"column:decisions;type:jsonb" json:"-"`
}

// TableName returns the table name for StageInstance
func (StageInstance) TableName() string {
	return "stage_instances"
}

// BeforeSave encodes the decision map into the jsonb column
func (s *StageInstance) BeforeSave(_ *gorm.DB) error {
	if s.Decisions == nil {
		s.DecisionsRaw = datatypes.JSON("{}")
		return nil
	}
	raw, err := json.Marshal(s.Decisions)
	if err != nil {
		return err
	}
	s.DecisionsRaw = datatypes.JSON(raw)
	return nil
}

// AfterFind decodes the jsonb column into the decision map
func (s *StageInstance) AfterFind(_ *gorm.DB) error {
	if len(s.DecisionsRaw) == 0 {
		s.Decisions = map[string]StageDecision{}
		return nil
	}
	return json.Unmarshal(s.DecisionsRaw, &s.Decisions)
}

// RecordDecision stores an approver's decision, returning false if that
// approver already decided on this stage
func (s *StageInstance) RecordDecision(approverID uuid.UUID, d StageDecision) bool {
	if s.Decisions == nil {
		s.Decisions = map[string]StageDecision{}
	}
	key := approverID.String()
	if _, exists := s.Decisions[key]; exists {
		return false
	}
	s.Decisions[key] = d
	return true
}

// HasRejection returns true if any recorded decision is a reject
func (s *StageInstance) HasRejection() bool {
	for _, d := range s.Decisions {
		if d.Decision == DecisionReject {
			return true
		}
	}
	return false
}

// ApprovedRoles returns the set of roles that have an approve decision
func (s *StageInstance) ApprovedRoles() map[Role]bool {
	roles := make(map[Role]bool)
	for _, d := range s.Decisions {
		if d.Decision == DecisionApprove {
			roles[d.Role] = true
		}
	}
	return roles
}

// ApproveCount returns the number of approve decisions
func (s *StageInstance) ApproveCount() int {
	n := 0
	for _, d := range s.Decisions {
		if d.Decision == DecisionApprove {
			n++
		}
	}
	return n
}
