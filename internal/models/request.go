package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Status is the lifecycle state of an approval request
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusExpired    Status = "expired"
	StatusEscalated  Status = "escalated"
)

var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
	StatusExpired:   true,
}

// IsTerminal returns true if no further transitions are permitted
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsActive returns true for states that carry active stage indices
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusEscalated
}

// Priority of an approval request
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Raise returns the priority one level up, capped at urgent
func (p Priority) Raise() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityUrgent
	}
}

// TargetType identifies the kind of entity a request governs
type TargetType string

const (
	TargetCampaign TargetType = "campaign"
	TargetJourney  TargetType = "journey"
	TargetContent  TargetType = "content"
	TargetBrand    TargetType = "brand"
)

var validTargetTypes = map[TargetType]bool{
	TargetCampaign: true,
	TargetJourney:  true,
	TargetContent:  true,
	TargetBrand:    true,
}

// IsValid returns true if the target type is known
func (t TargetType) IsValid() bool {
	return validTargetTypes[t]
}

// ApprovalRequest is the live workflow instance for a target entity.
// It is mutated only through validated transitions; the version column
// serializes concurrent actors on the same request.
type ApprovalRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   string    `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	WorkflowID uuid.UUID `gorm:"type:uuid;not null;index" json:"workflowId"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index" json:"templateId"`
	Version    int       `gorm:"not null;default:1" json:"version"`

	RequesterID   uuid.UUID `gorm:"type:uuid;not null;index" json:"requesterId"`
	RequesterName string    `gorm:"type:varchar(255)" json:"requesterName,omitempty"`

	// Target binding (immutable after creation)
	TargetType TargetType `gorm:"type:varchar(20);not null;index:idx_requests_target" json:"targetType"`
	TargetID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_requests_target" json:"targetId"`

	Status   Status   `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	Priority Priority `gorm:"type:varchar(20);default:'medium'" json:"priority"`
	Notes    string   `gorm:"type:text" json:"notes,omitempty"`

	// Active stage indices; empty for all terminal states
	CurrentStageIndices pq.Int64Array `gorm:"type:bigint[]" json:"currentStageIndices"`

	DueDate   *time.Time `gorm:"index" json:"dueDate,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Template *WorkflowTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Stages   []StageInstance   `gorm:"foreignKey:RequestID" json:"stages,omitempty"`
}

// TableName returns the table name for ApprovalRequest
func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// IsTerminal returns true if the request reached a terminal state
func (r *ApprovalRequest) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// StageIndices returns the current stage indices as ints
func (r *ApprovalRequest) StageIndices() []int {
	out := make([]int, 0, len(r.CurrentStageIndices))
	for _, i := range r.CurrentStageIndices {
		out = append(out, int(i))
	}
	return out
}

// SetStageIndices replaces the current stage indices
func (r *ApprovalRequest) SetStageIndices(indices []int) {
	arr := make(pq.Int64Array, 0, len(indices))
	for _, i := range indices {
		arr = append(arr, int64(i))
	}
	r.CurrentStageIndices = arr
}

// StageAt returns the stage instance for the given index, if loaded
func (r *ApprovalRequest) StageAt(index int) *StageInstance {
	for i := range r.Stages {
		if r.Stages[i].StageIndex == index {
			return &r.Stages[i]
		}
	}
	return nil
}
