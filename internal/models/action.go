package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Action is the closed set of operations an actor may request
type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionSubmitForReview Action = "submit_for_review"
	ActionPublish         Action = "publish"
	ActionEscalate        Action = "escalate"
	ActionCancel          Action = "cancel"

	// ActionExpire is written by the scheduler only; no actor may request it
	ActionExpire Action = "expire"
)

var validActions = map[Action]bool{
	ActionApprove:         true,
	ActionReject:          true,
	ActionRequestRevision: true,
	ActionSubmitForReview: true,
	ActionPublish:         true,
	ActionEscalate:        true,
	ActionCancel:          true,
	ActionExpire:          true,
}

// IsValid returns true if the action is known
func (a Action) IsValid() bool {
	return validActions[a]
}

// ApprovalAction is the append-only audit trail of the engine. Rows are
// written in the same transaction as the transition they record and are
// never updated or deleted by this service.
type ApprovalAction struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   string         `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	RequestID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"requestId"`
	StageIndex *int           `json:"stageIndex,omitempty"`
	ActorID    *uuid.UUID     `gorm:"type:uuid" json:"actorId,omitempty"`
	ActorRole  Role           `gorm:"type:varchar(50)" json:"actorRole,omitempty"`
	Action     Action         `gorm:"type:varchar(30);not null;index" json:"action"`
	Comment    string         `gorm:"type:text" json:"comment,omitempty"`
	FromStatus Status         `gorm:"type:varchar(30)" json:"fromStatus"`
	ToStatus   Status         `gorm:"type:varchar(30)" json:"toStatus"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for ApprovalAction
func (ApprovalAction) TableName() string {
	return "approval_actions"
}
