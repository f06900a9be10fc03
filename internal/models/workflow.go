package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalWorkflow is the activated binding of a template to a tenant
// scope. New requests may only be created against an active binding.
type ApprovalWorkflow struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    string         `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	TemplateID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"templateId"`
	Scope       string         `gorm:"type:varchar(255)" json:"scope,omitempty"` // e.g. brand or account id
	IsActive    bool           `gorm:"default:true" json:"isActive"`
	ActivatedBy *uuid.UUID     `gorm:"type:uuid" json:"activatedBy,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Template *WorkflowTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

// TableName returns the table name for ApprovalWorkflow
func (ApprovalWorkflow) TableName() string {
	return "approval_workflows"
}
