package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"workflow-service/internal/models"
	"gorm.io/gorm"
)

// TemplateRepository handles database operations for workflow templates
// and their activation bindings
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// CreateTemplate creates a new template version
func (r *TemplateRepository) CreateTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// GetTemplateByID retrieves a template by ID
func (r *TemplateRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.WorkflowTemplate, error) {
	var template models.WorkflowTemplate
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// ListTemplates retrieves templates visible to a tenant: its own plus
// system and public ones
func (r *TemplateRepository) ListTemplates(ctx context.Context, tenantID string) ([]models.WorkflowTemplate, error) {
	var templates []models.WorkflowTemplate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? OR is_system = true OR is_public = true", tenantID).
		Order("created_at DESC").
		Find(&templates).Error
	return templates, err
}

// IncrementTemplateUsage bumps the usage counter for a template
func (r *TemplateRepository) IncrementTemplateUsage(ctx context.Context, templateID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.WorkflowTemplate{}).
		Where("id = ?", templateID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

// --- Workflow Binding Methods ---

// CreateWorkflow creates an activation binding for a template
func (r *TemplateRepository) CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	return r.db.WithContext(ctx).Create(workflow).Error
}

// GetWorkflowByID retrieves a workflow binding with its template
func (r *TemplateRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*models.ApprovalWorkflow, error) {
	var workflow models.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Preload("Template").
		Where("id = ?", id).
		First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &workflow, nil
}

// ListWorkflows retrieves all workflow bindings for a tenant
func (r *TemplateRepository) ListWorkflows(ctx context.Context, tenantID string) ([]models.ApprovalWorkflow, error) {
	var workflows []models.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Preload("Template").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&workflows).Error
	return workflows, err
}

// SetWorkflowActive toggles whether new requests may be created against a
// binding
func (r *TemplateRepository) SetWorkflowActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.ApprovalWorkflow{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
