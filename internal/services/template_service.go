package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"workflow-service/internal/models"
	"workflow-service/internal/repository"
)

var (
	ErrTemplateNotFound = errors.New("workflow template not found")
	ErrTemplateInvalid  = errors.New("template stage topology is invalid")
)

// TemplateService manages workflow templates and their activation
// bindings. Templates are never edited in place: every edit writes a new
// version row so live requests keep the exact topology they started with.
type TemplateService struct {
	repo   repository.TemplateRepositoryInterface
	logger *logrus.Entry
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(repo repository.TemplateRepositoryInterface, logger *logrus.Logger) *TemplateService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TemplateService{
		repo:   repo,
		logger: logger.WithField("component", "template-service"),
	}
}

// TemplateInput is the payload for creating or revising a template
type TemplateInput struct {
	Name                  string                   `json:"name" binding:"required"`
	DisplayName           string                   `json:"displayName,omitempty"`
	Category              string                   `json:"category,omitempty"`
	AutoStart             bool                     `json:"autoStart"`
	IsPublic              bool                     `json:"isPublic"`
	ApplicableEntityTypes []string                 `json:"applicableEntityTypes,omitempty"`
	AllowParallelStages   bool                     `json:"allowParallelStages"`
	RequireAllApprovers   bool                     `json:"requireAllApprovers"`
	RejectPolicy          models.RejectPolicy      `json:"rejectPolicy,omitempty"`
	DefaultTimeoutHours   uint                     `json:"defaultTimeoutHours,omitempty"`
	Stages                []models.StageDefinition `json:"stages" binding:"required"`
}

// ValidateStages checks a stage topology: at least one stage, contiguous
// indices from zero, known approver roles on every stage, and parallel
// groups only on consecutive stages.
func ValidateStages(stages []models.StageDefinition) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: template has no stages", ErrTemplateInvalid)
	}
	for i, stage := range stages {
		if stage.Index != i {
			return fmt.Errorf("%w: stage indices must be contiguous from 0, got %d at position %d", ErrTemplateInvalid, stage.Index, i)
		}
		if len(stage.ApproverRoles) == 0 {
			return fmt.Errorf("%w: stage %q has no approver roles", ErrTemplateInvalid, stage.Name)
		}
		for _, role := range stage.ApproverRoles {
			if !role.IsValid() {
				return fmt.Errorf("%w: stage %q names unknown role %q", ErrTemplateInvalid, stage.Name, role)
			}
		}
		if stage.EscalationRole != nil && !stage.EscalationRole.IsValid() {
			return fmt.Errorf("%w: stage %q names unknown escalation role %q", ErrTemplateInvalid, stage.Name, *stage.EscalationRole)
		}
		if stage.TimeoutHours != nil && *stage.TimeoutHours <= 0 {
			return fmt.Errorf("%w: stage %q has non-positive timeout", ErrTemplateInvalid, stage.Name)
		}
	}
	// a parallel group may not resume after a gap
	seen := map[int]bool{}
	var prev *int
	for _, stage := range stages {
		g := stage.ParallelGroup
		if g != nil && seen[*g] && (prev == nil || *prev != *g) {
			return fmt.Errorf("%w: parallel group %d is not consecutive", ErrTemplateInvalid, *g)
		}
		if g != nil {
			seen[*g] = true
		}
		prev = g
	}
	return nil
}

func (s *TemplateService) buildTemplate(tenantID string, input TemplateInput, version int) *models.WorkflowTemplate {
	rejectPolicy := input.RejectPolicy
	if rejectPolicy == "" {
		rejectPolicy = models.RejectPolicyFinal
	}
	timeout := input.DefaultTimeoutHours
	if timeout == 0 {
		timeout = 72
	}
	return &models.WorkflowTemplate{
		TenantID:              tenantID,
		Name:                  input.Name,
		DisplayName:           input.DisplayName,
		Category:              input.Category,
		TemplateVersion:       version,
		IsPublic:              input.IsPublic,
		AutoStart:             input.AutoStart,
		ApplicableEntityTypes: input.ApplicableEntityTypes,
		AllowParallelStages:   input.AllowParallelStages,
		RequireAllApprovers:   input.RequireAllApprovers,
		RejectPolicy:          rejectPolicy,
		DefaultTimeoutHours:   timeout,
		Stages:                input.Stages,
	}
}

// CreateTemplate validates and stores a new template at version 1
func (s *TemplateService) CreateTemplate(ctx context.Context, tenantID string, input TemplateInput) (*models.WorkflowTemplate, error) {
	if err := ValidateStages(input.Stages); err != nil {
		return nil, err
	}
	template := s.buildTemplate(tenantID, input, 1)
	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"templateId": template.ID,
		"name":       template.Name,
	}).Info("Created workflow template")
	return template, nil
}

// ReviseTemplate writes a new version of an existing template. The prior
// version row stays untouched so requests referencing it are unaffected.
func (s *TemplateService) ReviseTemplate(ctx context.Context, tenantID string, templateID uuid.UUID, input TemplateInput) (*models.WorkflowTemplate, error) {
	if err := ValidateStages(input.Stages); err != nil {
		return nil, err
	}
	prior, err := s.repo.GetTemplateByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if prior.IsSystem {
		return nil, fmt.Errorf("%w: system templates cannot be revised", ErrTemplateInvalid)
	}

	template := s.buildTemplate(tenantID, input, prior.TemplateVersion+1)
	template.Name = prior.Name
	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"templateId":    template.ID,
		"priorTemplate": prior.ID,
		"version":       template.TemplateVersion,
	}).Info("Revised workflow template")
	return template, nil
}

// GetTemplate retrieves a template by ID
func (s *TemplateService) GetTemplate(ctx context.Context, templateID uuid.UUID) (*models.WorkflowTemplate, error) {
	template, err := s.repo.GetTemplateByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

// ListTemplates lists templates visible to a tenant
func (s *TemplateService) ListTemplates(ctx context.Context, tenantID string) ([]models.WorkflowTemplate, error) {
	return s.repo.ListTemplates(ctx, tenantID)
}

// ActivateWorkflow binds a template to a scope, making it available for
// new requests. The topology is re-validated at activation time.
func (s *TemplateService) ActivateWorkflow(ctx context.Context, tenantID string, templateID uuid.UUID, scope string, activatedBy uuid.UUID) (*models.ApprovalWorkflow, error) {
	template, err := s.repo.GetTemplateByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if err := ValidateStages(template.Stages); err != nil {
		return nil, err
	}

	workflow := &models.ApprovalWorkflow{
		TenantID:    tenantID,
		TemplateID:  template.ID,
		Scope:       scope,
		IsActive:    true,
		ActivatedBy: &activatedBy,
	}
	if err := s.repo.CreateWorkflow(ctx, workflow); err != nil {
		return nil, err
	}
	workflow.Template = template

	s.logger.WithFields(logrus.Fields{
		"workflowId": workflow.ID,
		"templateId": template.ID,
		"scope":      scope,
	}).Info("Activated workflow")
	return workflow, nil
}

// ListWorkflows lists a tenant's workflow bindings
func (s *TemplateService) ListWorkflows(ctx context.Context, tenantID string) ([]models.ApprovalWorkflow, error) {
	return s.repo.ListWorkflows(ctx, tenantID)
}

// SetWorkflowActive toggles a binding. Deactivation stops new requests
// only; in-flight requests continue to completion.
func (s *TemplateService) SetWorkflowActive(ctx context.Context, workflowID uuid.UUID, active bool) error {
	err := s.repo.SetWorkflowActive(ctx, workflowID, active)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkflowNotFound
	}
	return err
}
