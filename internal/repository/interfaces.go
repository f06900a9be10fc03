package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"workflow-service/internal/models"
)

// RequestRepositoryInterface is the data-access contract of the transition
// engine and the escalation sweep
type RequestRepositoryInterface interface {
	WithTransaction(ctx context.Context, fn func(txRepo RequestRepositoryInterface) error) error

	CreateRequest(ctx context.Context, request *models.ApprovalRequest) error
	CreateStageInstances(ctx context.Context, stages []*models.StageInstance) error
	GetRequestByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error)
	GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error)
	GetRequestSkipLocked(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error)
	HasActiveRequest(ctx context.Context, tenantID string, targetType models.TargetType, targetID uuid.UUID) (bool, error)
	UpdateRequest(ctx context.Context, request *models.ApprovalRequest) error
	SaveStageInstance(ctx context.Context, stage *models.StageInstance) error

	CreateAction(ctx context.Context, action *models.ApprovalAction) error
	ListActions(ctx context.Context, requestID uuid.UUID) ([]models.ApprovalAction, error)

	ListRequests(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalRequest, int64, error)
	ListRequestsByRequester(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalRequest, int64, error)
	FindRequestsWithOverdueStages(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error)
	FindRequestsPastDue(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error)

	CreateDelegation(ctx context.Context, delegation *models.ApprovalDelegation) error
	GetDelegationByID(ctx context.Context, id uuid.UUID) (*models.ApprovalDelegation, error)
	FindActiveDelegations(ctx context.Context, tenantID string, delegateID uuid.UUID, workflowID *uuid.UUID) ([]models.ApprovalDelegation, error)
	ListDelegationsByDelegator(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error)
	ListDelegationsByDelegate(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error)
	RevokeDelegation(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error
	CheckOverlappingDelegation(ctx context.Context, tenantID string, delegatorID, delegateID uuid.UUID, workflowID *uuid.UUID, startDate, endDate time.Time) (bool, error)
}

// TemplateRepositoryInterface is the data-access contract for templates
// and workflow bindings
type TemplateRepositoryInterface interface {
	CreateTemplate(ctx context.Context, template *models.WorkflowTemplate) error
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.WorkflowTemplate, error)
	ListTemplates(ctx context.Context, tenantID string) ([]models.WorkflowTemplate, error)
	IncrementTemplateUsage(ctx context.Context, templateID uuid.UUID) error

	CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error
	GetWorkflowByID(ctx context.Context, id uuid.UUID) (*models.ApprovalWorkflow, error)
	ListWorkflows(ctx context.Context, tenantID string) ([]models.ApprovalWorkflow, error)
	SetWorkflowActive(ctx context.Context, id uuid.UUID, active bool) error
}
