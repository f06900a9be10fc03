package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"workflow-service/internal/models"
	"workflow-service/internal/repository"
)

// MockRequestRepository mocks RequestRepositoryInterface
type MockRequestRepository struct {
	mock.Mock
}

// WithTransaction runs the closure against the mock itself; tests assert
// on the inner calls
func (m *MockRequestRepository) WithTransaction(_ context.Context, fn func(repository.RequestRepositoryInterface) error) error {
	return fn(m)
}

func (m *MockRequestRepository) CreateRequest(ctx context.Context, request *models.ApprovalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) CreateStageInstances(ctx context.Context, stages []*models.StageInstance) error {
	args := m.Called(ctx, stages)
	return args.Error(0)
}

func (m *MockRequestRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockRequestRepository) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockRequestRepository) GetRequestSkipLocked(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockRequestRepository) HasActiveRequest(ctx context.Context, tenantID string, targetType models.TargetType, targetID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, targetType, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepository) UpdateRequest(ctx context.Context, request *models.ApprovalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) SaveStageInstance(ctx context.Context, stage *models.StageInstance) error {
	args := m.Called(ctx, stage)
	return args.Error(0)
}

func (m *MockRequestRepository) CreateAction(ctx context.Context, action *models.ApprovalAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockRequestRepository) ListActions(ctx context.Context, requestID uuid.UUID) ([]models.ApprovalAction, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalAction), args.Error(1)
}

func (m *MockRequestRepository) ListRequests(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	args := m.Called(ctx, tenantID, statusFilter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.ApprovalRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRequestRepository) ListRequestsByRequester(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	args := m.Called(ctx, tenantID, requesterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.ApprovalRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRequestRepository) FindRequestsWithOverdueStages(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalRequest), args.Error(1)
}

func (m *MockRequestRepository) FindRequestsPastDue(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalRequest), args.Error(1)
}

func (m *MockRequestRepository) CreateDelegation(ctx context.Context, delegation *models.ApprovalDelegation) error {
	args := m.Called(ctx, delegation)
	return args.Error(0)
}

func (m *MockRequestRepository) GetDelegationByID(ctx context.Context, id uuid.UUID) (*models.ApprovalDelegation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalDelegation), args.Error(1)
}

func (m *MockRequestRepository) FindActiveDelegations(ctx context.Context, tenantID string, delegateID uuid.UUID, workflowID *uuid.UUID) ([]models.ApprovalDelegation, error) {
	args := m.Called(ctx, tenantID, delegateID, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalDelegation), args.Error(1)
}

func (m *MockRequestRepository) ListDelegationsByDelegator(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	args := m.Called(ctx, tenantID, delegatorID, includeExpired)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalDelegation), args.Error(1)
}

func (m *MockRequestRepository) ListDelegationsByDelegate(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	args := m.Called(ctx, tenantID, delegateID, includeExpired)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalDelegation), args.Error(1)
}

func (m *MockRequestRepository) RevokeDelegation(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error {
	args := m.Called(ctx, id, revokedBy, reason)
	return args.Error(0)
}

func (m *MockRequestRepository) CheckOverlappingDelegation(ctx context.Context, tenantID string, delegatorID, delegateID uuid.UUID, workflowID *uuid.UUID, startDate, endDate time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, delegatorID, delegateID, workflowID, startDate, endDate)
	return args.Bool(0), args.Error(1)
}

// MockTemplateRepository mocks TemplateRepositoryInterface
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) CreateTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.WorkflowTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkflowTemplate), args.Error(1)
}

func (m *MockTemplateRepository) ListTemplates(ctx context.Context, tenantID string) ([]models.WorkflowTemplate, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkflowTemplate), args.Error(1)
}

func (m *MockTemplateRepository) IncrementTemplateUsage(ctx context.Context, templateID uuid.UUID) error {
	args := m.Called(ctx, templateID)
	return args.Error(0)
}

func (m *MockTemplateRepository) CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	args := m.Called(ctx, workflow)
	return args.Error(0)
}

func (m *MockTemplateRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*models.ApprovalWorkflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalWorkflow), args.Error(1)
}

func (m *MockTemplateRepository) ListWorkflows(ctx context.Context, tenantID string) ([]models.ApprovalWorkflow, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalWorkflow), args.Error(1)
}

func (m *MockTemplateRepository) SetWorkflowActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// fakeEntityClient records entity state pushes
type fakeEntityClient struct {
	calls []string
}

func (f *fakeEntityClient) SetEntityState(_ context.Context, targetType models.TargetType, targetID uuid.UUID, state string) error {
	f.calls = append(f.calls, string(targetType)+":"+state)
	return nil
}
