package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"workflow-service/internal/models"
)

func activeWorkflow(template *models.WorkflowTemplate) *models.ApprovalWorkflow {
	return &models.ApprovalWorkflow{
		ID:         uuid.New(),
		TenantID:   template.TenantID,
		TemplateID: template.ID,
		IsActive:   true,
		Template:   template,
	}
}

func TestCreateRequest_AutoStart(t *testing.T) {
	template := twoStageTemplate()
	template.AutoStart = true
	workflow := activeWorkflow(template)

	repo := new(MockRequestRepository)
	repo.On("HasActiveRequest", mock.Anything, "tenant-1", models.TargetContent, mock.Anything).Return(false, nil)
	repo.On("CreateRequest", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateStageInstances", mock.Anything, mock.Anything).Return(nil)
	repo.On("SaveStageInstance", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateAction", mock.Anything, mock.Anything).Return(nil)

	templates := new(MockTemplateRepository)
	templates.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)
	templates.On("IncrementTemplateUsage", mock.Anything, template.ID).Return(nil)

	svc := NewRequestService(repo, templates, &fakeEntityClient{}, nil, testLogger())
	request, err := svc.CreateRequest(context.Background(), "tenant-1", uuid.New(), "Dana", CreateRequestInput{
		WorkflowID: workflow.ID,
		TargetType: models.TargetContent,
		TargetID:   uuid.New(),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, request.Status)
	assert.Equal(t, []int{0}, request.StageIndices())
	assert.Equal(t, models.PriorityMedium, request.Priority)
	assert.NotNil(t, request.DueDate)
	assert.Equal(t, models.StageActive, request.StageAt(0).Status)
	templates.AssertCalled(t, "IncrementTemplateUsage", mock.Anything, template.ID)
}

func TestCreateRequest_ManualStartStaysPending(t *testing.T) {
	template := twoStageTemplate()
	workflow := activeWorkflow(template)

	repo := new(MockRequestRepository)
	repo.On("HasActiveRequest", mock.Anything, "tenant-1", models.TargetContent, mock.Anything).Return(false, nil)
	repo.On("CreateRequest", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateStageInstances", mock.Anything, mock.Anything).Return(nil)

	templates := new(MockTemplateRepository)
	templates.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)
	templates.On("IncrementTemplateUsage", mock.Anything, template.ID).Return(nil)

	svc := NewRequestService(repo, templates, nil, nil, testLogger())
	request, err := svc.CreateRequest(context.Background(), "tenant-1", uuid.New(), "Dana", CreateRequestInput{
		WorkflowID: workflow.ID,
		TargetType: models.TargetContent,
		TargetID:   uuid.New(),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, []int{0}, request.StageIndices(), "pending requests still carry the first stage set")
	assert.Equal(t, models.StagePending, request.StageAt(0).Status)
	repo.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
}

func TestCreateRequest_DuplicateTarget(t *testing.T) {
	template := twoStageTemplate()
	workflow := activeWorkflow(template)

	repo := new(MockRequestRepository)
	repo.On("HasActiveRequest", mock.Anything, "tenant-1", models.TargetContent, mock.Anything).Return(true, nil)
	templates := new(MockTemplateRepository)
	templates.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)

	svc := NewRequestService(repo, templates, nil, nil, testLogger())
	_, err := svc.CreateRequest(context.Background(), "tenant-1", uuid.New(), "Dana", CreateRequestInput{
		WorkflowID: workflow.ID,
		TargetType: models.TargetContent,
		TargetID:   uuid.New(),
	})
	assert.ErrorIs(t, err, ErrActiveRequestExists)
	repo.AssertNotCalled(t, "CreateRequest", mock.Anything, mock.Anything)
}

func TestCreateRequest_InactiveWorkflow(t *testing.T) {
	template := twoStageTemplate()
	workflow := activeWorkflow(template)
	workflow.IsActive = false

	templates := new(MockTemplateRepository)
	templates.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)

	svc := NewRequestService(new(MockRequestRepository), templates, nil, nil, testLogger())
	_, err := svc.CreateRequest(context.Background(), "tenant-1", uuid.New(), "Dana", CreateRequestInput{
		WorkflowID: workflow.ID,
		TargetType: models.TargetContent,
		TargetID:   uuid.New(),
	})
	assert.ErrorIs(t, err, ErrWorkflowInactive)
}

func TestCreateRequest_TemplateNotApplicable(t *testing.T) {
	template := twoStageTemplate()
	template.ApplicableEntityTypes = []string{"campaign"}
	workflow := activeWorkflow(template)

	templates := new(MockTemplateRepository)
	templates.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)

	svc := NewRequestService(new(MockRequestRepository), templates, nil, nil, testLogger())
	_, err := svc.CreateRequest(context.Background(), "tenant-1", uuid.New(), "Dana", CreateRequestInput{
		WorkflowID: workflow.ID,
		TargetType: models.TargetContent,
		TargetID:   uuid.New(),
	})
	assert.ErrorIs(t, err, ErrTemplateNotApplicable)
}
