package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"workflow-service/internal/clients"
	"workflow-service/internal/events"
	"workflow-service/internal/models"
	"workflow-service/internal/repository"
)

var (
	ErrRequestNotFound        = errors.New("approval request not found")
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWorkflowInactive       = errors.New("workflow is not accepting new requests")
	ErrTemplateNotApplicable  = errors.New("workflow template does not apply to this target type")
	ErrActiveRequestExists    = errors.New("an active approval request already exists for this target")
	ErrPermissionDenied       = errors.New("role may not perform this action in the current state")
	ErrNotAssigned            = errors.New("actor is not an eligible approver for any active stage")
	ErrDuplicateDecision      = errors.New("actor has already decided on this stage")
	ErrAlreadyFinalized       = errors.New("request has already been finalized")
	ErrStateConflict          = errors.New("request was modified concurrently, refetch and retry")
	ErrSelfApprovalNotAllowed = errors.New("requester cannot approve their own request")
)

// Notifier dispatches fire-and-forget notifications after commit
type Notifier interface {
	Notify(ctx context.Context, event string, n events.Notification)
}

// RequestService owns all mutations of approval requests. State changes
// go through validated transitions only.
type RequestService struct {
	repo      repository.RequestRepositoryInterface
	templates repository.TemplateRepositoryInterface
	entities  clients.EntityStateSetter
	notifier  Notifier
	logger    *logrus.Entry
}

// NewRequestService creates a new RequestService. entities and notifier
// may be nil; the corresponding side effects are then skipped.
func NewRequestService(
	repo repository.RequestRepositoryInterface,
	templates repository.TemplateRepositoryInterface,
	entities clients.EntityStateSetter,
	notifier Notifier,
	logger *logrus.Logger,
) *RequestService {
	if logger == nil {
		logger = logrus.New()
	}
	return &RequestService{
		repo:      repo,
		templates: templates,
		entities:  entities,
		notifier:  notifier,
		logger:    logger.WithField("component", "request-service"),
	}
}

// CreateRequestInput is the payload for creating an approval request
type CreateRequestInput struct {
	WorkflowID uuid.UUID         `json:"workflowId" binding:"required"`
	TargetType models.TargetType `json:"targetType" binding:"required"`
	TargetID   uuid.UUID         `json:"targetId" binding:"required"`
	Priority   models.Priority   `json:"priority,omitempty"`
	Notes      string            `json:"notes,omitempty"`
}

// CreateRequest instantiates a request against a target entity. Only one
// non-terminal request may exist per target at a time.
func (s *RequestService) CreateRequest(ctx context.Context, tenantID string, requesterID uuid.UUID, requesterName string, input CreateRequestInput) (*models.ApprovalRequest, error) {
	if !input.TargetType.IsValid() {
		return nil, ErrTemplateNotApplicable
	}

	workflow, err := s.templates.GetWorkflowByID(ctx, input.WorkflowID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}
	if !workflow.IsActive {
		return nil, ErrWorkflowInactive
	}
	template := workflow.Template
	if template == nil {
		return nil, ErrWorkflowNotFound
	}
	if !template.AppliesTo(input.TargetType) {
		return nil, ErrTemplateNotApplicable
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := time.Now()
	dueDate := now.Add(time.Duration(template.DefaultTimeoutHours) * time.Hour)

	request := &models.ApprovalRequest{
		TenantID:      tenantID,
		WorkflowID:    workflow.ID,
		TemplateID:    template.ID,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		TargetType:    input.TargetType,
		TargetID:      input.TargetID,
		Status:        models.StatusPending,
		Priority:      priority,
		Notes:         input.Notes,
		DueDate:       &dueDate,
		Version:       1,
	}
	request.SetStageIndices(InitialStageIndices(template.Stages, template.AllowParallelStages))

	err = s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		exists, err := tx.HasActiveRequest(ctx, tenantID, input.TargetType, input.TargetID)
		if err != nil {
			return err
		}
		if exists {
			return ErrActiveRequestExists
		}

		if err := tx.CreateRequest(ctx, request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		stages := make([]*models.StageInstance, 0, len(template.Stages))
		for _, def := range template.Stages {
			stages = append(stages, &models.StageInstance{
				RequestID:  request.ID,
				StageIndex: def.Index,
				Status:     models.StagePending,
				Decisions:  map[string]models.StageDecision{},
			})
		}
		if err := tx.CreateStageInstances(ctx, stages); err != nil {
			return fmt.Errorf("failed to create stage instances: %w", err)
		}
		for _, st := range stages {
			request.Stages = append(request.Stages, *st)
		}
		request.Template = template

		if template.AutoStart {
			if err := s.startReview(ctx, tx, request, template, now); err != nil {
				return err
			}
			audit := &models.ApprovalAction{
				TenantID:   tenantID,
				RequestID:  request.ID,
				ActorID:    &requesterID,
				Action:     models.ActionSubmitForReview,
				FromStatus: models.StatusPending,
				ToStatus:   models.StatusInProgress,
			}
			if err := tx.CreateAction(ctx, audit); err != nil {
				return fmt.Errorf("failed to write audit record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.templates.IncrementTemplateUsage(ctx, template.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to increment template usage count")
	}

	s.notify(ctx, events.EventRequested, request, &requesterID, "", request.Status)

	return request, nil
}

// GetRequest retrieves a request by ID
func (s *RequestService) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.ApprovalRequest, error) {
	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

// ListRequests lists requests for a tenant with optional status filter
func (s *RequestService) ListRequests(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	return s.repo.ListRequests(ctx, tenantID, statusFilter, limit, offset)
}

// ListMyRequests lists requests submitted by a user
func (s *RequestService) ListMyRequests(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	return s.repo.ListRequestsByRequester(ctx, tenantID, requesterID, limit, offset)
}

// GetRequestHistory retrieves the audit trail for a request
func (s *RequestService) GetRequestHistory(ctx context.Context, requestID uuid.UUID) ([]models.ApprovalAction, error) {
	return s.repo.ListActions(ctx, requestID)
}

// notify dispatches a notification if a notifier is configured
func (s *RequestService) notify(ctx context.Context, event string, request *models.ApprovalRequest, actorID *uuid.UUID, fromStatus models.Status, toStatus models.Status) {
	if s.notifier == nil {
		return
	}
	n := events.Notification{
		RequestID:  request.ID.String(),
		TenantID:   request.TenantID,
		TargetType: string(request.TargetType),
		TargetID:   request.TargetID.String(),
		FromStatus: string(fromStatus),
		ToStatus:   string(toStatus),
		Priority:   string(request.Priority),
	}
	if actorID != nil {
		n.ActorID = actorID.String()
	}
	s.notifier.Notify(ctx, event, n)
}

// setEntityState calls the external entity store after commit; failures
// are logged and never affect the committed transition
func (s *RequestService) setEntityState(ctx context.Context, request *models.ApprovalRequest, state string) {
	if s.entities == nil {
		return
	}
	if err := s.entities.SetEntityState(ctx, request.TargetType, request.TargetID, state); err != nil {
		s.logger.WithFields(logrus.Fields{
			"requestId":  request.ID,
			"targetType": request.TargetType,
			"targetId":   request.TargetID,
			"state":      state,
		}).WithError(err).Error("Failed to update entity state")
	}
}
