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
	"workflow-service/internal/metrics"
	"workflow-service/internal/models"
	"workflow-service/internal/rbac"
	"workflow-service/internal/repository"
)

// ActionInput describes one actor action against a request
type ActionInput struct {
	ActorID   uuid.UUID     `json:"-"`
	ActorRole models.Role   `json:"-"`
	Action    models.Action `json:"action" binding:"required"`
	Comment   string        `json:"comment,omitempty"`
}

// ApplyResult is the post-transition view returned to the caller
type ApplyResult struct {
	Request      *models.ApprovalRequest `json:"request"`
	Status       models.Status           `json:"status"`
	StageIndices []int                   `json:"currentStageIndices"`
}

// sideEffects are deferred until after commit so a rolled-back transition
// never leaks an entity state change or a notification
type sideEffects struct {
	entityState string
	event       string
	fromStatus  models.Status
}

// Apply runs one action against a request inside a single transaction:
// lock the row, gate the action, mutate stages, persist with a version
// check, and append exactly one audit record.
func (s *RequestService) Apply(ctx context.Context, requestID uuid.UUID, input ActionInput) (*ApplyResult, error) {
	if !input.Action.IsValid() {
		return nil, ErrPermissionDenied
	}

	var (
		request *models.ApprovalRequest
		effects sideEffects
	)

	err := s.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		template := req.Template
		if template == nil {
			return fmt.Errorf("request %s has no template loaded", req.ID)
		}

		// publish acts on an approved request without transitioning it;
		// every other action against a terminal request is rejected
		if req.Status.IsTerminal() {
			if !(req.Status == models.StatusApproved && input.Action == models.ActionPublish) {
				return ErrAlreadyFinalized
			}
		}

		if !rbac.Allowed(input.ActorRole, req.Status, input.Action) {
			return ErrPermissionDenied
		}

		effects.fromStatus = req.Status
		now := time.Now()

		switch input.Action {
		case models.ActionSubmitForReview:
			if err := s.startReview(ctx, tx, req, template, now); err != nil {
				return err
			}
			effects.event = events.EventSubmitted

		case models.ActionApprove, models.ActionReject:
			if err := s.applyDecision(ctx, tx, req, template, input, now, &effects); err != nil {
				return err
			}

		case models.ActionRequestRevision:
			if err := s.resetToFirstStage(ctx, tx, req, template, now); err != nil {
				return err
			}
			effects.entityState = clients.EntityStateDraft
			effects.event = events.EventRevisionRequested

		case models.ActionCancel:
			if !rbac.CanCancel(input.ActorRole, req.RequesterID == input.ActorID) {
				return ErrPermissionDenied
			}
			if err := s.closeOpenStages(ctx, tx, req, models.StageSkipped, now); err != nil {
				return err
			}
			req.Status = models.StatusCancelled
			req.SetStageIndices(nil)
			effects.event = events.EventCancelled

		case models.ActionEscalate:
			if err := s.escalateActiveStages(ctx, tx, req, template); err != nil {
				return err
			}
			req.Status = models.StatusEscalated
			req.Priority = req.Priority.Raise()
			effects.event = events.EventEscalated

		case models.ActionPublish:
			effects.entityState = clients.EntityStatePublished
			effects.event = events.EventPublished
		}

		if input.Action != models.ActionPublish {
			if err := tx.UpdateRequest(ctx, req); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					return ErrStateConflict
				}
				return err
			}
		}

		audit := &models.ApprovalAction{
			TenantID:   req.TenantID,
			RequestID:  req.ID,
			ActorID:    &input.ActorID,
			ActorRole:  input.ActorRole,
			Action:     input.Action,
			Comment:    input.Comment,
			FromStatus: effects.fromStatus,
			ToStatus:   req.Status,
		}
		if err := tx.CreateAction(ctx, audit); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}

		request = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(input.Action), string(request.Status)).Inc()

	if effects.entityState != "" {
		s.setEntityState(ctx, request, effects.entityState)
	}
	if effects.event != "" {
		s.notify(ctx, effects.event, request, &input.ActorID, effects.fromStatus, request.Status)
	}

	s.logger.WithFields(logrus.Fields{
		"requestId": request.ID,
		"action":    input.Action,
		"from":      effects.fromStatus,
		"to":        request.Status,
		"actorId":   input.ActorID,
	}).Info("Applied approval action")

	return &ApplyResult{
		Request:      request,
		Status:       request.Status,
		StageIndices: request.StageIndices(),
	}, nil
}

// applyDecision records an approve or reject on every active stage the
// actor is eligible for, then resolves quorum and advances or finalizes.
// A decision landing only on already-completed stages is recorded there
// without changing request state.
func (s *RequestService) applyDecision(ctx context.Context, tx repository.RequestRepositoryInterface, req *models.ApprovalRequest, template *models.WorkflowTemplate, input ActionInput, now time.Time, effects *sideEffects) error {
	if input.Action == models.ActionApprove && req.RequesterID == input.ActorID {
		return ErrSelfApprovalNotAllowed
	}

	var delegations []models.ApprovalDelegation
	delegationsLoaded := false
	loadDelegations := func() ([]models.ApprovalDelegation, error) {
		if !delegationsLoaded {
			var err error
			delegations, err = tx.FindActiveDelegations(ctx, req.TenantID, input.ActorID, &req.WorkflowID)
			if err != nil {
				return nil, err
			}
			delegationsLoaded = true
		}
		return delegations, nil
	}

	decision := models.StageDecision{
		Decision:  models.DecisionApprove,
		Role:      input.ActorRole,
		Comment:   input.Comment,
		DecidedAt: now,
	}
	if input.Action == models.ActionReject {
		decision.Decision = models.DecisionReject
	}

	// eligibleRole resolves whether the actor may decide on a stage and
	// which role the decision counts for
	eligibleRole := func(inst *models.StageInstance, def *models.StageDefinition) (models.Role, bool, error) {
		if rbac.EligibleForStage(input.ActorRole, *def) {
			return input.ActorRole, true, nil
		}
		if inst.EscalatedRole != nil && *inst.EscalatedRole == input.ActorRole {
			return input.ActorRole, true, nil
		}
		dels, err := loadDelegations()
		if err != nil {
			return "", false, err
		}
		for _, d := range dels {
			if d.IsValidNow() && rbac.EligibleForStage(d.DelegatedRole, *def) {
				// quorum counts the delegated role, not the actor's own
				return d.DelegatedRole, true, nil
			}
		}
		return "", false, nil
	}

	rejected := false
	decided := 0
	duplicates := 0
	for _, idx := range req.StageIndices() {
		inst := req.StageAt(idx)
		if inst == nil || (inst.Status != models.StageActive && inst.Status != models.StageEscalated) {
			continue
		}
		def := stageDef(template.Stages, idx)
		if def == nil {
			continue
		}
		role, eligible, err := eligibleRole(inst, def)
		if err != nil {
			return err
		}
		if !eligible {
			continue
		}

		stageDecision := decision
		stageDecision.Role = role
		if !inst.RecordDecision(input.ActorID, stageDecision) {
			duplicates++
			continue
		}
		decided++

		switch ResolveStage(*def, inst, template.RequireAllFor(*def)) {
		case StageRejected:
			rejected = true
		case StageComplete:
			inst.Status = models.StageCompleted
			inst.CompletedAt = &now
		}
		if err := tx.SaveStageInstance(ctx, inst); err != nil {
			return err
		}
	}
	if decided == 0 && duplicates == 0 {
		// a decision arriving after its stage already completed never
		// reopens the stage or moves the request; it is kept on the
		// instance and in the audit trail
		late := 0
		for i := range req.Stages {
			inst := &req.Stages[i]
			if inst.Status != models.StageCompleted {
				continue
			}
			def := stageDef(template.Stages, inst.StageIndex)
			if def == nil {
				continue
			}
			role, eligible, err := eligibleRole(inst, def)
			if err != nil {
				return err
			}
			if !eligible {
				continue
			}
			stageDecision := decision
			stageDecision.Role = role
			if !inst.RecordDecision(input.ActorID, stageDecision) {
				duplicates++
				continue
			}
			if err := tx.SaveStageInstance(ctx, inst); err != nil {
				return err
			}
			late++
		}
		if late > 0 {
			return nil
		}
	}
	if decided == 0 {
		if duplicates > 0 {
			return ErrDuplicateDecision
		}
		return ErrNotAssigned
	}

	if rejected {
		if template.RejectPolicy == models.RejectPolicyRevision {
			if err := s.resetToFirstStage(ctx, tx, req, template, now); err != nil {
				return err
			}
			effects.entityState = clients.EntityStateDraft
			effects.event = events.EventRevisionRequested
			return nil
		}
		if err := s.closeOpenStages(ctx, tx, req, models.StageSkipped, now); err != nil {
			return err
		}
		req.Status = models.StatusRejected
		req.SetStageIndices(nil)
		effects.entityState = clients.EntityStateRejected
		effects.event = events.EventRejected
		return nil
	}

	isCompleted := func(idx int) bool {
		inst := req.StageAt(idx)
		return inst != nil && inst.Status == models.StageCompleted
	}
	next, ok := NextStageIndices(template.Stages, isCompleted, template.AllowParallelStages)
	if !ok {
		req.Status = models.StatusApproved
		req.SetStageIndices(nil)
		effects.entityState = clients.EntityStateApproved
		effects.event = events.EventGranted
		return nil
	}

	if err := s.activateStages(ctx, tx, req, template, next, now); err != nil {
		return err
	}
	req.SetStageIndices(next)
	req.Status = models.StatusInProgress
	return nil
}

// startReview activates the first stage set and moves the request into
// review
func (s *RequestService) startReview(ctx context.Context, tx repository.RequestRepositoryInterface, req *models.ApprovalRequest, template *models.WorkflowTemplate, now time.Time) error {
	initial := InitialStageIndices(template.Stages, template.AllowParallelStages)
	if len(initial) == 0 {
		return fmt.Errorf("template %s has no stages to activate", template.ID)
	}
	if err := s.activateStages(ctx, tx, req, template, initial, now); err != nil {
		return err
	}
	req.SetStageIndices(initial)
	req.Status = models.StatusInProgress
	return nil
}

// activateStages marks pending stage instances as active and stamps their
// per-stage deadlines
func (s *RequestService) activateStages(ctx context.Context, tx repository.RequestRepositoryInterface, req *models.ApprovalRequest, template *models.WorkflowTemplate, indices []int, now time.Time) error {
	for _, idx := range indices {
		inst := req.StageAt(idx)
		if inst == nil || inst.Status != models.StagePending {
			continue
		}
		def := stageDef(template.Stages, idx)
		if def == nil {
			continue
		}
		inst.Status = models.StageActive
		activatedAt := now
		inst.ActivatedAt = &activatedAt
		dueAt := now.Add(time.Duration(template.TimeoutFor(*def)) * time.Hour)
		inst.DueAt = &dueAt
		if err := tx.SaveStageInstance(ctx, inst); err != nil {
			return err
		}
	}
	return nil
}

// resetToFirstStage wipes all stage progress and restarts the workflow at
// the first activation set. Earlier decisions survive only in the audit
// trail.
func (s *RequestService) resetToFirstStage(ctx context.Context, tx repository.RequestRepositoryInterface, req *models.ApprovalRequest, template *models.WorkflowTemplate, now time.Time) error {
	for i := range req.Stages {
		inst := &req.Stages[i]
		inst.Status = models.StagePending
		inst.Decisions = map[string]models.StageDecision{}
		inst.EscalatedRole = nil
		inst.ActivatedAt = nil
		inst.DueAt = nil
		inst.CompletedAt = nil
		if err := tx.SaveStageInstance(ctx, inst); err != nil {
			return err
		}
	}
	return s.startReview(ctx, tx, req, template, now)
}

// closeOpenStages marks every non-final stage instance with the given
// status when the request leaves the active lifecycle
func (s *RequestService) closeOpenStages(ctx context.Context, tx repository.RequestRepositoryInterface, req *models.ApprovalRequest, status models.StageStatus, now time.Time) error {
	for i := range req.Stages {
		inst := &req.Stages[i]
		if inst.Status == models.StageCompleted || inst.Status == models.StageSkipped {
			continue
		}
		inst.Status = status
		if err := tx.SaveStageInstance(ctx, inst); err != nil {
			return err
		}
	}
	return nil
}

// escalateActiveStages reassigns every currently active stage to its
// escalation role, when the stage defines one
func (s *RequestService) escalateActiveStages(ctx context.Context, tx repository.RequestRepositoryInterface, req *models.ApprovalRequest, template *models.WorkflowTemplate) error {
	for _, idx := range req.StageIndices() {
		inst := req.StageAt(idx)
		if inst == nil || inst.Status != models.StageActive {
			continue
		}
		def := stageDef(template.Stages, idx)
		if def == nil {
			continue
		}
		inst.Status = models.StageEscalated
		inst.EscalatedRole = def.EscalationRole
		if err := tx.SaveStageInstance(ctx, inst); err != nil {
			return err
		}
	}
	return nil
}

// stageDef looks up a stage definition by index
func stageDef(defs []models.StageDefinition, index int) *models.StageDefinition {
	for i := range defs {
		if defs[i].Index == index {
			return &defs[i]
		}
	}
	return nil
}
