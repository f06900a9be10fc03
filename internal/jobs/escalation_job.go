package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"workflow-service/internal/events"
	"workflow-service/internal/metrics"
	"workflow-service/internal/models"
	"workflow-service/internal/repository"
)

// Notifier dispatches notifications for sweep outcomes
type Notifier interface {
	Notify(ctx context.Context, event string, n events.Notification)
}

// EscalationJob periodically escalates overdue stages and expires requests
// whose overall deadline passed with no escalation path left. Each request
// is handled in its own short transaction under SKIP LOCKED, so concurrent
// sweeps and live actors never block each other and never double-escalate.
type EscalationJob struct {
	repo     repository.RequestRepositoryInterface
	notifier Notifier
	logger   *logrus.Entry
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewEscalationJob creates a new escalation job
func NewEscalationJob(repo repository.RequestRepositoryInterface, notifier Notifier, logger *logrus.Logger, interval time.Duration) *EscalationJob {
	if logger == nil {
		logger = logrus.New()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &EscalationJob{
		repo:     repo,
		notifier: notifier,
		logger:   logger.WithField("component", "escalation-job"),
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or the context ends
func (j *EscalationJob) Start(ctx context.Context) {
	j.logger.WithField("interval", j.interval.String()).Info("Starting escalation job")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.stopCh:
			j.logger.Info("Escalation job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Escalation job context cancelled")
			return
		}
	}
}

// Stop signals the loop to exit
func (j *EscalationJob) Stop() {
	close(j.stopCh)
}

// RunOnce performs a single sweep: stage escalations first, then request
// expirations
func (j *EscalationJob) RunOnce(ctx context.Context) {
	now := j.now()

	overdue, err := j.repo.FindRequestsWithOverdueStages(ctx, now)
	if err != nil {
		j.logger.WithError(err).Error("Failed to find overdue stages")
	} else {
		for i := range overdue {
			j.escalateRequest(ctx, overdue[i].ID, now)
		}
	}

	pastDue, err := j.repo.FindRequestsPastDue(ctx, now)
	if err != nil {
		j.logger.WithError(err).Error("Failed to find past-due requests")
		return
	}
	for i := range pastDue {
		j.expireRequest(ctx, pastDue[i].ID, now)
	}
}

// escalateRequest escalates every overdue active stage of one request
func (j *EscalationJob) escalateRequest(ctx context.Context, requestID uuid.UUID, now time.Time) {
	var escalatedReq *models.ApprovalRequest

	err := j.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		req, err := tx.GetRequestSkipLocked(ctx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil // locked by a live actor, next sweep retries
			}
			return err
		}
		if req.Status.IsTerminal() || req.Template == nil {
			return nil
		}

		escalated := 0
		for _, idx := range req.StageIndices() {
			inst := req.StageAt(idx)
			if inst == nil || inst.Status != models.StageActive {
				continue
			}
			if inst.DueAt == nil || !inst.DueAt.Before(now) {
				continue
			}
			def := stageDefinition(req.Template.Stages, idx)
			if def == nil || def.EscalationRole == nil {
				continue
			}
			inst.Status = models.StageEscalated
			inst.EscalatedRole = def.EscalationRole
			if err := tx.SaveStageInstance(ctx, inst); err != nil {
				return err
			}
			escalated++
		}
		if escalated == 0 {
			return nil
		}

		fromStatus := req.Status
		req.Status = models.StatusEscalated
		req.Priority = req.Priority.Raise()
		if err := tx.UpdateRequest(ctx, req); err != nil {
			// a version conflict rolls back the stage flips too; the next
			// sweep retries the whole request
			return err
		}

		audit := &models.ApprovalAction{
			TenantID:   req.TenantID,
			RequestID:  req.ID,
			Action:     models.ActionEscalate,
			Comment:    "stage deadline exceeded",
			FromStatus: fromStatus,
			ToStatus:   req.Status,
		}
		if err := tx.CreateAction(ctx, audit); err != nil {
			return err
		}

		metrics.EscalationsTotal.Add(float64(escalated))
		escalatedReq = req
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			j.logger.WithField("requestId", requestID).Debug("Escalation lost a version race, retrying next sweep")
			return
		}
		j.logger.WithField("requestId", requestID).WithError(err).Error("Failed to escalate request")
		return
	}

	if escalatedReq != nil {
		j.logger.WithFields(logrus.Fields{
			"requestId": escalatedReq.ID,
			"priority":  escalatedReq.Priority,
		}).Info("Escalated overdue request")
		j.notify(ctx, events.EventEscalated, escalatedReq)
	}
}

// expireRequest moves a past-due request to expired when none of its
// current stages has an escalation path left
func (j *EscalationJob) expireRequest(ctx context.Context, requestID uuid.UUID, now time.Time) {
	var expiredReq *models.ApprovalRequest

	err := j.repo.WithTransaction(ctx, func(tx repository.RequestRepositoryInterface) error {
		req, err := tx.GetRequestSkipLocked(ctx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		if req.Status.IsTerminal() || req.Template == nil {
			return nil
		}
		if req.DueDate == nil || !req.DueDate.Before(now) {
			return nil
		}

		// an unescalated stage with an escalation role still has a path;
		// give the escalation half of the sweep a chance first
		for _, idx := range req.StageIndices() {
			inst := req.StageAt(idx)
			def := stageDefinition(req.Template.Stages, idx)
			if inst != nil && inst.Status == models.StageActive && def != nil && def.EscalationRole != nil {
				return nil
			}
		}

		fromStatus := req.Status
		for i := range req.Stages {
			inst := &req.Stages[i]
			if inst.Status == models.StageCompleted || inst.Status == models.StageSkipped {
				continue
			}
			inst.Status = models.StageSkipped
			if err := tx.SaveStageInstance(ctx, inst); err != nil {
				return err
			}
		}
		req.Status = models.StatusExpired
		req.SetStageIndices(nil)
		if err := tx.UpdateRequest(ctx, req); err != nil {
			// roll back the stage flips together with the request update
			return err
		}

		audit := &models.ApprovalAction{
			TenantID:   req.TenantID,
			RequestID:  req.ID,
			Action:     models.ActionExpire,
			Comment:    "request deadline exceeded",
			FromStatus: fromStatus,
			ToStatus:   req.Status,
		}
		if err := tx.CreateAction(ctx, audit); err != nil {
			return err
		}

		metrics.ExpirationsTotal.Inc()
		expiredReq = req
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			j.logger.WithField("requestId", requestID).Debug("Expiration lost a version race, retrying next sweep")
			return
		}
		j.logger.WithField("requestId", requestID).WithError(err).Error("Failed to expire request")
		return
	}

	if expiredReq != nil {
		j.logger.WithField("requestId", expiredReq.ID).Info("Expired past-due request")
		j.notify(ctx, events.EventExpired, expiredReq)
	}
}

func (j *EscalationJob) notify(ctx context.Context, event string, req *models.ApprovalRequest) {
	if j.notifier == nil {
		return
	}
	j.notifier.Notify(ctx, event, events.Notification{
		RequestID:  req.ID.String(),
		TenantID:   req.TenantID,
		TargetType: string(req.TargetType),
		TargetID:   req.TargetID.String(),
		ToStatus:   string(req.Status),
		Priority:   string(req.Priority),
	})
}

func stageDefinition(defs []models.StageDefinition, index int) *models.StageDefinition {
	for i := range defs {
		if defs[i].Index == index {
			return &defs[i]
		}
	}
	return nil
}
