package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"workflow-service/internal/models"
	"workflow-service/internal/rbac"
	"workflow-service/internal/repository"
)

var (
	ErrDelegationNotFound = errors.New("delegation not found")
	ErrDelegationInvalid  = errors.New("delegation is invalid")
	ErrDelegationOverlap  = errors.New("an overlapping delegation already exists")
	ErrSelfDelegation     = errors.New("cannot delegate to yourself")
	ErrDelegationNotYours = errors.New("only the delegator may revoke a delegation")
	ErrRoleNotDelegatable = errors.New("role has no decision capability to delegate")
)

// DelegationService manages time-bounded approval delegations
type DelegationService struct {
	repo   repository.RequestRepositoryInterface
	logger *logrus.Entry
}

// NewDelegationService creates a new DelegationService
func NewDelegationService(repo repository.RequestRepositoryInterface, logger *logrus.Logger) *DelegationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &DelegationService{
		repo:   repo,
		logger: logger.WithField("component", "delegation-service"),
	}
}

// CreateDelegationInput is the payload for creating a delegation
type CreateDelegationInput struct {
	DelegateID    uuid.UUID   `json:"delegateId" binding:"required"`
	DelegatedRole models.Role `json:"delegatedRole" binding:"required"`
	WorkflowID    *uuid.UUID  `json:"workflowId,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	StartDate     time.Time   `json:"startDate" binding:"required"`
	EndDate       time.Time   `json:"endDate" binding:"required"`
}

// CreateDelegation grants the delegator's decision role to another user
// for a bounded window
func (s *DelegationService) CreateDelegation(ctx context.Context, tenantID string, delegatorID uuid.UUID, input CreateDelegationInput) (*models.ApprovalDelegation, error) {
	if delegatorID == input.DelegateID {
		return nil, ErrSelfDelegation
	}
	if !input.DelegatedRole.IsValid() || !rbac.ApproveCapable(input.DelegatedRole) {
		return nil, ErrRoleNotDelegatable
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrDelegationInvalid
	}
	if input.EndDate.Before(time.Now()) {
		return nil, ErrDelegationInvalid
	}

	overlaps, err := s.repo.CheckOverlappingDelegation(ctx, tenantID, delegatorID, input.DelegateID, input.WorkflowID, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, ErrDelegationOverlap
	}

	delegation := &models.ApprovalDelegation{
		TenantID:      tenantID,
		DelegatorID:   delegatorID,
		DelegateID:    input.DelegateID,
		DelegatedRole: input.DelegatedRole,
		WorkflowID:    input.WorkflowID,
		Reason:        input.Reason,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		IsActive:      true,
	}
	if err := s.repo.CreateDelegation(ctx, delegation); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"delegationId": delegation.ID,
		"delegatorId":  delegatorID,
		"delegateId":   input.DelegateID,
		"role":         input.DelegatedRole,
	}).Info("Created delegation")
	return delegation, nil
}

// RevokeDelegation deactivates a delegation before its end date
func (s *DelegationService) RevokeDelegation(ctx context.Context, delegationID, actorID uuid.UUID, actorRole models.Role, reason string) error {
	delegation, err := s.repo.GetDelegationByID(ctx, delegationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDelegationNotFound
		}
		return err
	}
	if delegation.DelegatorID != actorID && !rbac.RankAtLeast(actorRole, models.RoleAdmin) {
		return ErrDelegationNotYours
	}
	if delegation.RevokedAt != nil || !delegation.IsActive {
		return ErrDelegationInvalid
	}
	return s.repo.RevokeDelegation(ctx, delegationID, actorID, reason)
}

// ListGiven lists delegations created by a user
func (s *DelegationService) ListGiven(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	return s.repo.ListDelegationsByDelegator(ctx, tenantID, delegatorID, includeExpired)
}

// ListReceived lists delegations granted to a user
func (s *DelegationService) ListReceived(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	return s.repo.ListDelegationsByDelegate(ctx, tenantID, delegateID, includeExpired)
}
