package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"workflow-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict - record was modified by another request")
)

// RequestRepository handles database operations for approval requests
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// WithTransaction runs fn inside a database transaction, passing a
// repository bound to the transaction handle
func (r *RequestRepository) WithTransaction(ctx context.Context, fn func(txRepo RequestRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&RequestRepository{db: tx})
	})
}

// --- Request Methods ---

// CreateRequest creates a new approval request
func (r *RequestRepository) CreateRequest(ctx context.Context, request *models.ApprovalRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// CreateStageInstances creates the per-stage records for a request
func (r *RequestRepository) CreateStageInstances(ctx context.Context, stages []*models.StageInstance) error {
	if len(stages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(stages).Error
}

// GetRequestByID retrieves a request with its template and stage instances
func (r *RequestRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stage_index ASC")
		}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// GetRequestForUpdate retrieves a request with a row lock. Must be called
// inside a transaction; concurrent actors on the same request serialize
// behind the lock.
func (r *RequestRepository) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// locking clauses cannot be combined with joined preloads; load
	// relations separately under the same transaction
	if err := r.loadRelations(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetRequestSkipLocked retrieves a request with FOR UPDATE SKIP LOCKED so
// concurrent sweep instances never double-process one request. Returns
// ErrNotFound when another instance holds the lock.
func (r *RequestRepository) GetRequestSkipLocked(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadRelations(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepository) loadRelations(ctx context.Context, request *models.ApprovalRequest) error {
	var template models.WorkflowTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", request.TemplateID).First(&template).Error; err == nil {
		request.Template = &template
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).
		Where("request_id = ?", request.ID).
		Order("stage_index ASC").
		Find(&request.Stages).Error
}

// HasActiveRequest reports whether a non-terminal request already exists
// for the target entity
func (r *RequestRepository) HasActiveRequest(ctx context.Context, tenantID string, targetType models.TargetType, targetID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("tenant_id = ? AND target_type = ? AND target_id = ?", tenantID, targetType, targetID).
		Where("status IN ?", []models.Status{models.StatusPending, models.StatusInProgress, models.StatusEscalated}).
		Count(&count).Error
	return count > 0, err
}

// UpdateRequest persists request state with optimistic locking on the
// version column
func (r *RequestRepository) UpdateRequest(ctx context.Context, request *models.ApprovalRequest) error {
	oldVersion := request.Version

	result := r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("id = ? AND version = ?", request.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":                request.Status,
			"priority":              request.Priority,
			"current_stage_indices": request.CurrentStageIndices,
			"due_date":              request.DueDate,
			"version":               oldVersion + 1,
			"updated_at":            time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	request.Version = oldVersion + 1
	return nil
}

// SaveStageInstance persists a stage instance, running the decision codec
// hooks
func (r *RequestRepository) SaveStageInstance(ctx context.Context, stage *models.StageInstance) error {
	return r.db.WithContext(ctx).Save(stage).Error
}

// --- Audit Methods ---

// CreateAction appends an audit record; rows are never updated afterwards
func (r *RequestRepository) CreateAction(ctx context.Context, action *models.ApprovalAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

// ListActions retrieves the audit history for a request
func (r *RequestRepository) ListActions(ctx context.Context, requestID uuid.UUID) ([]models.ApprovalAction, error) {
	var actions []models.ApprovalAction
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&actions).Error
	return actions, err
}

// --- Listing Methods ---

// ListRequests retrieves requests for a tenant with optional status filter
func (r *RequestRepository) ListRequests(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	var requests []models.ApprovalRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("tenant_id = ?", tenantID)

	if statusFilter != "" && statusFilter != "all" {
		query = query.Where("status = ?", statusFilter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Template").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error

	return requests, total, err
}

// ListRequestsByRequester retrieves requests submitted by a specific user
func (r *RequestRepository) ListRequestsByRequester(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	var requests []models.ApprovalRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("tenant_id = ? AND requester_id = ?", tenantID, requesterID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Template").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error

	return requests, total, err
}

// --- Escalation Queries ---

// FindRequestsWithOverdueStages finds non-terminal requests that have at
// least one active stage whose due date has passed. The sweep re-checks
// stage state under a lock before acting.
func (r *RequestRepository) FindRequestsWithOverdueStages(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error) {
	var requests []models.ApprovalRequest
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Stages").
		Where("status IN ?", []models.Status{models.StatusPending, models.StatusInProgress, models.StatusEscalated}).
		Where("id IN (?)", r.db.Model(&models.StageInstance{}).
			Select("request_id").
			Where("status = ? AND due_at < ?", models.StageActive, now)).
		Find(&requests).Error
	return requests, err
}

// FindRequestsPastDue finds non-terminal requests past their request-level
// due date
func (r *RequestRepository) FindRequestsPastDue(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error) {
	var requests []models.ApprovalRequest
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Stages").
		Where("status IN ?", []models.Status{models.StatusPending, models.StatusInProgress, models.StatusEscalated}).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Find(&requests).Error
	return requests, err
}

// --- Delegation Methods ---

// CreateDelegation creates a new delegation record
func (r *RequestRepository) CreateDelegation(ctx context.Context, delegation *models.ApprovalDelegation) error {
	return r.db.WithContext(ctx).Create(delegation).Error
}

// GetDelegationByID retrieves a delegation by ID
func (r *RequestRepository) GetDelegationByID(ctx context.Context, id uuid.UUID) (*models.ApprovalDelegation, error) {
	var delegation models.ApprovalDelegation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&delegation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &delegation, nil
}

// FindActiveDelegations finds all currently valid delegations for a
// delegate, optionally filtered by workflow
func (r *RequestRepository) FindActiveDelegations(ctx context.Context, tenantID string, delegateID uuid.UUID, workflowID *uuid.UUID) ([]models.ApprovalDelegation, error) {
	var delegations []models.ApprovalDelegation
	now := time.Now()

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegate_id = ? AND is_active = ?", tenantID, delegateID, true).
		Where("start_date <= ? AND end_date > ?", now, now).
		Where("revoked_at IS NULL")

	if workflowID != nil {
		query = query.Where("workflow_id = ? OR workflow_id IS NULL", *workflowID)
	}

	err := query.Find(&delegations).Error
	return delegations, err
}

// ListDelegationsByDelegator retrieves all delegations created by a user
func (r *RequestRepository) ListDelegationsByDelegator(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	var delegations []models.ApprovalDelegation

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegator_id = ?", tenantID, delegatorID)

	if !includeExpired {
		query = query.Where("is_active = ? AND end_date > ?", true, time.Now())
	}

	err := query.Order("created_at DESC").Find(&delegations).Error
	return delegations, err
}

// ListDelegationsByDelegate retrieves all delegations granted to a user
func (r *RequestRepository) ListDelegationsByDelegate(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	var delegations []models.ApprovalDelegation

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegate_id = ?", tenantID, delegateID)

	if !includeExpired {
		query = query.Where("is_active = ? AND end_date > ?", true, time.Now())
	}

	err := query.Order("created_at DESC").Find(&delegations).Error
	return delegations, err
}

// RevokeDelegation revokes an existing delegation
func (r *RequestRepository) RevokeDelegation(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.ApprovalDelegation{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"revoked_at":    now,
			"revoked_by":    revokedBy,
			"revoke_reason": reason,
			"updated_at":    now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CheckOverlappingDelegation checks for an overlapping delegation for the
// same delegator/delegate/workflow
func (r *RequestRepository) CheckOverlappingDelegation(ctx context.Context, tenantID string, delegatorID, delegateID uuid.UUID, workflowID *uuid.UUID, startDate, endDate time.Time) (bool, error) {
	var count int64

	query := r.db.WithContext(ctx).Model(&models.ApprovalDelegation{}).
		Where("tenant_id = ? AND delegator_id = ? AND delegate_id = ? AND is_active = ?",
			tenantID, delegatorID, delegateID, true).
		Where("revoked_at IS NULL").
		Where("(start_date < ? AND end_date > ?)", endDate, startDate)

	if workflowID != nil {
		query = query.Where("workflow_id = ?", *workflowID)
	} else {
		query = query.Where("workflow_id IS NULL")
	}

	err := query.Count(&count).Error
	return count > 0, err
}
