package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"workflow-service/internal/metrics"
	"workflow-service/internal/models"
)

// MaxBulkItems caps a single bulk call
const MaxBulkItems = 100

var ErrBulkTooLarge = errors.New("bulk action exceeds the maximum item count")

// BulkActionInput applies one action to many requests
type BulkActionInput struct {
	RequestIDs []uuid.UUID   `json:"requestIds" binding:"required"`
	Action     models.Action `json:"action" binding:"required"`
	Comment    string        `json:"comment,omitempty"`
}

// BulkItemResult is the per-request outcome of a bulk action
type BulkItemResult struct {
	RequestID    uuid.UUID     `json:"requestId"`
	Succeeded    bool          `json:"succeeded"`
	Status       models.Status `json:"status,omitempty"`
	StageIndices []int         `json:"currentStageIndices,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorCode    string        `json:"errorCode,omitempty"`
}

// BulkResult summarizes a bulk action
type BulkResult struct {
	Items     []BulkItemResult `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// ApplyBulk runs one action across many requests. Each request is its own
// transaction: one failure never rolls back or halts the others, and the
// per-item results preserve the input order.
func (s *RequestService) ApplyBulk(ctx context.Context, actorID uuid.UUID, actorRole models.Role, input BulkActionInput) (*BulkResult, error) {
	if len(input.RequestIDs) == 0 {
		return &BulkResult{Items: []BulkItemResult{}}, nil
	}
	if len(input.RequestIDs) > MaxBulkItems {
		return nil, ErrBulkTooLarge
	}

	result := &BulkResult{Items: make([]BulkItemResult, 0, len(input.RequestIDs))}
	for _, id := range input.RequestIDs {
		item := BulkItemResult{RequestID: id}

		applied, err := s.Apply(ctx, id, ActionInput{
			ActorID:   actorID,
			ActorRole: actorRole,
			Action:    input.Action,
			Comment:   input.Comment,
		})
		if err != nil {
			item.Error = err.Error()
			item.ErrorCode = ErrorCode(err)
			result.Failed++
			metrics.BulkItemsTotal.WithLabelValues("failed").Inc()
		} else {
			item.Succeeded = true
			item.Status = applied.Status
			item.StageIndices = applied.StageIndices
			result.Succeeded++
			metrics.BulkItemsTotal.WithLabelValues("succeeded").Inc()
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// ErrorCode maps engine errors to stable machine-readable codes
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrWorkflowNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrPermissionDenied):
		return "PERMISSION_DENIED"
	case errors.Is(err, ErrNotAssigned):
		return "NOT_ASSIGNED"
	case errors.Is(err, ErrDuplicateDecision):
		return "DUPLICATE_DECISION"
	case errors.Is(err, ErrAlreadyFinalized):
		return "ALREADY_FINALIZED"
	case errors.Is(err, ErrStateConflict):
		return "STATE_CONFLICT"
	case errors.Is(err, ErrSelfApprovalNotAllowed):
		return "SELF_APPROVAL"
	case errors.Is(err, ErrActiveRequestExists):
		return "ACTIVE_REQUEST_EXISTS"
	case errors.Is(err, ErrWorkflowInactive):
		return "WORKFLOW_INACTIVE"
	case errors.Is(err, ErrTemplateNotApplicable):
		return "TEMPLATE_NOT_APPLICABLE"
	case errors.Is(err, ErrTemplateNotFound):
		return "TEMPLATE_NOT_FOUND"
	case errors.Is(err, ErrTemplateInvalid):
		return "TEMPLATE_INVALID"
	case errors.Is(err, ErrDelegationNotFound):
		return "DELEGATION_NOT_FOUND"
	case errors.Is(err, ErrDelegationOverlap):
		return "DELEGATION_OVERLAP"
	case errors.Is(err, ErrDelegationNotYours):
		return "DELEGATION_NOT_YOURS"
	case errors.Is(err, ErrSelfDelegation), errors.Is(err, ErrRoleNotDelegatable), errors.Is(err, ErrDelegationInvalid):
		return "DELEGATION_INVALID"
	default:
		return "INTERNAL"
	}
}
