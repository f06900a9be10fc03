package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"workflow-service/internal/models"
)

func TestRank(t *testing.T) {
	assert.Greater(t, Rank(models.RoleOwner), Rank(models.RoleAdmin))
	assert.Greater(t, Rank(models.RoleAdmin), Rank(models.RoleBrandManager))
	assert.Greater(t, Rank(models.RoleApprover), Rank(models.RoleReviewer))
	assert.Greater(t, Rank(models.RoleReviewer), Rank(models.RoleEditor))
	assert.Equal(t, 0, Rank(models.Role("ghost")))
}

func TestAllowed(t *testing.T) {
	testCases := []struct {
		name    string
		role    models.Role
		status  models.Status
		action  models.Action
		allowed bool
	}{
		{"editor_submits_pending", models.RoleEditor, models.StatusPending, models.ActionSubmitForReview, true},
		{"viewer_cannot_submit", models.RoleViewer, models.StatusPending, models.ActionSubmitForReview, false},
		{"reviewer_approves_in_progress", models.RoleReviewer, models.StatusInProgress, models.ActionApprove, true},
		{"reviewer_rejects_in_progress", models.RoleReviewer, models.StatusInProgress, models.ActionReject, true},
		{"viewer_cannot_approve", models.RoleViewer, models.StatusInProgress, models.ActionApprove, false},
		{"editor_cannot_approve", models.RoleEditor, models.StatusInProgress, models.ActionApprove, false},
		{"approve_on_escalated", models.RoleApprover, models.StatusEscalated, models.ActionApprove, true},
		{"revision_on_in_progress", models.RoleApprover, models.StatusInProgress, models.ActionRequestRevision, true},
		{"approve_on_pending_denied", models.RoleApprover, models.StatusPending, models.ActionApprove, false},
		{"publish_on_approved", models.RoleApprover, models.StatusApproved, models.ActionPublish, true},
		{"publish_needs_approver_rank", models.RoleReviewer, models.StatusApproved, models.ActionPublish, false},
		{"approve_on_approved_denied", models.RoleOwner, models.StatusApproved, models.ActionApprove, false},
		{"nothing_on_rejected", models.RoleOwner, models.StatusRejected, models.ActionApprove, false},
		{"nothing_on_cancelled", models.RoleOwner, models.StatusCancelled, models.ActionPublish, false},
		{"nothing_on_expired", models.RoleOwner, models.StatusExpired, models.ActionEscalate, false},
		{"admin_escalates", models.RoleAdmin, models.StatusInProgress, models.ActionEscalate, true},
		{"approver_cannot_escalate", models.RoleApprover, models.StatusInProgress, models.ActionEscalate, false},
		{"cancel_on_pending", models.RoleViewer, models.StatusPending, models.ActionCancel, true},
		{"unknown_role_denied", models.Role("ghost"), models.StatusInProgress, models.ActionApprove, false},
		{"unknown_action_denied", models.RoleAdmin, models.StatusInProgress, models.Action("teleport"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, Allowed(tc.role, tc.status, tc.action))
		})
	}
}

func TestEligibleForStage(t *testing.T) {
	stage := models.StageDefinition{
		Index:         0,
		Name:          "Review",
		ApproverRoles: []models.Role{models.RoleReviewer},
	}

	assert.True(t, EligibleForStage(models.RoleReviewer, stage))
	assert.False(t, EligibleForStage(models.RoleApprover, stage))
	assert.False(t, EligibleForStage(models.RoleOwner, stage))

	// Empty role set falls back to any approve-capable role
	open := models.StageDefinition{Index: 1, Name: "Open"}
	assert.True(t, EligibleForStage(models.RoleReviewer, open))
	assert.True(t, EligibleForStage(models.RoleOwner, open))
	assert.False(t, EligibleForStage(models.RoleEditor, open))
	assert.False(t, EligibleForStage(models.RoleViewer, open))
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(models.RoleViewer, true))
	assert.False(t, CanCancel(models.RoleApprover, false))
	assert.True(t, CanCancel(models.RoleAdmin, false))
	assert.True(t, CanCancel(models.RoleOwner, false))
}
