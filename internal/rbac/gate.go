// Package rbac is the stateless permission gate of the workflow engine.
// Capabilities are static tables over closed role/status/action types,
// checked at compile time by exhaustive construction rather than looked up
// from runtime string maps.
package rbac

import (
	"workflow-service/internal/models"
)

// rolePriority ranks roles for "higher role may act" checks
var rolePriority = map[models.Role]int{
	models.RoleViewer:       10,
	models.RoleEditor:       30,
	models.RoleReviewer:     50,
	models.RoleApprover:     60,
	models.RoleBrandManager: 70,
	models.RoleAdmin:        90,
	models.RoleOwner:        100,
}

// Rank returns the priority of a role, 0 for unknown roles
func Rank(r models.Role) int {
	return rolePriority[r]
}

// RankAtLeast reports whether role ranks at or above min
func RankAtLeast(role, min models.Role) bool {
	return Rank(role) >= Rank(min)
}

// approveCapable is the set of roles with general decision capability.
// A stage with an empty approver-role set (rejected at activation, but
// tolerated for legacy templates) falls back to this set so a stage can
// never deadlock.
var approveCapable = map[models.Role]bool{
	models.RoleReviewer:     true,
	models.RoleApprover:     true,
	models.RoleBrandManager: true,
	models.RoleAdmin:        true,
	models.RoleOwner:        true,
}

// ApproveCapable reports whether a role may record decisions at all
func ApproveCapable(r models.Role) bool {
	return approveCapable[r]
}

// Allowed maps (role, current status, requested action) to allowed/denied.
// Stage-level eligibility for decision actions is checked separately via
// EligibleForStage; this table gates the action kind against the request
// lifecycle state.
func Allowed(role models.Role, status models.Status, action models.Action) bool {
	if !role.IsValid() || !action.IsValid() {
		return false
	}

	switch status {
	case models.StatusPending:
		switch action {
		case models.ActionSubmitForReview:
			return RankAtLeast(role, models.RoleEditor)
		case models.ActionCancel:
			// requester-or-admin narrowing happens in the engine
			return true
		case models.ActionEscalate:
			return RankAtLeast(role, models.RoleAdmin)
		}
		return false

	case models.StatusInProgress, models.StatusEscalated:
		switch action {
		case models.ActionApprove, models.ActionReject, models.ActionRequestRevision:
			return ApproveCapable(role)
		case models.ActionCancel:
			return true
		case models.ActionEscalate:
			return RankAtLeast(role, models.RoleAdmin)
		}
		return false

	case models.StatusApproved:
		// approved is terminal for workflow state; publish is the only
		// action it accepts and it does not transition the request
		return action == models.ActionPublish && RankAtLeast(role, models.RoleApprover)

	case models.StatusRejected, models.StatusCancelled, models.StatusExpired:
		return false
	}

	return false
}

// EligibleForStage reports whether a role may decide on a stage. An empty
// approver-role set falls back to general approve capability.
func EligibleForStage(role models.Role, stage models.StageDefinition) bool {
	if len(stage.ApproverRoles) == 0 {
		return ApproveCapable(role)
	}
	for _, r := range stage.ApproverRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CanCancel reports whether an actor may cancel a request: the requester
// always may, anyone else needs admin rank.
func CanCancel(role models.Role, actorIsRequester bool) bool {
	return actorIsRequester || RankAtLeast(role, models.RoleAdmin)
}
