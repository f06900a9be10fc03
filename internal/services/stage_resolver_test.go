package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"workflow-service/internal/models"
)

func decision(role models.Role, kind string) models.StageDecision {
	return models.StageDecision{Decision: kind, Role: role, DecidedAt: time.Now()}
}

func instanceWithDecisions(decisions ...models.StageDecision) *models.StageInstance {
	inst := &models.StageInstance{Status: models.StageActive}
	for _, d := range decisions {
		inst.RecordDecision(uuid.New(), d)
	}
	return inst
}

func TestResolveStage_AnyApprover(t *testing.T) {
	def := models.StageDefinition{
		Index:         0,
		Name:          "Review",
		ApproverRoles: []models.Role{models.RoleReviewer, models.RoleApprover},
	}

	assert.Equal(t, StageIncomplete, ResolveStage(def, instanceWithDecisions(), false))
	assert.Equal(t, StageComplete, ResolveStage(def, instanceWithDecisions(
		decision(models.RoleReviewer, models.DecisionApprove)), false))
	assert.Equal(t, StageRejected, ResolveStage(def, instanceWithDecisions(
		decision(models.RoleReviewer, models.DecisionReject)), false))
}

func TestResolveStage_RequireAllRoles(t *testing.T) {
	def := models.StageDefinition{
		Index:         0,
		Name:          "Legal and Brand",
		ApproverRoles: []models.Role{models.RoleReviewer, models.RoleBrandManager},
	}

	one := instanceWithDecisions(decision(models.RoleReviewer, models.DecisionApprove))
	assert.Equal(t, StageIncomplete, ResolveStage(def, one, true))

	both := instanceWithDecisions(
		decision(models.RoleReviewer, models.DecisionApprove),
		decision(models.RoleBrandManager, models.DecisionApprove),
	)
	assert.Equal(t, StageComplete, ResolveStage(def, both, true))

	// a reject dominates even with approvals present
	mixed := instanceWithDecisions(
		decision(models.RoleReviewer, models.DecisionApprove),
		decision(models.RoleBrandManager, models.DecisionReject),
	)
	assert.Equal(t, StageRejected, ResolveStage(def, mixed, true))
}

func TestResolveStage_NilInstance(t *testing.T) {
	def := models.StageDefinition{Index: 0, ApproverRoles: []models.Role{models.RoleReviewer}}
	assert.Equal(t, StageIncomplete, ResolveStage(def, nil, false))
}

func TestActivationSets_Sequential(t *testing.T) {
	defs := []models.StageDefinition{
		{Index: 0, Name: "Review"},
		{Index: 1, Name: "Approve"},
		{Index: 2, Name: "Sign-off"},
	}

	sets := ActivationSets(defs, false)
	assert.Equal(t, [][]int{{0}, {1}, {2}}, sets)
}

func TestActivationSets_ParallelGroup(t *testing.T) {
	group := 1
	defs := []models.StageDefinition{
		{Index: 0, Name: "Draft review"},
		{Index: 1, Name: "Legal", ParallelGroup: &group},
		{Index: 2, Name: "Brand", ParallelGroup: &group},
		{Index: 3, Name: "Final"},
	}

	sets := ActivationSets(defs, true)
	assert.Equal(t, [][]int{{0}, {1, 2}, {3}}, sets)

	// parallel groups are ignored when the template disallows them
	sets = ActivationSets(defs, false)
	assert.Equal(t, [][]int{{0}, {1}, {2}, {3}}, sets)
}

func TestNextStageIndices(t *testing.T) {
	group := 1
	defs := []models.StageDefinition{
		{Index: 0, Name: "Draft review"},
		{Index: 1, Name: "Legal", ParallelGroup: &group},
		{Index: 2, Name: "Brand", ParallelGroup: &group},
		{Index: 3, Name: "Final"},
	}

	completed := map[int]bool{}
	isDone := func(i int) bool { return completed[i] }

	next, ok := NextStageIndices(defs, isDone, true)
	assert.True(t, ok)
	assert.Equal(t, []int{0}, next)

	completed[0] = true
	next, ok = NextStageIndices(defs, isDone, true)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, next)

	// one member of the parallel set done: the other stays active
	completed[1] = true
	next, ok = NextStageIndices(defs, isDone, true)
	assert.True(t, ok)
	assert.Equal(t, []int{2}, next)

	completed[2] = true
	next, ok = NextStageIndices(defs, isDone, true)
	assert.True(t, ok)
	assert.Equal(t, []int{3}, next)

	completed[3] = true
	_, ok = NextStageIndices(defs, isDone, true)
	assert.False(t, ok)
}

func TestInitialStageIndices(t *testing.T) {
	group := 0
	defs := []models.StageDefinition{
		{Index: 0, Name: "Legal", ParallelGroup: &group},
		{Index: 1, Name: "Brand", ParallelGroup: &group},
		{Index: 2, Name: "Final"},
	}

	assert.Equal(t, []int{0, 1}, InitialStageIndices(defs, true))
	assert.Equal(t, []int{0}, InitialStageIndices(defs, false))
}
