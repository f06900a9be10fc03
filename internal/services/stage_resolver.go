package services

import (
	"workflow-service/internal/models"
)

// StageOutcome is the result of resolving one stage against its recorded
// decisions
type StageOutcome int

const (
	// StageIncomplete means the quorum rule is not yet satisfied
	StageIncomplete StageOutcome = iota
	// StageComplete means the quorum rule is satisfied
	StageComplete
	// StageRejected means at least one reject decision was recorded
	StageRejected
)

// ResolveStage decides a single stage. requireAll means every role in the
// stage's approver set needs an approve decision from a holder of that
// role; otherwise the first qualifying approve completes the stage. A
// single reject always dominates.
func ResolveStage(def models.StageDefinition, inst *models.StageInstance, requireAll bool) StageOutcome {
	if inst == nil {
		return StageIncomplete
	}
	if inst.HasRejection() {
		return StageRejected
	}

	if !requireAll {
		if inst.ApproveCount() > 0 {
			return StageComplete
		}
		return StageIncomplete
	}

	if len(def.ApproverRoles) == 0 {
		// legacy open stage: unanimity degenerates to any approval
		if inst.ApproveCount() > 0 {
			return StageComplete
		}
		return StageIncomplete
	}

	approved := inst.ApprovedRoles()
	for _, role := range def.ApproverRoles {
		if !approved[role] {
			return StageIncomplete
		}
	}
	return StageComplete
}

// ActivationSets orders the template's stages into activation sets: each
// sequential stage is its own set, and consecutive stages sharing a
// parallel group form one set that activates together. Parallel grouping
// is honored only when the template allows it.
func ActivationSets(defs []models.StageDefinition, allowParallel bool) [][]int {
	var sets [][]int
	for i := 0; i < len(defs); {
		group := defs[i].ParallelGroup
		if !allowParallel || group == nil {
			sets = append(sets, []int{defs[i].Index})
			i++
			continue
		}
		set := []int{defs[i].Index}
		j := i + 1
		for j < len(defs) && defs[j].ParallelGroup != nil && *defs[j].ParallelGroup == *group {
			set = append(set, defs[j].Index)
			j++
		}
		sets = append(sets, set)
		i = j
	}
	return sets
}

// NextStageIndices returns the stage indices that should be active given
// which stages are already completed: the not-yet-completed members of the
// first activation set with any incomplete member. ok is false when every
// stage is complete.
func NextStageIndices(defs []models.StageDefinition, completed func(index int) bool, allowParallel bool) (indices []int, ok bool) {
	for _, set := range ActivationSets(defs, allowParallel) {
		var remaining []int
		for _, idx := range set {
			if !completed(idx) {
				remaining = append(remaining, idx)
			}
		}
		if len(remaining) > 0 {
			return remaining, true
		}
	}
	return nil, false
}

// InitialStageIndices returns the first activation set of a template
func InitialStageIndices(defs []models.StageDefinition, allowParallel bool) []int {
	indices, _ := NextStageIndices(defs, func(int) bool { return false }, allowParallel)
	return indices
}
