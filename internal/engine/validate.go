package engine

import (
	"fmt"
	"slices"

	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/util"
)

// Validate performs the structural check of a pipeline: every step is
// locally valid, identities are unique, every dependency resolves, and
// the dependency relation is acyclic. It has no side effects and runs
// nothing
func Validate(steps api.Steps) error {
	seen := util.Set[api.StepID]{}
	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen.Contains(s.ID) {
			return fmt.Errorf("%w: %s", api.ErrDuplicateStepID, s.ID)
		}
		seen.Add(s.ID)
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if !seen.Contains(dep) {
				return fmt.Errorf("%w: %s (required by %s)",
					api.ErrUnknownDependency, dep, s.ID)
			}
		}
	}

	return checkAcyclic(steps)
}

// checkAcyclic runs a depth-first traversal over the dependency edges.
// On detecting a back edge it reports the full cycle sequence
func checkAcyclic(steps api.Steps) error {
	byID := steps.ByID()
	done := util.Set[api.StepID]{}
	onPath := util.Set[api.StepID]{}
	var path []api.StepID

	var visit func(id api.StepID) error
	visit = func(id api.StepID) error {
		if done.Contains(id) {
			return nil
		}
		if onPath.Contains(id) {
			start := slices.Index(path, id)
			cycle := append(slices.Clone(path[start:]), id)
			return &api.CycleError{Cycle: cycle}
		}

		step, ok := byID[id]
		if !ok {
			return nil
		}

		onPath.Add(id)
		path = append(path, id)
		for _, dep := range util.Sorted(util.SetOf(step.DependsOn...)) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onPath.Remove(id)
		done.Add(id)
		return nil
	}

	for _, id := range sortedIDs(steps) {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(steps api.Steps) []api.StepID {
	ids := make([]api.StepID, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	slices.Sort(ids)
	return ids
}
