package engine

import (
	"fmt"

	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/util"
)

// StateTransitions maps states to their set of valid next states
//
// Generic state transition tables are used to validate step and run
// status changes. A step never regresses from a terminal state
type StateTransitions[T comparable] map[T]util.Set[T]

var (
	stepTransitions = StateTransitions[api.StepStatus]{
		api.StepPending: util.SetOf(
			api.StepRunning,
			api.StepSkipped,
			api.StepBlocked,
		),
		api.StepRunning: util.SetOf(
			api.StepSuccess,
			api.StepFailed,
			api.StepSkipped,
		),
		api.StepSuccess: {},
		api.StepSkipped: {},
		api.StepFailed:  {},
		api.StepBlocked: {},
	}

	runTransitions = StateTransitions[api.RunStatus]{
		api.RunActive: util.SetOf(
			api.RunSuccess,
			api.RunPartial,
			api.RunFailed,
		),
		api.RunSuccess: {},
		api.RunPartial: {},
		api.RunFailed:  {},
	}
)

// CanTransition returns whether transition from one state to another is
// valid
func (t StateTransitions[T]) CanTransition(from, to T) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (t StateTransitions[T]) IsTerminal(state T) bool {
	allowed, ok := t[state]
	return ok && allowed.IsEmpty()
}

// transition validates and applies a step status change. A violation is
// an internal executor bug, not a step failure
func transition(
	id api.StepID, from, to api.StepStatus,
) (api.StepStatus, error) {
	if !stepTransitions.CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s %s -> %s",
			ErrInvalidTransition, id, from, to)
	}
	return to, nil
}
