package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/pkg/api"
)

func TestStepTransitions(t *testing.T) {
	assert.True(t,
		stepTransitions.CanTransition(api.StepPending, api.StepRunning),
	)
	assert.True(t,
		stepTransitions.CanTransition(api.StepPending, api.StepBlocked),
	)
	assert.True(t,
		stepTransitions.CanTransition(api.StepRunning, api.StepFailed),
	)

	// no regression out of a terminal state
	assert.False(t,
		stepTransitions.CanTransition(api.StepSuccess, api.StepRunning),
	)
	assert.False(t,
		stepTransitions.CanTransition(api.StepFailed, api.StepPending),
	)
	assert.False(t,
		stepTransitions.CanTransition(api.StepBlocked, api.StepRunning),
	)
}

func TestStepTransitionsTerminal(t *testing.T) {
	assert.True(t, stepTransitions.IsTerminal(api.StepSuccess))
	assert.True(t, stepTransitions.IsTerminal(api.StepSkipped))
	assert.True(t, stepTransitions.IsTerminal(api.StepFailed))
	assert.True(t, stepTransitions.IsTerminal(api.StepBlocked))
	assert.False(t, stepTransitions.IsTerminal(api.StepPending))
	assert.False(t, stepTransitions.IsTerminal(api.StepRunning))
}

func TestRunTransitions(t *testing.T) {
	assert.True(t,
		runTransitions.CanTransition(api.RunActive, api.RunSuccess),
	)
	assert.True(t,
		runTransitions.CanTransition(api.RunActive, api.RunPartial),
	)
	assert.False(t,
		runTransitions.CanTransition(api.RunFailed, api.RunActive),
	)
	assert.True(t, runTransitions.IsTerminal(api.RunSuccess))
}

func TestTransitionInvariant(t *testing.T) {
	_, err := transition("x", api.StepSuccess, api.StepRunning)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, IsInvariant(err))

	next, err := transition("x", api.StepPending, api.StepRunning)
	assert.NoError(t, err)
	assert.Equal(t, api.StepRunning, next)
}
