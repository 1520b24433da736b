package trace_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/trace"
)

func TestRecorderOrdering(t *testing.T) {
	rec := trace.NewRecorder()

	assert.NoError(t, rec.RunStarted(&api.RunStartedEvent{
		RunID:   "run-1",
		Planned: []api.StepID{"load"},
	}))
	assert.NoError(t, rec.StepStarted(&api.StepStartedEvent{
		RunID:     "run-1",
		StepID:    "load",
		StartedAt: time.Now(),
	}))
	assert.NoError(t, rec.StepFinished(
		api.EventTypeStepFinished,
		&api.StepFinishedEvent{
			RunID:  "run-1",
			Result: &api.StepResult{StepID: "load", Status: api.StepSuccess},
		},
	))
	assert.NoError(t, rec.RunFinished(&api.RunFinishedEvent{
		RunID:  "run-1",
		Status: api.RunSuccess,
	}))

	assert.Equal(t, []api.EventType{
		api.EventTypeRunStarted,
		api.EventTypeStepStarted,
		api.EventTypeStepFinished,
		api.EventTypeRunFinished,
	}, rec.Types())
}

func TestStepEvents(t *testing.T) {
	rec := trace.NewRecorder()

	assert.NoError(t, rec.StepStarted(&api.StepStartedEvent{
		RunID: "run-1", StepID: "load",
	}))
	assert.NoError(t, rec.StepStarted(&api.StepStartedEvent{
		RunID: "run-1", StepID: "train",
	}))
	assert.NoError(t, rec.StepFinished(
		api.EventTypeStepFailed,
		&api.StepFinishedEvent{
			RunID:  "run-1",
			Result: &api.StepResult{StepID: "train", Status: api.StepFailed},
		},
	))

	events := rec.StepEvents("train")
	assert.Len(t, events, 2)
	assert.Equal(t, api.EventTypeStepStarted, events[0].Type)
	assert.Equal(t, api.EventTypeStepFailed, events[1].Type)
}
