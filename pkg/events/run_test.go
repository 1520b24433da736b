package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kode4food/timebox"
	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/events"
)

func runEvent(
	t *testing.T, id api.RunID, et api.EventType, data any, ts time.Time,
) *timebox.Event {
	t.Helper()
	encoded, err := json.Marshal(data)
	assert.NoError(t, err)
	return &timebox.Event{
		Timestamp:   ts,
		AggregateID: events.RunKey(id),
		Type:        timebox.EventType(et),
		Data:        encoded,
	}
}

func TestNewRunState(t *testing.T) {
	state := events.NewRunState()

	assert.NotNil(t, state)
	assert.NotNil(t, state.Results)
	assert.Empty(t, state.Results)
}

func TestIsRunEvent(t *testing.T) {
	runEv := &timebox.Event{AggregateID: events.RunKey("test-run")}
	regEv := &timebox.Event{AggregateID: events.RegistryKey}

	assert.True(t, events.IsRunEvent(runEv))
	assert.False(t, events.IsRunEvent(regEv))
	assert.True(t, events.IsRegistryEvent(regEv))
	assert.False(t, events.IsRegistryEvent(runEv))
}

func TestRunStarted(t *testing.T) {
	now := time.Now()
	ev := runEvent(t, "test-run", api.EventTypeRunStarted,
		api.RunStartedEvent{
			RunID:      "test-run",
			Planned:    []api.StepID{"load", "train"},
			ConfigHash: "abc123",
		}, now,
	)

	applier := events.RunAppliers[ev.Type]
	result := applier(events.NewRunState(), ev)

	assert.Equal(t, api.RunID("test-run"), result.ID)
	assert.Equal(t, api.RunActive, result.Status)
	assert.Equal(t, []api.StepID{"load", "train"}, result.Planned)
	assert.Equal(t, "abc123", result.ConfigHash)
	assert.True(t, result.CreatedAt.Equal(now))
}

func TestStepLifecycle(t *testing.T) {
	now := time.Now()
	state := events.NewRunState()

	started := runEvent(t, "test-run", api.EventTypeStepStarted,
		api.StepStartedEvent{
			RunID:     "test-run",
			StepID:    "load",
			Kind:      api.KindTransform,
			StartedAt: now,
		}, now,
	)
	state = events.RunAppliers[started.Type](state, started)

	assert.Equal(t, api.StepRunning, state.Results["load"].Status)

	finished := runEvent(t, "test-run", api.EventTypeStepFinished,
		api.StepFinishedEvent{
			RunID: "test-run",
			Result: &api.StepResult{
				StepID:  "load",
				Status:  api.StepSuccess,
				Summary: "loaded 100 rows",
			},
		}, now.Add(time.Second),
	)
	state = events.RunAppliers[finished.Type](state, finished)

	assert.Equal(t, api.StepSuccess, state.Results["load"].Status)
	assert.Equal(t, "loaded 100 rows", state.Results["load"].Summary)
}

func TestStepFailedApplied(t *testing.T) {
	now := time.Now()
	state := events.NewRunState()

	failed := runEvent(t, "test-run", api.EventTypeStepFailed,
		api.StepFinishedEvent{
			RunID: "test-run",
			Result: &api.StepResult{
				StepID: "train",
				Status: api.StepFailed,
			},
		}, now,
	)
	state = events.RunAppliers[failed.Type](state, failed)

	assert.Equal(t, api.StepFailed, state.Results["train"].Status)
}

func TestRunFinished(t *testing.T) {
	now := time.Now()
	state := events.NewRunState().SetStatus(api.RunActive)

	finished := runEvent(t, "test-run", api.EventTypeRunFinished,
		api.RunFinishedEvent{
			RunID:  "test-run",
			Status: api.RunSuccess,
			Metrics: api.RunMetrics{
				Succeeded: 2,
			},
		}, now,
	)
	state = events.RunAppliers[finished.Type](state, finished)

	assert.Equal(t, api.RunSuccess, state.Status)
	assert.NotNil(t, state.Metrics)
	assert.Equal(t, 2, state.Metrics.Succeeded)
	assert.True(t, state.CompletedAt.Equal(now))
}

func TestRegistryLifecycle(t *testing.T) {
	now := time.Now()
	state := events.NewRegistryState()

	started := &timebox.Event{
		Timestamp:   now,
		AggregateID: events.RegistryKey,
		Type:        timebox.EventType(api.EventTypeRunStarted),
	}
	data, err := json.Marshal(api.RunStartedEvent{RunID: "test-run"})
	assert.NoError(t, err)
	started.Data = data
	state = events.RegistryAppliers[started.Type](state, started)

	assert.Len(t, state.Runs, 1)
	assert.Equal(t, api.RunActive, state.Runs["test-run"].Status)

	later := now.Add(time.Minute)
	finished := &timebox.Event{
		Timestamp:   later,
		AggregateID: events.RegistryKey,
		Type:        timebox.EventType(api.EventTypeRunFinished),
	}
	data, err = json.Marshal(api.RunFinishedEvent{
		RunID:  "test-run",
		Status: api.RunPartial,
	})
	assert.NoError(t, err)
	finished.Data = data
	state = events.RegistryAppliers[finished.Type](state, finished)

	assert.Equal(t, api.RunPartial, state.Runs["test-run"].Status)
	assert.True(t, state.Runs["test-run"].StartedAt.Equal(now))
	assert.True(t, state.Runs["test-run"].CompletedAt.Equal(later))
}
