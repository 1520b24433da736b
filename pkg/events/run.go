package events

import (
	"github.com/kode4food/timebox"

	"github.com/atlasflow/engine/pkg/api"
)

const RunPrefix = "run"

// RunAppliers contains the event applier functions for run events
var RunAppliers = makeRunAppliers()

// NewRunState creates an empty run state with an initialized result map
func NewRunState() *api.RunState {
	return &api.RunState{
		Results: map[api.StepID]*api.StepResult{},
	}
}

// RunKey returns the aggregate ID for a run
func RunKey(runID api.RunID) timebox.AggregateID {
	return timebox.NewAggregateID(RunPrefix, timebox.ID(runID))
}

// IsRunEvent returns true if the event belongs to a run aggregate
func IsRunEvent(ev *timebox.Event) bool {
	return len(ev.AggregateID) >= 2 && ev.AggregateID[0] == RunPrefix
}

func makeRunAppliers() timebox.Appliers[*api.RunState] {
	return MakeAppliers(map[api.EventType]timebox.Applier[*api.RunState]{
		api.EventTypeRunStarted:   timebox.MakeApplier(runStarted),
		api.EventTypeRunFinished:  timebox.MakeApplier(runFinished),
		api.EventTypeStepStarted:  timebox.MakeApplier(stepStarted),
		api.EventTypeStepFinished: timebox.MakeApplier(stepFinished),
		api.EventTypeStepFailed:   timebox.MakeApplier(stepFinished),
		api.EventTypeStepSkipped:  timebox.MakeApplier(stepFinished),
		api.EventTypeStepBlocked:  timebox.MakeApplier(stepFinished),
	})
}

func runStarted(
	_ *api.RunState, ev *timebox.Event, data api.RunStartedEvent,
) *api.RunState {
	return &api.RunState{
		ID:           data.RunID,
		Status:       api.RunActive,
		Planned:      data.Planned,
		Results:      map[api.StepID]*api.StepResult{},
		ConfigHash:   data.ConfigHash,
		ContractHash: data.ContractHash,
		CreatedAt:    ev.Timestamp,
		LastUpdated:  ev.Timestamp,
	}
}

func runFinished(
	st *api.RunState, ev *timebox.Event, data api.RunFinishedEvent,
) *api.RunState {
	return st.
		SetStatus(data.Status).
		SetMetrics(&data.Metrics).
		SetTraceRef(data.TraceRef).
		SetCompletedAt(ev.Timestamp).
		SetLastUpdated(ev.Timestamp)
}

func stepStarted(
	st *api.RunState, ev *timebox.Event, data api.StepStartedEvent,
) *api.RunState {
	return st.
		SetResult(data.StepID, &api.StepResult{
			StepID:    data.StepID,
			Kind:      data.Kind,
			Status:    api.StepRunning,
			StartedAt: data.StartedAt,
		}).
		SetLastUpdated(ev.Timestamp)
}

func stepFinished(
	st *api.RunState, ev *timebox.Event, data api.StepFinishedEvent,
) *api.RunState {
	return st.
		SetResult(data.Result.StepID, data.Result).
		SetLastUpdated(ev.Timestamp)
}
