package events

import (
	"github.com/kode4food/timebox"

	"github.com/atlasflow/engine/pkg/api"
)

const RegistryPrefix = "registry"

var (
	// RegistryKey is the aggregate ID of the singleton run registry
	RegistryKey = timebox.NewAggregateID(RegistryPrefix)

	// RegistryAppliers contains the event appliers for the run registry
	RegistryAppliers = makeRegistryAppliers()
)

// NewRegistryState creates an empty registry state with an initialized
// run map
func NewRegistryState() *api.RegistryState {
	return &api.RegistryState{
		Runs: map[api.RunID]*api.RunInfo{},
	}
}

// IsRegistryEvent returns true if the event is for the registry aggregate
func IsRegistryEvent(ev *timebox.Event) bool {
	return len(ev.AggregateID) >= 1 && ev.AggregateID[0] == RegistryPrefix
}

func makeRegistryAppliers() timebox.Appliers[*api.RegistryState] {
	return MakeAppliers(
		map[api.EventType]timebox.Applier[*api.RegistryState]{
			api.EventTypeRunStarted:  timebox.MakeApplier(runRegistered),
			api.EventTypeRunFinished: timebox.MakeApplier(runCompleted),
		},
	)
}

func runRegistered(
	st *api.RegistryState, ev *timebox.Event, data api.RunStartedEvent,
) *api.RegistryState {
	return st.
		SetRun(data.RunID, &api.RunInfo{
			RunID:     data.RunID,
			Status:    api.RunActive,
			StartedAt: ev.Timestamp,
		}).
		SetLastUpdated(ev.Timestamp)
}

func runCompleted(
	st *api.RegistryState, ev *timebox.Event, data api.RunFinishedEvent,
) *api.RegistryState {
	info := &api.RunInfo{
		RunID:       data.RunID,
		Status:      data.Status,
		CompletedAt: ev.Timestamp,
	}
	if existing, ok := st.Runs[data.RunID]; ok {
		info.StartedAt = existing.StartedAt
	}
	return st.
		SetRun(data.RunID, info).
		SetLastUpdated(ev.Timestamp)
}
