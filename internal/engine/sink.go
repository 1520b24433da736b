package engine

import (
	"context"

	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/events"
	"github.com/atlasflow/engine/pkg/util/call"
)

// storeSink is the durable lifecycle sink: every event the executor
// emits is raised against the run's aggregate, and run boundaries are
// mirrored onto the registry aggregate. Per-step ordering is preserved
// because the executor emits sequentially
type storeSink struct {
	ctx      context.Context
	runs     *RunExecutor
	registry *RegistryExecutor
}

func newStoreSink(
	ctx context.Context, runs *RunExecutor, registry *RegistryExecutor,
) *storeSink {
	return &storeSink{
		ctx:      ctx,
		runs:     runs,
		registry: registry,
	}
}

func (s *storeSink) RunStarted(ev *api.RunStartedEvent) error {
	return call.Perform(
		func() error {
			return s.raiseRun(ev.RunID, api.EventTypeRunStarted, ev)
		},
		func() error {
			return s.raiseRegistry(api.EventTypeRunStarted, ev)
		},
	)
}

func (s *storeSink) StepStarted(ev *api.StepStartedEvent) error {
	return s.raiseRun(ev.RunID, api.EventTypeStepStarted, ev)
}

func (s *storeSink) StepFinished(
	et api.EventType, ev *api.StepFinishedEvent,
) error {
	return s.raiseRun(ev.RunID, et, ev)
}

func (s *storeSink) RunFinished(ev *api.RunFinishedEvent) error {
	return call.Perform(
		func() error {
			return s.raiseRun(ev.RunID, api.EventTypeRunFinished, ev)
		},
		func() error {
			return s.raiseRegistry(api.EventTypeRunFinished, ev)
		},
	)
}

func (s *storeSink) raiseRun(
	id api.RunID, et api.EventType, ev any,
) error {
	_, err := s.runs.Exec(s.ctx, events.RunKey(id),
		func(_ *api.RunState, ag *RunAggregator) error {
			return events.Raise(ag, et, ev)
		},
	)
	return err
}

func (s *storeSink) raiseRegistry(et api.EventType, ev any) error {
	_, err := s.registry.Exec(s.ctx, events.RegistryKey,
		func(_ *api.RegistryState, ag *RegistryAggregator) error {
			return events.Raise(ag, et, ev)
		},
	)
	return err
}

var _ api.Sink = (*storeSink)(nil)
