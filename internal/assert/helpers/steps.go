package helpers

import (
	"context"
	"sync"

	"github.com/atlasflow/engine/pkg/api"
)

// Recorder captures the order in which step handlers actually ran
type Recorder struct {
	mu    sync.Mutex
	order []api.StepID
}

func (r *Recorder) record(id api.StepID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
}

// Order returns the recorded invocation order
func (r *Recorder) Order() []api.StepID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.StepID{}, r.order...)
}

// NewSimpleStep creates a transform step with a no-op handler
func NewSimpleStep(id api.StepID, deps ...api.StepID) *api.Step {
	return &api.Step{
		ID:        id,
		Kind:      api.KindTransform,
		DependsOn: deps,
		Handler: func(
			context.Context, *api.RunContext,
		) (*api.StepResult, error) {
			return api.NewStepResult("completed"), nil
		},
	}
}

// NewFailingStep creates a step whose handler always returns err
func NewFailingStep(
	id api.StepID, err error, deps ...api.StepID,
) *api.Step {
	return &api.Step{
		ID:        id,
		Kind:      api.KindTransform,
		DependsOn: deps,
		Handler: func(
			context.Context, *api.RunContext,
		) (*api.StepResult, error) {
			return nil, err
		},
	}
}

// NewRecordingStep creates a step that records its invocation order
func NewRecordingStep(
	id api.StepID, rec *Recorder, deps ...api.StepID,
) *api.Step {
	return &api.Step{
		ID:        id,
		Kind:      api.KindTransform,
		DependsOn: deps,
		Handler: func(
			context.Context, *api.RunContext,
		) (*api.StepResult, error) {
			rec.record(id)
			return api.NewStepResult("completed"), nil
		},
	}
}

// NewStepWithHandler creates a transform step with a custom handler
func NewStepWithHandler(
	id api.StepID, h api.Handler, deps ...api.StepID,
) *api.Step {
	return &api.Step{
		ID:        id,
		Kind:      api.KindTransform,
		DependsOn: deps,
		Handler:   h,
	}
}
