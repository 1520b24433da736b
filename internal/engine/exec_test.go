package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/internal/engine"
	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func failingStep(id api.StepID, deps ...api.StepID) *api.Step {
	s := step(id, deps...)
	s.Handler = func(
		_ context.Context, _ *api.RunContext,
	) (*api.StepResult, error) {
		return nil, errors.New("boom")
	}
	return s
}

func recordingStep(
	invoked *[]api.StepID, id api.StepID, deps ...api.StepID,
) *api.Step {
	s := step(id, deps...)
	s.Handler = func(
		_ context.Context, _ *api.RunContext,
	) (*api.StepResult, error) {
		*invoked = append(*invoked, id)
		return api.NewStepResult("ok"), nil
	}
	return s
}

func runPipeline(
	t *testing.T, steps api.Steps, rc *api.RunContext, opts *api.Options,
) (*api.RunResult, *trace.Recorder) {
	t.Helper()
	rec := trace.NewRecorder()
	x := engine.NewExecutor(discardLogger())
	res, err := x.Run(context.Background(), steps, rc, opts, rec)
	assert.NoError(t, err)
	assert.NotNil(t, res)
	return res, rec
}

func statusOf(
	t *testing.T, res *api.RunResult, id api.StepID,
) api.StepStatus {
	t.Helper()
	sr, ok := res.Step(id)
	assert.True(t, ok)
	return sr.Status
}

func TestRunAllSucceed(t *testing.T) {
	rc := api.NewRunContext("run-1", nil, nil)
	res, rec := runPipeline(t, api.Steps{
		step("load"),
		step("clean", "load"),
		step("export", "clean"),
	}, rc, nil)

	assert.Equal(t, api.RunSuccess, res.Status)
	assert.Len(t, res.Steps, 3)
	assert.Equal(t,
		[]api.StepID{"load", "clean", "export"},
		[]api.StepID{
			res.Steps[0].StepID, res.Steps[1].StepID, res.Steps[2].StepID,
		},
	)
	assert.Equal(t, 3, res.Metrics.Succeeded)

	// strictly ordered timestamps along the chain
	assert.False(t,
		res.Steps[1].StartedAt.Before(res.Steps[0].CompletedAt),
	)
	assert.False(t,
		res.Steps[2].StartedAt.Before(res.Steps[1].CompletedAt),
	)

	// per-step event pairs, start strictly preceding finish
	for _, id := range []api.StepID{"load", "clean", "export"} {
		events := rec.StepEvents(id)
		assert.Len(t, events, 2)
		assert.Equal(t, api.EventTypeStepStarted, events[0].Type)
		assert.Equal(t, api.EventTypeStepFinished, events[1].Type)
	}

	types := rec.Types()
	assert.Equal(t, api.EventTypeRunStarted, types[0])
	assert.Equal(t, api.EventTypeRunFinished, types[len(types)-1])
}

func TestRunFailFast(t *testing.T) {
	rc := api.NewRunContext("run-1", nil, nil)
	res, _ := runPipeline(t, api.Steps{
		failingStep("a"),
		step("b", "a"),
		step("c", "a"),
	}, rc, nil)

	assert.Equal(t, api.RunFailed, res.Status)
	assert.Equal(t, api.StepFailed, statusOf(t, res, "a"))
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "b"))
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "c"))
}

func TestRunContinueOnFailure(t *testing.T) {
	var invoked []api.StepID
	rc := api.NewRunContext("run-1", nil, nil)

	opts := api.DefaultOptions()
	opts.FailFast = false
	opts.Critical = func(id api.StepID) bool { return id == "d" }

	res, _ := runPipeline(t, api.Steps{
		failingStep("a"),
		step("b", "a"),
		step("c", "a"),
		recordingStep(&invoked, "d"),
	}, rc, opts)

	assert.Equal(t, api.StepFailed, statusOf(t, res, "a"))
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "b"))
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "c"))
	assert.Equal(t, api.StepSuccess, statusOf(t, res, "d"))
	assert.Equal(t, []api.StepID{"d"}, invoked)

	// only non-critical steps fell short
	assert.Equal(t, api.RunPartial, res.Status)
}

func TestRunDisabledStepSkipped(t *testing.T) {
	var invoked []api.StepID
	rc := api.NewRunContext("run-1",
		[]byte(`{"steps":{"clean":{"enabled":false}}}`), nil)

	opts := api.DefaultOptions()
	opts.Critical = func(api.StepID) bool { return false }

	res, _ := runPipeline(t, api.Steps{
		recordingStep(&invoked, "load"),
		recordingStep(&invoked, "clean", "load"),
		recordingStep(&invoked, "export", "clean"),
	}, rc, opts)

	assert.Equal(t, api.StepSuccess, statusOf(t, res, "load"))
	assert.Equal(t, api.StepSkipped, statusOf(t, res, "clean"))
	// skipped does not satisfy the dependency by default
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "export"))
	assert.Equal(t, []api.StepID{"load"}, invoked)
	assert.Equal(t, api.RunPartial, res.Status)
}

func TestRunSkipTolerantEdge(t *testing.T) {
	rc := api.NewRunContext("run-1",
		[]byte(`{"steps":{"clean":{"enabled":false}}}`), nil)

	tolerant := step("export", "clean")
	tolerant.SkipTolerant = []api.StepID{"clean"}

	opts := api.DefaultOptions()
	opts.Critical = func(id api.StepID) bool { return id == "export" }

	res, _ := runPipeline(t, api.Steps{
		step("load"),
		step("clean", "load"),
		tolerant,
	}, rc, opts)

	assert.Equal(t, api.StepSkipped, statusOf(t, res, "clean"))
	assert.Equal(t, api.StepSuccess, statusOf(t, res, "export"))
	assert.Equal(t, api.RunPartial, res.Status)
}

func TestRunExplicitSkip(t *testing.T) {
	var invoked []api.StepID
	rc := api.NewRunContext("run-1", nil, nil)

	opts := api.DefaultOptions()
	opts.Skip = []api.StepID{"audit"}
	opts.Critical = func(id api.StepID) bool { return id != "audit" }

	res, _ := runPipeline(t, api.Steps{
		recordingStep(&invoked, "audit"),
		recordingStep(&invoked, "train"),
	}, rc, opts)

	assert.Equal(t, api.StepSkipped, statusOf(t, res, "audit"))
	assert.Equal(t, api.StepSuccess, statusOf(t, res, "train"))
	assert.NotContains(t, invoked, api.StepID("audit"))
	assert.Equal(t, api.RunPartial, res.Status)
}

func TestRunPredicateSkip(t *testing.T) {
	rc := api.NewRunContext("run-1",
		[]byte(`{"train":{"enabled_rows":10}}`), nil)

	gated := step("train")
	gated.Predicate = &api.ScriptConfig{
		Language: api.ScriptLangLua,
		Script:   `return config("train.enabled_rows") >= 100`,
	}

	opts := api.DefaultOptions()
	opts.Critical = func(api.StepID) bool { return false }

	res, _ := runPipeline(t, api.Steps{gated}, rc, opts)

	sr, ok := res.Step("train")
	assert.True(t, ok)
	assert.Equal(t, api.StepSkipped, sr.Status)
	assert.Equal(t, "precondition not met", sr.Summary)
}

func TestRunPanicNormalized(t *testing.T) {
	panicking := step("boomer")
	panicking.Handler = func(
		_ context.Context, _ *api.RunContext,
	) (*api.StepResult, error) {
		panic("unexpected")
	}

	rc := api.NewRunContext("run-1", nil, nil)
	res, _ := runPipeline(t, api.Steps{panicking}, rc, nil)

	sr, ok := res.Step("boomer")
	assert.True(t, ok)
	assert.Equal(t, api.StepFailed, sr.Status)
	assert.Len(t, sr.Errors, 1)
	assert.Contains(t, sr.Errors[0].Message, "panicked")
	assert.Equal(t, api.RunFailed, res.Status)
}

func TestRunInvalidHandlerStatusNormalized(t *testing.T) {
	rogue := step("rogue")
	rogue.Handler = func(
		_ context.Context, _ *api.RunContext,
	) (*api.StepResult, error) {
		return &api.StepResult{Status: api.StepBlocked}, nil
	}

	rc := api.NewRunContext("run-1", nil, nil)
	res, _ := runPipeline(t, api.Steps{rogue, step("after", "rogue")}, rc, nil)

	sr, ok := res.Step("rogue")
	assert.True(t, ok)
	assert.Equal(t, api.StepFailed, sr.Status)
	assert.Len(t, sr.Errors, 1)
	assert.Contains(t, sr.Errors[0].Message, "invalid status")
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "after"))
	assert.Equal(t, api.RunFailed, res.Status)
}

func TestRunStructuralRejection(t *testing.T) {
	x := engine.NewExecutor(discardLogger())
	rc := api.NewRunContext("run-1", nil, nil)

	_, err := x.Run(context.Background(), api.Steps{
		step("a"), step("a"),
	}, rc, nil, nil)
	assert.ErrorIs(t, err, api.ErrDuplicateStepID)
	assert.True(t, engine.IsStructural(err))
}

func TestRunConfigurationRejection(t *testing.T) {
	x := engine.NewExecutor(discardLogger())
	rc := api.NewRunContext("run-1", nil, nil)

	opts := api.DefaultOptions()
	opts.AllowSkip = false
	opts.Skip = []api.StepID{"a"}

	_, err := x.Run(
		context.Background(), api.Steps{step("a")}, rc, opts, nil,
	)
	assert.ErrorIs(t, err, api.ErrSkipNotAllowed)
	assert.True(t, engine.IsConfiguration(err))
}

func TestRunDisabledWithSkipsDisallowed(t *testing.T) {
	x := engine.NewExecutor(discardLogger())
	rc := api.NewRunContext("run-1",
		[]byte(`{"steps":{"a":{"enabled":false}}}`), nil)

	opts := api.DefaultOptions()
	opts.AllowSkip = false

	_, err := x.Run(
		context.Background(), api.Steps{step("a")}, rc, opts, nil,
	)
	assert.ErrorIs(t, err, engine.ErrStepDisabled)
	assert.True(t, engine.IsConfiguration(err))
}

func TestRunAbortAtStepBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := step("a")
	first.Handler = func(
		_ context.Context, _ *api.RunContext,
	) (*api.StepResult, error) {
		cancel()
		return api.NewStepResult("ok"), nil
	}

	rc := api.NewRunContext("run-1", nil, nil)
	x := engine.NewExecutor(discardLogger())
	res, err := x.Run(ctx, api.Steps{
		first,
		step("b", "a"),
		step("c", "a"),
	}, rc, nil, nil)
	assert.NoError(t, err)

	// the running step finished; everything after was cut off
	assert.Equal(t, api.StepSuccess, statusOf(t, res, "a"))
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "b"))
	assert.Equal(t, api.StepBlocked, statusOf(t, res, "c"))
	assert.Len(t, res.Steps, 3)
}

func TestRunWarningsMerged(t *testing.T) {
	warned := step("load")
	warned.Handler = func(
		_ context.Context, rc *api.RunContext,
	) (*api.StepResult, error) {
		rc.AddWarning("load", "3 rows dropped")
		return api.NewStepResult("loaded"), nil
	}

	rc := api.NewRunContext("run-1", nil, nil)
	res, _ := runPipeline(t, api.Steps{warned}, rc, nil)

	sr, ok := res.Step("load")
	assert.True(t, ok)
	assert.Equal(t, []string{"3 rows dropped"}, sr.Warnings)
}

func TestRunArtifactHandoff(t *testing.T) {
	producer := step("load")
	producer.Handler = func(
		_ context.Context, rc *api.RunContext,
	) (*api.StepResult, error) {
		rc.SetArtifact("rows", 42)
		return api.NewStepResult("loaded"), nil
	}

	var got any
	consumer := step("train", "load")
	consumer.Handler = func(
		_ context.Context, rc *api.RunContext,
	) (*api.StepResult, error) {
		got, _ = rc.GetArtifact("rows")
		return api.NewStepResult("trained"), nil
	}

	rc := api.NewRunContext("run-1", nil, nil)
	res, _ := runPipeline(t, api.Steps{producer, consumer}, rc, nil)

	assert.Equal(t, api.RunSuccess, res.Status)
	assert.Equal(t, 42, got)
}
