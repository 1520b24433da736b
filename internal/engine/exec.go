package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/log"
	"github.com/atlasflow/engine/pkg/util"
)

type (
	// Executor drives a validated pipeline through one run. It is
	// stateless across runs and safe to share
	Executor struct {
		logger *slog.Logger
		lua    *LuaEnv
	}

	// runner carries the mutable state of one run through the executor
	runner struct {
		exec     *Executor
		rc       *api.RunContext
		opts     *api.Options
		sink     api.Sink
		byID     map[api.StepID]*api.Step
		statuses map[api.StepID]api.StepStatus
		results  map[api.StepID]*api.StepResult
		order    []api.StepID
		failed   bool
		aborted  bool
	}
)

// NewExecutor creates a pipeline executor logging through the given
// logger
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		logger: logger,
		lua:    NewLuaEnv(),
	}
}

// Run validates, plans, and executes a pipeline to completion. Structural
// and configuration problems are returned before anything executes; once
// execution starts, a complete RunResult is always produced, with every
// planned step accounted for exactly once. Step failures never surface as
// returned errors. Cancellation of ctx is honored at step boundaries
func (x *Executor) Run(
	ctx context.Context, steps api.Steps, rc *api.RunContext,
	opts *api.Options, sink api.Sink,
) (*api.RunResult, error) {
	if opts == nil {
		opts = api.DefaultOptions()
	}

	if err := Validate(steps); err != nil {
		return nil, err
	}
	if err := opts.Validate(steps); err != nil {
		return nil, err
	}
	if !opts.AllowSkip {
		for _, s := range steps {
			if !rc.StepEnabled(s.ID) {
				return nil, fmt.Errorf("%w: %s", ErrStepDisabled, s.ID)
			}
		}
	}

	order, err := Plan(steps)
	if err != nil {
		return nil, err
	}

	r := &runner{
		exec:     x,
		rc:       rc,
		opts:     opts,
		sink:     sink,
		byID:     steps.ByID(),
		statuses: make(map[api.StepID]api.StepStatus, len(order)),
		results:  make(map[api.StepID]*api.StepResult, len(order)),
		order:    order,
	}
	for _, id := range order {
		r.statuses[id] = api.StepPending
	}

	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) (*api.RunResult, error) {
	r.emitRunStarted()

	for _, id := range r.order {
		if err := ctx.Err(); err != nil {
			r.aborted = true
		}
		if err := r.settle(ctx, id); err != nil {
			return nil, err
		}
	}

	return r.finish()
}

// settle drives one step from PENDING to a terminal state, in plan order
func (r *runner) settle(ctx context.Context, id api.StepID) error {
	step := r.byID[id]

	if r.aborted {
		return r.finalize(id, api.StepBlocked,
			newCutoffResult(step, "run aborted"))
	}
	if r.failed && r.opts.FailFast {
		return r.finalize(id, api.StepBlocked,
			newCutoffResult(step, "run stopped after failure"))
	}

	if skipped, summary := r.shouldSkip(step); skipped {
		return r.finalize(id, api.StepSkipped,
			newCutoffResult(step, summary))
	}

	if blocked, summary := r.isBlocked(step); blocked {
		return r.finalize(id, api.StepBlocked,
			newCutoffResult(step, summary))
	}

	return r.execute(ctx, step)
}

// shouldSkip applies the skip policy: explicit request, configuration
// disablement, or an unmet precondition. Skips are disabled wholesale
// when the caller set AllowSkip false
func (r *runner) shouldSkip(step *api.Step) (bool, string) {
	if !r.opts.AllowSkip {
		return false, ""
	}
	if r.opts.SkipRequested(step.ID) {
		return true, "skip requested"
	}
	if !r.rc.StepEnabled(step.ID) {
		return true, "disabled by configuration"
	}
	if step.Predicate == nil {
		return false, ""
	}

	ok, err := r.exec.lua.EvaluatePredicate(step, r.rc)
	if err != nil {
		r.exec.logger.Warn("Predicate evaluation failed",
			log.StepID(step.ID), log.Error(err))
		r.rc.AddWarning(step.ID,
			fmt.Sprintf("precondition error: %s", err))
		return true, "precondition could not be evaluated"
	}
	if !ok {
		return true, "precondition not met"
	}
	return false, ""
}

// isBlocked checks the step's dependencies against the terminal statuses
// recorded so far. A skipped dependency blocks its dependents unless the
// edge was declared skip-tolerant
func (r *runner) isBlocked(step *api.Step) (bool, string) {
	for _, dep := range util.Sorted(util.SetOf(step.DependsOn...)) {
		st := r.statuses[dep]
		if st.Satisfies(step.IsSkipTolerant(dep)) {
			continue
		}
		switch st {
		case api.StepFailed:
			return true, fmt.Sprintf("blocked by failed dependency %s", dep)
		case api.StepSkipped:
			return true, fmt.Sprintf(
				"blocked by skipped dependency %s", dep)
		case api.StepBlocked:
			return true, fmt.Sprintf(
				"blocked by blocked dependency %s", dep)
		default:
			return true, fmt.Sprintf("dependency %s did not complete", dep)
		}
	}
	return false, ""
}

// execute invokes the step's run operation, normalizing returned errors
// and panics into a failed result rather than letting them escape
func (r *runner) execute(ctx context.Context, step *api.Step) error {
	if err := r.setStatus(step.ID, api.StepRunning); err != nil {
		return err
	}

	startedAt := time.Now()
	r.emitStepStarted(step, startedAt)

	sr, err := callHandler(ctx, step, r.rc)
	completedAt := time.Now()

	if err != nil {
		sr = failedResult(sr, err)
	}
	if sr == nil {
		sr = api.NewStepResult("completed")
	}
	switch sr.Status {
	case "":
		sr.Status = api.StepSuccess
	case api.StepSuccess, api.StepFailed, api.StepSkipped:
		// handler honored the contract
	default:
		sr = failedResult(sr, fmt.Errorf(
			"handler returned invalid status %q", sr.Status,
		))
	}

	sr.StepID = step.ID
	sr.Kind = step.Kind
	sr.StartedAt = startedAt
	sr.CompletedAt = completedAt
	sr.Duration = completedAt.Sub(startedAt).Milliseconds()
	sr.MergeWarnings(r.rc.WarningsFor(step.ID))

	return r.finalize(step.ID, sr.Status, sr)
}

// callHandler runs the handler with panic recovery
func callHandler(
	ctx context.Context, step *api.Step, rc *api.RunContext,
) (sr *api.StepResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sr = nil
			err = fmt.Errorf("step panicked: %v", rec)
		}
	}()
	return step.Handler(ctx, rc)
}

// finalize records a step's terminal state, enforcing the transition
// table and tripping the fail-fast latch
func (r *runner) finalize(
	id api.StepID, status api.StepStatus, sr *api.StepResult,
) error {
	if err := r.setStatus(id, status); err != nil {
		return err
	}

	sr.Status = status
	r.results[id] = sr
	if status == api.StepFailed {
		r.failed = true
	}

	r.exec.logger.Info("Step finished",
		log.RunID(r.rc.RunID),
		log.StepID(id),
		log.Status(string(status)))

	r.emitStepFinished(sr)
	return nil
}

func (r *runner) setStatus(id api.StepID, to api.StepStatus) error {
	next, err := transition(id, r.statuses[id], to)
	if err != nil {
		return err
	}
	r.statuses[id] = next
	return nil
}

// finish aggregates the per-step results into the run-level result
func (r *runner) finish() (*api.RunResult, error) {
	steps := make([]*api.StepResult, len(r.order))
	for i, id := range r.order {
		steps[i] = r.results[id]
	}

	res := &api.RunResult{
		RunID:   r.rc.RunID,
		Status:  DeriveStatus(steps, r.opts.Critical),
		Steps:   steps,
		Metrics: *Metrics(steps),
	}

	r.emitRunFinished(res)
	return res, nil
}

// newCutoffResult accounts for a step that never ran: skipped, blocked,
// or cut off by abort. It carries the same fidelity as an executed
// result, with zero duration
func newCutoffResult(step *api.Step, summary string) *api.StepResult {
	now := time.Now()
	return &api.StepResult{
		StepID:      step.ID,
		Kind:        step.Kind,
		Summary:     summary,
		StartedAt:   now,
		CompletedAt: now,
	}
}

func failedResult(sr *api.StepResult, err error) *api.StepResult {
	if sr == nil {
		sr = api.NewStepResult("step failed")
	}
	sr.Status = api.StepFailed
	return sr.WithError(&api.ErrorDetail{
		Type:    "step_execution",
		Message: err.Error(),
	})
}

func (r *runner) emitRunStarted() {
	if r.sink == nil {
		return
	}
	ev := &api.RunStartedEvent{
		RunID:      r.rc.RunID,
		Planned:    r.order,
		ConfigHash: configHash(r.rc.ConfigJSON()),
	}
	if c := r.rc.Contract(); c != nil {
		if h, err := c.Hash(); err == nil {
			ev.ContractHash = h
		}
	}
	if err := r.sink.RunStarted(ev); err != nil {
		r.logSinkError("run_started", err)
	}
}

func (r *runner) emitStepStarted(step *api.Step, startedAt time.Time) {
	if r.sink == nil {
		return
	}
	err := r.sink.StepStarted(&api.StepStartedEvent{
		RunID:     r.rc.RunID,
		StepID:    step.ID,
		Kind:      step.Kind,
		StartedAt: startedAt,
	})
	if err != nil {
		r.logSinkError("step_started", err)
	}
}

func (r *runner) emitStepFinished(sr *api.StepResult) {
	if r.sink == nil {
		return
	}
	err := r.sink.StepFinished(
		api.FinishEventType(sr.Status),
		&api.StepFinishedEvent{
			RunID:  r.rc.RunID,
			Result: sr,
		},
	)
	if err != nil {
		r.logSinkError("step_finished", err)
	}
}

func (r *runner) emitRunFinished(res *api.RunResult) {
	if r.sink == nil {
		return
	}
	err := r.sink.RunFinished(&api.RunFinishedEvent{
		RunID:   res.RunID,
		Status:  res.Status,
		Metrics: res.Metrics,
	})
	if err != nil {
		r.logSinkError("run_finished", err)
	}
}

// sink errors are logged and never fail the run
func (r *runner) logSinkError(event string, err error) {
	r.exec.logger.Error("Lifecycle sink rejected event",
		log.RunID(r.rc.RunID),
		slog.String("event", event),
		log.Error(err))
}

func configHash(config []byte) string {
	if len(config) == 0 {
		return ""
	}
	sum := sha256.Sum256(config)
	return hex.EncodeToString(sum[:])
}
