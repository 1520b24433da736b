package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kode4food/caravan/topic"
	"github.com/kode4food/timebox"

	"github.com/atlasflow/engine/internal/config"
	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/contract"
	"github.com/atlasflow/engine/pkg/events"
	"github.com/atlasflow/engine/pkg/log"
)

type (
	// Engine is the run service: it executes the registered pipeline on
	// demand, projects run state from the event store, and tracks active
	// runs for abort
	Engine struct {
		runExec      *RunExecutor
		registryExec *RegistryExecutor
		executor     *Executor
		steps        api.Steps
		contract     *contract.Contract
		config       *config.Config
		hub          timebox.EventHub
		logger       *slog.Logger
		archiver     Archiver
		ctx          context.Context
		cancel       context.CancelFunc
		wg           sync.WaitGroup
		active       sync.Map // map[api.RunID]context.CancelFunc
	}

	// Archiver persists a completed run's manifest. Archival failures are
	// logged, never fatal to the run
	Archiver interface {
		ArchiveRun(context.Context, *api.RunState) error
	}

	// EventConsumer consumes events from the event hub
	EventConsumer = topic.Consumer[*timebox.Event]

	// RunExecutor manages run state persistence and event sourcing
	RunExecutor = timebox.Executor[*api.RunState]

	// RunAggregator aggregates run state from events
	RunAggregator = timebox.Aggregator[*api.RunState]

	// RegistryExecutor manages registry state persistence
	RegistryExecutor = timebox.Executor[*api.RegistryState]

	// RegistryAggregator aggregates registry state from events
	RegistryAggregator = timebox.Aggregator[*api.RegistryState]

	// StartRequest carries the per-run inputs to StartRun
	StartRequest struct {
		Options     *api.Options
		ProfilePath string
		Overrides   config.Settings
	}
)

// New creates the run service over an event store and the pipeline it
// will execute. The pipeline is validated once here; StartRun rejects
// nothing structural afterwards
func New(
	store *timebox.Store, hub timebox.EventHub, cfg *config.Config,
	logger *slog.Logger, steps api.Steps, c *contract.Contract,
) (*Engine, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		runExec: timebox.NewExecutor(
			store, events.NewRunState, events.RunAppliers,
		),
		registryExec: timebox.NewExecutor(
			store, events.NewRegistryState, events.RegistryAppliers,
		),
		executor: NewExecutor(logger),
		steps:    steps,
		contract: c,
		config:   cfg,
		hub:      hub,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SetArchiver installs the completed-run manifest archiver
func (e *Engine) SetArchiver(a Archiver) {
	e.archiver = a
}

// Start begins accepting runs
func (e *Engine) Start() {
	e.logger.Info("Engine starting",
		slog.Int("steps", len(e.steps)))
}

// Stop cancels active runs at their next step boundary and waits for
// them to drain
func (e *Engine) Stop() error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped")
		return nil
	case <-time.After(e.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// NewConsumer returns a fresh consumer of the live event feed
func (e *Engine) NewConsumer() EventConsumer {
	return e.hub.NewConsumer()
}

// Steps returns the registered pipeline
func (e *Engine) Steps() api.Steps {
	return e.steps
}

// StartRun launches one run of the pipeline. The effective profile is
// resolved from defaults, the optional profile file, and the request's
// overrides. Structural and configuration problems are returned
// synchronously; the run itself proceeds in the background
func (e *Engine) StartRun(req *StartRequest) (api.RunID, error) {
	opts := req.Options
	if opts == nil {
		opts = api.DefaultOptions()
	}
	if err := opts.Validate(e.steps); err != nil {
		return "", err
	}

	profilePath := req.ProfilePath
	if profilePath == "" {
		profilePath = e.config.ProfilePath
	}
	profile, err := config.LoadProfile(profilePath, req.Overrides)
	if err != nil {
		return "", err
	}

	id := api.NewRunID()
	rc := api.NewRunContext(id, profile.JSON, e.contract)

	runCtx, cancelRun := context.WithCancel(e.ctx)
	e.active.Store(id, cancelRun)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancelRun()
		defer e.active.Delete(id)
		e.executeRun(runCtx, rc, opts)
	}()

	return id, nil
}

func (e *Engine) executeRun(
	ctx context.Context, rc *api.RunContext, opts *api.Options,
) {
	sink := newStoreSink(e.ctx, e.runExec, e.registryExec)

	res, err := e.executor.Run(ctx, e.steps, rc, opts, sink)
	if err != nil {
		e.logger.Error("Run rejected",
			log.RunID(rc.RunID), log.Error(err))
		return
	}

	e.logger.Info("Run finished",
		log.RunID(rc.RunID),
		log.Status(res.Status))

	e.archive(rc.RunID)
}

func (e *Engine) archive(id api.RunID) {
	if e.archiver == nil {
		return
	}

	st, err := e.GetRunState(e.ctx, id)
	if err != nil {
		e.logger.Error("Failed to load run for archival",
			log.RunID(id), log.Error(err))
		return
	}
	if err := e.archiver.ArchiveRun(e.ctx, st); err != nil {
		e.logger.Error("Failed to archive run",
			log.RunID(id), log.Error(err))
	}
}

// AbortRun requests cancellation of an active run. The abort takes
// effect at the next step boundary; remaining steps are finalized as
// blocked so the run result stays complete
func (e *Engine) AbortRun(ctx context.Context, id api.RunID) error {
	if cancelRun, ok := e.active.Load(id); ok {
		cancelRun.(context.CancelFunc)()
		return nil
	}

	st, err := e.GetRunState(ctx, id)
	if err != nil {
		return err
	}
	if st.Status.IsTerminal() {
		return ErrRunNotActive
	}
	return ErrRunNotFound
}

// GetRunState retrieves the event-sourced projection of one run
func (e *Engine) GetRunState(
	ctx context.Context, id api.RunID,
) (*api.RunState, error) {
	st, err := e.runExec.Exec(ctx, events.RunKey(id),
		func(st *api.RunState, _ *RunAggregator) error {
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	if st.ID == "" {
		return nil, ErrRunNotFound
	}
	return st, nil
}

// GetRunResult materializes the run-level result for one run
func (e *Engine) GetRunResult(
	ctx context.Context, id api.RunID,
) (*api.RunResult, error) {
	st, err := e.GetRunState(ctx, id)
	if err != nil {
		return nil, err
	}
	return st.Result(), nil
}

// ListRuns returns registry info for all known runs, most recent first
func (e *Engine) ListRuns(ctx context.Context) ([]*api.RunInfo, error) {
	st, err := e.registryExec.Exec(ctx, events.RegistryKey,
		func(st *api.RegistryState, _ *RegistryAggregator) error {
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*api.RunInfo, 0, len(st.Runs))
	for _, info := range st.Runs {
		res = append(res, info)
	}
	slices.SortFunc(res, func(l, r *api.RunInfo) int {
		return r.StartedAt.Compare(l.StartedAt)
	})
	return res, nil
}
