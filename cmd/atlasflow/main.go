package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kode4food/timebox"

	app "github.com/atlasflow/engine"
	"github.com/atlasflow/engine/internal/archive"
	"github.com/atlasflow/engine/internal/config"
	"github.com/atlasflow/engine/internal/engine"
	"github.com/atlasflow/engine/internal/server"
	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/builder"
	"github.com/atlasflow/engine/pkg/contract"
	"github.com/atlasflow/engine/pkg/log"
)

type atlasflow struct {
	cfg        *config.Config
	timebox    *timebox.Timebox
	runStore   *timebox.Store
	contract   *contract.Contract
	archiver   *archive.BlobArchiver
	engine     *engine.Engine
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateTimebox  = errors.New("failed to create timebox")
	ErrCreateRunStore = errors.New("failed to create run store")
	ErrCreateArchiver = errors.New("failed to create archiver")
	ErrLoadContract   = errors.New("failed to load contract")
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &atlasflow{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *atlasflow) run() error {
	if err := s.initializeStores(); err != nil {
		return err
	}

	if err := s.initializeEngine(); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *atlasflow) setupLogging() {
	level, ok := log.Levels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("AtlasFlow Engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("run_redis_addr", s.cfg.RunStore.Addr),
		slog.Int("run_redis_db", s.cfg.RunStore.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *atlasflow) initializeStores() error {
	var err error

	s.timebox, err = timebox.NewTimebox(timebox.Config{
		MaxRetries: timebox.DefaultMaxRetries,
		CacheSize:  s.cfg.RunCacheSize,
		Workers:    true,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateTimebox, err)
	}

	s.runStore, err = s.timebox.NewStore(s.cfg.RunStore)
	if err != nil {
		_ = s.timebox.Close()
		return fmt.Errorf("%w: %w", ErrCreateRunStore, err)
	}

	return nil
}

func (s *atlasflow) initializeEngine() error {
	if s.cfg.ContractPath != "" {
		c, err := contract.Load(s.cfg.ContractPath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoadContract, err)
		}
		s.contract = c
	}

	steps, err := pipeline()
	if err != nil {
		return err
	}

	eng, err := engine.New(
		s.runStore, s.timebox.GetHub(), s.cfg, slog.Default(),
		steps, s.contract,
	)
	if err != nil {
		return err
	}
	s.engine = eng

	if s.cfg.ArchiveBucketURL != "" {
		a, err := archive.NewBlobArchiver(
			context.Background(), s.cfg.ArchiveBucketURL, "runs/",
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCreateArchiver, err)
		}
		s.archiver = a
		s.engine.SetArchiver(a)
	}

	s.engine.Start()
	return nil
}

// pipeline declares the steps this service executes. Handlers here are
// stand-ins; deployments replace them with real processing stages
func pipeline() (api.Steps, error) {
	return builder.NewPipeline().
		Add(
			builder.NewStep("Validate Inputs").
				WithKind(api.KindDiagnostic).
				WithHandler(noop),
			builder.NewStep("Prepare Data").
				DependsOn("validate_inputs").
				WithHandler(noop),
			builder.NewStep("Train Model").
				WithKind(api.KindTrain).
				DependsOn("prepare_data").
				WithHandler(noop),
			builder.NewStep("Evaluate Model").
				WithKind(api.KindEvaluate).
				DependsOn("train_model").
				WithHandler(noop),
			builder.NewStep("Export Artifacts").
				WithKind(api.KindExport).
				DependsOn("evaluate_model").
				WithLuaPredicate(
					`return config("export.enabled") ~= false`,
				).
				WithHandler(noop),
		).
		Build()
}

func noop(context.Context, *api.RunContext) (*api.StepResult, error) {
	return api.NewStepResult("completed"), nil
}

func (s *atlasflow) startServer() {
	s.apiServer = server.NewServer(s.engine, s.cfg, slog.Default())
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *atlasflow) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	if err := s.apiServer.Close(); err != nil {
		slog.Error("Server close failed", log.Error(err))
	}

	if err := s.engine.Stop(); err != nil {
		slog.Error("Engine shutdown failed", log.Error(err))
	}

	if s.archiver != nil {
		_ = s.archiver.Close()
	}

	_ = s.timebox.Close()

	slog.Info("Server exited")
}
