package helpers

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kode4food/timebox"
	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/internal/config"
	"github.com/atlasflow/engine/internal/engine"
	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/log"
)

// TestEngineEnv holds the components needed for engine testing
type TestEngineEnv struct {
	Engine  *engine.Engine
	Redis   *miniredis.Miniredis
	Config  *config.Config
	Hub     timebox.EventHub
	Cleanup func()
}

// NewTestConfig creates a default configuration suitable for tests
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// NewTestEngine creates a fully configured engine over an in-memory
// Redis backend, running the given pipeline
func NewTestEngine(t *testing.T, steps api.Steps) *TestEngineEnv {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	tb, err := timebox.NewTimebox(timebox.Config{
		MaxRetries: timebox.DefaultMaxRetries,
		CacheSize:  100,
	})
	assert.NoError(t, err)

	cfg := NewTestConfig()
	cfg.RunStore.Addr = server.Addr()
	cfg.RunStore.Prefix = "test-run"

	store, err := tb.NewStore(cfg.RunStore)
	assert.NoError(t, err)

	hub := tb.GetHub()
	eng, err := engine.New(
		store, hub, cfg, log.Discard(), steps, nil,
	)
	assert.NoError(t, err)
	eng.Start()

	cleanup := func() {
		_ = eng.Stop()
		_ = tb.Close()
		server.Close()
	}

	return &TestEngineEnv{
		Engine:  eng,
		Redis:   server,
		Config:  cfg,
		Hub:     hub,
		Cleanup: cleanup,
	}
}

// WithTestEnv runs a test function against a fresh engine environment
// and guarantees cleanup
func WithTestEnv(
	t *testing.T, steps api.Steps, fn func(*TestEngineEnv),
) {
	t.Helper()
	env := NewTestEngine(t, steps)
	defer env.Cleanup()
	fn(env)
}
