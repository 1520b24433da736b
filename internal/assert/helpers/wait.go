package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/pkg/api"
)

// DefaultTimeout bounds how long tests wait for a run to settle
const DefaultTimeout = 5 * time.Second

// AwaitRun polls until the run reaches a terminal status and returns
// its final state
func (env *TestEngineEnv) AwaitRun(
	t *testing.T, id api.RunID,
) *api.RunState {
	t.Helper()
	var st *api.RunState
	assert.Eventually(t, func() bool {
		var err error
		st, err = env.Engine.GetRunState(context.Background(), id)
		return err == nil && st.Status.IsTerminal()
	}, DefaultTimeout, 20*time.Millisecond)
	return st
}

// AwaitResult waits for the run to settle and returns its result
func (env *TestEngineEnv) AwaitResult(
	t *testing.T, id api.RunID,
) *api.RunResult {
	t.Helper()
	env.AwaitRun(t, id)
	res, err := env.Engine.GetRunResult(context.Background(), id)
	assert.NoError(t, err)
	return res
}
