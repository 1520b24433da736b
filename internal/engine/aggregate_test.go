package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/internal/engine"
	"github.com/atlasflow/engine/pkg/api"
)

func results(statuses map[api.StepID]api.StepStatus) []*api.StepResult {
	res := make([]*api.StepResult, 0, len(statuses))
	for id, st := range statuses {
		res = append(res, &api.StepResult{
			StepID:   id,
			Status:   st,
			Duration: 10,
		})
	}
	return res
}

func TestDeriveStatusSuccess(t *testing.T) {
	status := engine.DeriveStatus(results(map[api.StepID]api.StepStatus{
		"a": api.StepSuccess,
		"b": api.StepSuccess,
	}), nil)
	assert.Equal(t, api.RunSuccess, status)
}

func TestDeriveStatusCriticalFailure(t *testing.T) {
	status := engine.DeriveStatus(results(map[api.StepID]api.StepStatus{
		"a": api.StepFailed,
		"b": api.StepSuccess,
	}), nil)
	assert.Equal(t, api.RunFailed, status)
}

func TestDeriveStatusNonCriticalFailure(t *testing.T) {
	status := engine.DeriveStatus(results(map[api.StepID]api.StepStatus{
		"audit": api.StepFailed,
		"train": api.StepSuccess,
	}), func(id api.StepID) bool {
		return id != "audit"
	})
	assert.Equal(t, api.RunPartial, status)
}

func TestDeriveStatusSkippedIsPartial(t *testing.T) {
	status := engine.DeriveStatus(results(map[api.StepID]api.StepStatus{
		"a": api.StepSuccess,
		"b": api.StepSkipped,
	}), nil)
	assert.Equal(t, api.RunPartial, status)
}

func TestDeriveStatusEmpty(t *testing.T) {
	assert.Equal(t, api.RunSuccess, engine.DeriveStatus(nil, nil))
}

func TestMetrics(t *testing.T) {
	m := engine.Metrics(results(map[api.StepID]api.StepStatus{
		"a": api.StepSuccess,
		"b": api.StepSuccess,
		"c": api.StepFailed,
		"d": api.StepSkipped,
		"e": api.StepBlocked,
	}))

	assert.Equal(t, 2, m.Succeeded)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, 1, m.Skipped)
	assert.Equal(t, 1, m.Blocked)
	assert.Equal(t, int64(50), m.DurationMs)
}
