package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/pkg/api"
)

func twoSteps() api.Steps {
	return api.Steps{
		{ID: "a", Kind: api.KindTransform, Handler: noopHandler},
		{ID: "b", Kind: api.KindTrain, Handler: noopHandler},
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := api.DefaultOptions()
	assert.True(t, opts.FailFast)
	assert.True(t, opts.AllowSkip)
	assert.True(t, opts.IsCritical("anything"))
}

func TestOptionsValidate(t *testing.T) {
	opts := api.DefaultOptions()
	opts.Skip = []api.StepID{"b"}
	assert.NoError(t, opts.Validate(twoSteps()))

	opts.AllowSkip = false
	assert.ErrorIs(t, opts.Validate(twoSteps()), api.ErrSkipNotAllowed)

	opts = api.DefaultOptions()
	opts.Skip = []api.StepID{"ghost"}
	assert.ErrorIs(t, opts.Validate(twoSteps()), api.ErrSkipUnknownStep)
}

func TestCriticalPredicate(t *testing.T) {
	opts := api.DefaultOptions()
	opts.Critical = func(id api.StepID) bool { return id != "audit" }

	assert.True(t, opts.IsCritical("train"))
	assert.False(t, opts.IsCritical("audit"))
}

func TestSkipRequested(t *testing.T) {
	opts := api.DefaultOptions()
	opts.Skip = []api.StepID{"export"}
	assert.True(t, opts.SkipRequested("export"))
	assert.False(t, opts.SkipRequested("train"))
}
