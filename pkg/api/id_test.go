package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/pkg/api"
)

func TestNewRunID(t *testing.T) {
	first := api.NewRunID()
	second := api.NewRunID()
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t,
		api.StepID("load-raw-data"), api.SanitizeID(api.StepID("Load Raw Data")),
	)
	assert.Equal(t,
		api.StepID("train.v2"), api.SanitizeID(api.StepID("Train.V2!!")),
	)
	assert.Equal(t,
		api.RunID("nightly-run"), api.SanitizeID(api.RunID(" Nightly Run ")),
	)
}
