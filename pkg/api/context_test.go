package api_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/pkg/api"
)

var testConfig = []byte(`{
	"engine": {"fail_fast": false},
	"steps": {
		"train": {"enabled": false},
		"export": {"enabled": true}
	}
}`)

func TestConfigValue(t *testing.T) {
	rc := api.NewRunContext("run-1", testConfig, nil)

	assert.False(t, rc.ConfigValue("engine.fail_fast").Bool())
	assert.False(t, rc.ConfigValue("engine.missing").Exists())
	assert.True(t, rc.ConfigBool("engine.missing", true))
	assert.False(t, rc.ConfigBool("engine.fail_fast", true))
}

func TestStepEnabled(t *testing.T) {
	rc := api.NewRunContext("run-1", testConfig, nil)

	assert.False(t, rc.StepEnabled("train"))
	assert.True(t, rc.StepEnabled("export"))
	assert.True(t, rc.StepEnabled("undeclared"))
}

func TestArtifactRegistry(t *testing.T) {
	rc := api.NewRunContext("run-1", nil, nil)

	_, ok := rc.GetArtifact("frame")
	assert.False(t, ok)

	rc.SetArtifact("frame", []int{1, 2, 3})
	assert.True(t, rc.HasArtifact("frame"))

	v, ok := rc.GetArtifact("frame")
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, v)
}

func TestArtifactRegistryConcurrent(t *testing.T) {
	rc := api.NewRunContext("run-1", nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rc.SetArtifact("shared", n)
			rc.HasArtifact("shared")
		}(i)
	}
	wg.Wait()

	assert.True(t, rc.HasArtifact("shared"))
}

func TestWarnings(t *testing.T) {
	rc := api.NewRunContext("run-1", nil, nil)

	assert.Empty(t, rc.WarningsFor("clean"))

	rc.AddWarning("clean", "4 nulls imputed")
	rc.AddWarning("clean", "1 duplicate dropped")
	assert.Equal(t,
		[]string{"4 nulls imputed", "1 duplicate dropped"},
		rc.WarningsFor("clean"))

	// returned slice is a copy
	ws := rc.WarningsFor("clean")
	ws[0] = "mutated"
	assert.Equal(t, "4 nulls imputed", rc.WarningsFor("clean")[0])
}
