package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/atlasflow/engine/pkg/contract"
)

// RunContext is the mutable container shared by all steps of one run. It
// carries the effective configuration, the validated contract, and the
// artifact registry steps use to hand derived data forward. A RunContext
// is created fresh per run, owned by that run, and never reused.
//
// The artifact registry is safe for concurrent access; ownership is
// single-writer-per-key by convention
type RunContext struct {
	mu        sync.RWMutex
	RunID     RunID
	CreatedAt time.Time
	config    []byte
	contract  *contract.Contract
	artifacts map[string]any
	warnings  map[StepID][]string
}

// NewRunContext creates the state container for one run. The config is
// the merged effective configuration as JSON; the contract has already
// been validated by its loader
func NewRunContext(
	id RunID, configJSON []byte, c *contract.Contract,
) *RunContext {
	return &RunContext{
		RunID:     id,
		CreatedAt: time.Now(),
		config:    configJSON,
		contract:  c,
		artifacts: map[string]any{},
		warnings:  map[StepID][]string{},
	}
}

// ConfigJSON returns the effective configuration document
func (rc *RunContext) ConfigJSON() []byte {
	return rc.config
}

// ConfigValue resolves a dotted path into the effective configuration
func (rc *RunContext) ConfigValue(path string) gjson.Result {
	return gjson.GetBytes(rc.config, path)
}

// ConfigBool resolves a boolean configuration value with a default for
// absent paths
func (rc *RunContext) ConfigBool(path string, def bool) bool {
	v := rc.ConfigValue(path)
	if !v.Exists() {
		return def
	}
	return v.Bool()
}

// StepEnabled reports whether configuration leaves the step enabled.
// Steps are enabled unless steps.<id>.enabled is explicitly false
func (rc *RunContext) StepEnabled(id StepID) bool {
	return rc.ConfigBool(fmt.Sprintf("steps.%s.enabled", id), true)
}

// Contract returns the validated contract for this run
func (rc *RunContext) Contract() *contract.Contract {
	return rc.contract
}

// SetArtifact registers a derived value under a logical key
func (rc *RunContext) SetArtifact(key string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.artifacts[key] = value
}

// GetArtifact retrieves a registered artifact
func (rc *RunContext) GetArtifact(key string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.artifacts[key]
	return v, ok
}

// HasArtifact reports whether a key is registered
func (rc *RunContext) HasArtifact(key string) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	_, ok := rc.artifacts[key]
	return ok
}

// AddWarning records a warning against a step. Warnings are merged into
// that step's result when it completes
func (rc *RunContext) AddWarning(id StepID, msg string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.warnings[id] = append(rc.warnings[id], msg)
}

// WarningsFor returns the warnings recorded against a step
func (rc *RunContext) WarningsFor(id StepID) []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	res := make([]string, len(rc.warnings[id]))
	copy(res, rc.warnings[id])
	return res
}
