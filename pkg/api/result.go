package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type (
	// ErrorDetail is a structured, serializable account of a step
	// failure. Raw stack traces never ride on results; the detail map
	// carries whatever the step or executor deems actionable
	ErrorDetail struct {
		Type    string         `json:"type"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
		Hint    string         `json:"hint,omitempty"`
	}

	// ArtifactRef is a lightweight reference to an artifact a step
	// produced into the run's registry
	ArtifactRef struct {
		Key    string `json:"key"`
		Bytes  int64  `json:"bytes,omitempty"`
		SHA256 string `json:"sha256,omitempty"`
	}

	// StepResult is the terminal record of one step. Exactly one is
	// produced per planned step, whether it executed, was skipped, or
	// was blocked
	StepResult struct {
		StartedAt   time.Time      `json:"started_at"`
		CompletedAt time.Time      `json:"completed_at"`
		StepID      StepID         `json:"step_id"`
		Kind        StepKind       `json:"kind"`
		Status      StepStatus     `json:"status"`
		Summary     string         `json:"summary"`
		Duration    int64          `json:"duration,omitempty"`
		Warnings    []string       `json:"warnings,omitempty"`
		Errors      []*ErrorDetail `json:"errors,omitempty"`
		Artifacts   []ArtifactRef  `json:"artifacts,omitempty"`
		Payload     map[string]any `json:"payload,omitempty"`
	}

	// RunMetrics aggregates step outcomes for one run
	RunMetrics struct {
		Succeeded  int   `json:"succeeded"`
		Failed     int   `json:"failed"`
		Skipped    int   `json:"skipped"`
		Blocked    int   `json:"blocked"`
		DurationMs int64 `json:"duration_ms"`
	}

	// RunResult is the complete account of one run: one StepResult per
	// planned step, in execution order
	RunResult struct {
		RunID    RunID         `json:"run_id"`
		Status   RunStatus     `json:"status"`
		Steps    []*StepResult `json:"steps"`
		Metrics  RunMetrics    `json:"metrics"`
		TraceRef string        `json:"trace_ref,omitempty"`
	}
)

// NewStepResult creates a result shell for a step handler to fill in.
// Identity, status, and timing are stamped by the executor
func NewStepResult(summary string) *StepResult {
	return &StepResult{
		Summary: summary,
		Payload: map[string]any{},
	}
}

// WithPayload sets a payload entry on the result
func (r *StepResult) WithPayload(key string, value any) *StepResult {
	if r.Payload == nil {
		r.Payload = map[string]any{}
	}
	r.Payload[key] = value
	return r
}

// WithWarning appends a warning message to the result
func (r *StepResult) WithWarning(msg string) *StepResult {
	r.Warnings = append(r.Warnings, msg)
	return r
}

// WithArtifact records a reference to a produced artifact
func (r *StepResult) WithArtifact(ref ArtifactRef) *StepResult {
	r.Artifacts = append(r.Artifacts, ref)
	return r
}

// WithError appends a structured error to the result
func (r *StepResult) WithError(detail *ErrorDetail) *StepResult {
	r.Errors = append(r.Errors, detail)
	return r
}

// MergeWarnings appends messages not already present on the result
func (r *StepResult) MergeWarnings(msgs []string) {
	seen := make(map[string]bool, len(r.Warnings))
	for _, w := range r.Warnings {
		seen[w] = true
	}
	for _, m := range msgs {
		if !seen[m] {
			r.Warnings = append(r.Warnings, m)
			seen[m] = true
		}
	}
}

// PayloadMeta computes a traceability reference for the result payload:
// its canonical serialized size and digest
func (r *StepResult) PayloadMeta() (ArtifactRef, error) {
	raw, err := json.Marshal(r.Payload)
	if err != nil {
		return ArtifactRef{}, err
	}
	sum := sha256.Sum256(raw)
	return ArtifactRef{
		Key:    "payload_meta",
		Bytes:  int64(len(raw)),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

// Step returns the result for the given step, if present
func (r *RunResult) Step(id StepID) (*StepResult, bool) {
	for _, sr := range r.Steps {
		if sr.StepID == id {
			return sr, true
		}
	}
	return nil, false
}
