package api

import "encoding/json"

type (
	// ErrorResponse is the uniform error body for the HTTP API
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// HealthResponse reports service liveness and store reachability
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
		Store   string `json:"store"`
	}

	// StartRunRequest is the HTTP surface of the run options: overrides
	// are merged over the run profile, and NonCritical names the steps
	// excluded from the critical predicate
	StartRunRequest struct {
		Overrides   map[string]any `json:"overrides,omitempty"`
		Profile     string         `json:"profile,omitempty"`
		Skip        []StepID       `json:"skip,omitempty"`
		NonCritical []StepID       `json:"non_critical,omitempty"`
		FailFast    *bool          `json:"fail_fast,omitempty"`
		AllowSkip   *bool          `json:"allow_skip,omitempty"`
	}

	// RunStartedResponse acknowledges an accepted run
	RunStartedResponse struct {
		RunID RunID `json:"run_id"`
	}

	// RunsListResponse lists registry info for known runs
	RunsListResponse struct {
		Runs  []*RunInfo `json:"runs"`
		Count int        `json:"count"`
	}

	// StepsListResponse lists the registered pipeline's declarations
	StepsListResponse struct {
		Steps Steps `json:"steps"`
		Count int   `json:"count"`
	}

	// PlanResponse is the planner's preview of the execution order
	PlanResponse struct {
		Order []StepID `json:"order"`
	}

	// SubscribeRequest is a websocket client's event subscription
	SubscribeRequest struct {
		Type       string      `json:"type"`
		RunID      RunID       `json:"run_id,omitempty"`
		EventTypes []EventType `json:"event_types,omitempty"`
	}

	// WebSocketEvent is one lifecycle event streamed to a websocket
	// client
	WebSocketEvent struct {
		Type        EventType       `json:"type"`
		Data        json.RawMessage `json:"data"`
		Timestamp   int64           `json:"timestamp"`
		AggregateID []string        `json:"aggregate_id"`
		Sequence    int64           `json:"sequence"`
	}
)

// Options converts the request into execution options
func (r *StartRunRequest) Options() *Options {
	opts := DefaultOptions()
	opts.Skip = r.Skip
	if r.FailFast != nil {
		opts.FailFast = *r.FailFast
	}
	if r.AllowSkip != nil {
		opts.AllowSkip = *r.AllowSkip
	}
	if len(r.NonCritical) > 0 {
		nonCritical := make(map[StepID]bool, len(r.NonCritical))
		for _, id := range r.NonCritical {
			nonCritical[id] = true
		}
		opts.Critical = func(id StepID) bool {
			return !nonCritical[id]
		}
	}
	return opts
}
