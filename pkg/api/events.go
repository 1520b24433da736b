package api

import "time"

type (
	// EventType identifies a lifecycle event in the run trace
	EventType string

	// RunStartedEvent opens a run's lifecycle trace
	RunStartedEvent struct {
		RunID        RunID    `json:"run_id"`
		Planned      []StepID `json:"planned"`
		ConfigHash   string   `json:"config_hash,omitempty"`
		ContractHash string   `json:"contract_hash,omitempty"`
	}

	// RunFinishedEvent closes a run's lifecycle trace
	RunFinishedEvent struct {
		RunID    RunID      `json:"run_id"`
		Status   RunStatus  `json:"status"`
		Metrics  RunMetrics `json:"metrics"`
		TraceRef string     `json:"trace_ref,omitempty"`
	}

	// StepStartedEvent marks a step entering execution
	StepStartedEvent struct {
		StartedAt time.Time `json:"started_at"`
		RunID     RunID     `json:"run_id"`
		StepID    StepID    `json:"step_id"`
		Kind      StepKind  `json:"kind"`
	}

	// StepFinishedEvent carries the full StepResult of a step reaching a
	// terminal state
	StepFinishedEvent struct {
		RunID  RunID       `json:"run_id"`
		Result *StepResult `json:"result"`
	}

	// Sink receives ordered lifecycle events for durable persistence.
	// The engine guarantees per-step ordering: a step's started event
	// strictly precedes its finish event. The sink owns the persisted
	// format; sink errors are logged by the executor and never fail a
	// run
	Sink interface {
		RunStarted(*RunStartedEvent) error
		StepStarted(*StepStartedEvent) error
		StepFinished(EventType, *StepFinishedEvent) error
		RunFinished(*RunFinishedEvent) error
	}
)

const (
	EventTypeRunStarted   EventType = "run_started"
	EventTypeRunFinished  EventType = "run_finished"
	EventTypeStepStarted  EventType = "step_started"
	EventTypeStepFinished EventType = "step_finished"
	EventTypeStepFailed   EventType = "step_failed"
	EventTypeStepSkipped  EventType = "step_skipped"
	EventTypeStepBlocked  EventType = "step_blocked"
)

// FinishEventType maps a terminal step status to its lifecycle event type
func FinishEventType(s StepStatus) EventType {
	switch s {
	case StepFailed:
		return EventTypeStepFailed
	case StepSkipped:
		return EventTypeStepSkipped
	case StepBlocked:
		return EventTypeStepBlocked
	default:
		return EventTypeStepFinished
	}
}
