package api

type (
	// StepStatus is the lifecycle state of one step execution
	StepStatus string

	// RunStatus is the aggregate state of one pipeline run
	RunStatus string
)

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
	StepBlocked StepStatus = "blocked"
)

const (
	RunActive  RunStatus = "active"
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// IsTerminal returns whether a step status is terminal
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepSuccess, StepSkipped, StepFailed, StepBlocked:
		return true
	}
	return false
}

// Satisfies returns whether this dependency status allows a dependent to
// start. Skipped satisfies only when the dependent declared the edge
// skip-tolerant
func (s StepStatus) Satisfies(skipTolerant bool) bool {
	if s == StepSuccess {
		return true
	}
	return s == StepSkipped && skipTolerant
}

// IsTerminal returns whether a run status is terminal
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunSuccess, RunPartial, RunFailed:
		return true
	}
	return false
}
