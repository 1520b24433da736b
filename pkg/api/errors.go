package api

import (
	"errors"
	"strings"
)

// Structural errors are raised by validation before any step executes.
// They are never partially applied: a pipeline either passes validation
// completely or nothing runs
var (
	ErrDuplicateStepID   = errors.New("duplicate step id")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrDependencyCycle   = errors.New("dependency cycle")
)

// CycleError reports a dependency cycle, enumerating the full cycle
// sequence in traversal order
type CycleError struct {
	Cycle []StepID
}

func (e *CycleError) Error() string {
	ids := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		ids[i] = string(id)
	}
	return "dependency cycle: " + strings.Join(ids, " -> ")
}

// Is answers errors.Is against the cycle sentinel
func (e *CycleError) Is(target error) bool {
	return target == ErrDependencyCycle
}
