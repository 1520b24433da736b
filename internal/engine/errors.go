package engine

import (
	"errors"

	"github.com/atlasflow/engine/pkg/api"
)

var (
	ErrInvalidTransition = errors.New("invalid step status transition")
	ErrRunAborted        = errors.New("run aborted")
	ErrRunNotFound       = errors.New("run not found")
	ErrRunExists         = errors.New("run already exists")
	ErrRunNotActive      = errors.New("run is not active")
	ErrShutdownTimeout   = errors.New("shutdown timeout exceeded")
	ErrStepDisabled      = errors.New(
		"step disabled by configuration but skips are not allowed",
	)
)

// IsStructural reports whether an error was raised by graph validation:
// the pipeline was rejected before any step executed
func IsStructural(err error) bool {
	return errors.Is(err, api.ErrDuplicateStepID) ||
		errors.Is(err, api.ErrUnknownDependency) ||
		errors.Is(err, api.ErrDependencyCycle) ||
		errors.Is(err, api.ErrStepIDEmpty) ||
		errors.Is(err, api.ErrStepHandlerNil) ||
		errors.Is(err, api.ErrInvalidStepKind) ||
		errors.Is(err, api.ErrSelfDependency) ||
		errors.Is(err, api.ErrSkipTolerantUnknown) ||
		errors.Is(err, api.ErrScriptLanguageEmpty) ||
		errors.Is(err, api.ErrScriptEmpty)
}

// IsConfiguration reports whether an error stems from invalid or
// contradictory execution options, checked at run start
func IsConfiguration(err error) bool {
	return errors.Is(err, api.ErrSkipNotAllowed) ||
		errors.Is(err, api.ErrSkipUnknownStep) ||
		errors.Is(err, ErrStepDisabled)
}

// IsInvariant reports whether an error is an internal consistency
// violation inside the executor, distinguished from ordinary step
// failures and always fatal
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
