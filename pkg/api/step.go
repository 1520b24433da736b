package api

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/atlasflow/engine/pkg/util"
)

type (
	// StepKind classifies what a step contributes to a pipeline. The
	// engine never branches on kind; it exists for callers, events, and
	// reporting
	StepKind string

	// Handler is the run operation of a step. It receives the shared
	// RunContext and produces the step's result. A returned error, or a
	// panic, is normalized by the executor into a failed StepResult
	Handler func(context.Context, *RunContext) (*StepResult, error)

	// ScriptConfig declares an optional precondition script for a step
	ScriptConfig struct {
		Language string `json:"language"`
		Script   string `json:"script"`
	}

	// Step is one declared unit of work in a pipeline. A step is
	// immutable once the pipeline is handed to the engine
	Step struct {
		Predicate    *ScriptConfig `json:"predicate,omitempty"`
		ID           StepID        `json:"id"`
		Kind         StepKind      `json:"kind"`
		DependsOn    []StepID      `json:"depends_on,omitempty"`
		SkipTolerant []StepID      `json:"skip_tolerant,omitempty"`
		Handler      Handler       `json:"-"`
	}

	// Steps is an ordered collection of step declarations
	Steps []*Step
)

const (
	KindDiagnostic StepKind = "diagnostic"
	KindTransform  StepKind = "transform"
	KindTrain      StepKind = "train"
	KindEvaluate   StepKind = "evaluate"
	KindExport     StepKind = "export"
)

const ScriptLangLua = "lua"

var (
	ErrStepIDEmpty         = errors.New("step id empty")
	ErrStepHandlerNil      = errors.New("step handler nil")
	ErrInvalidStepKind     = errors.New("invalid step kind")
	ErrSelfDependency      = errors.New("step depends on itself")
	ErrSkipTolerantUnknown = errors.New(
		"skip-tolerant id is not a declared dependency",
	)
	ErrScriptLanguageEmpty = errors.New("script language empty")
	ErrScriptEmpty         = errors.New("script empty")
)

var validStepKinds = util.SetOf(
	KindDiagnostic,
	KindTransform,
	KindTrain,
	KindEvaluate,
	KindExport,
)

// ValidKind returns whether the kind is a recognized step kind
func ValidKind(k StepKind) bool {
	return validStepKinds.Contains(k)
}

// Validate checks a single step declaration for local correctness.
// Cross-step properties (referential integrity, acyclicity) are the
// validator's concern
func (s *Step) Validate() error {
	if s.ID == "" {
		return ErrStepIDEmpty
	}
	if !validStepKinds.Contains(s.Kind) {
		return fmt.Errorf("%w: %q (%s)", ErrInvalidStepKind, s.Kind, s.ID)
	}
	if s.Handler == nil {
		return fmt.Errorf("%w: %s", ErrStepHandlerNil, s.ID)
	}
	if slices.Contains(s.DependsOn, s.ID) {
		return fmt.Errorf("%w: %s", ErrSelfDependency, s.ID)
	}
	for _, dep := range s.SkipTolerant {
		if !slices.Contains(s.DependsOn, dep) {
			return fmt.Errorf("%w: %s -> %s",
				ErrSkipTolerantUnknown, s.ID, dep)
		}
	}
	return s.validatePredicate()
}

func (s *Step) validatePredicate() error {
	if s.Predicate == nil {
		return nil
	}
	if s.Predicate.Language == "" {
		return fmt.Errorf("%w: %s", ErrScriptLanguageEmpty, s.ID)
	}
	if s.Predicate.Script == "" {
		return fmt.Errorf("%w: %s", ErrScriptEmpty, s.ID)
	}
	return nil
}

// IsSkipTolerant returns whether a dependency edge tolerates a skipped
// dependency. Off by default; callers opt in per edge
func (s *Step) IsSkipTolerant(dep StepID) bool {
	return slices.Contains(s.SkipTolerant, dep)
}

// ByID indexes the steps by identity. Later duplicates are not collapsed
// here; the validator rejects them before anything uses the index
func (ss Steps) ByID() map[StepID]*Step {
	res := make(map[StepID]*Step, len(ss))
	for _, s := range ss {
		if _, ok := res[s.ID]; !ok {
			res[s.ID] = s
		}
	}
	return res
}
