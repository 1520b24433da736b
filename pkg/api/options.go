package api

import (
	"errors"
	"fmt"
	"slices"
)

// Options are the caller-supplied execution policies for one run. They
// are engine inputs, never engine state
type Options struct {
	// Critical reports whether a step's non-success forces the run
	// status to failed. Nil treats every step as critical
	Critical func(StepID) bool `json:"-"`

	// Skip lists steps to skip without invoking them
	Skip []StepID `json:"skip,omitempty"`

	// FailFast stops launching new steps after the first failure
	FailFast bool `json:"fail_fast"`

	// AllowSkip permits steps to be skipped by request, configuration,
	// or predicate. When disabled, any would-be skip is rejected before
	// the run starts
	AllowSkip bool `json:"allow_skip"`
}

var (
	ErrSkipNotAllowed = errors.New(
		"step skip requested while allow_skip is disabled",
	)
	ErrSkipUnknownStep = errors.New("skip names an unknown step")
)

// DefaultOptions returns the default execution policy: fail fast, skips
// permitted, every step critical
func DefaultOptions() *Options {
	return &Options{
		FailFast:  true,
		AllowSkip: true,
	}
}

// Validate rejects contradictory execution options
func (o *Options) Validate(steps Steps) error {
	if !o.AllowSkip && len(o.Skip) > 0 {
		return fmt.Errorf("%w: %v", ErrSkipNotAllowed, o.Skip)
	}

	byID := steps.ByID()
	for _, id := range o.Skip {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: %s", ErrSkipUnknownStep, id)
		}
	}
	return nil
}

// IsCritical applies the critical predicate, defaulting to critical
func (o *Options) IsCritical(id StepID) bool {
	if o.Critical == nil {
		return true
	}
	return o.Critical(id)
}

// SkipRequested returns whether the caller explicitly requested a skip
func (o *Options) SkipRequested(id StepID) bool {
	return slices.Contains(o.Skip, id)
}
