package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type (
	// RunID is a unique identifier for a pipeline run
	RunID string

	// StepID is a unique identifier for a step within a pipeline
	StepID string
)

// InvalidIDChars matches characters not permitted in run and step IDs.
// Valid characters are: letters, digits, underscore, dot, hyphen, plus,
// space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// NewRunID generates a fresh run identifier
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
