package builder

import (
	"regexp"
	"slices"
	"strings"

	"github.com/atlasflow/engine/pkg/api"
)

// Step accumulates one step declaration
type Step struct {
	predicate    *api.ScriptConfig
	id           api.StepID
	kind         api.StepKind
	dependsOn    []api.StepID
	skipTolerant []api.StepID
	handler      api.Handler
}

var (
	camelCaseRegex = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	delimiterRegex = regexp.MustCompile(`[\s-]+`)
)

// NewStep creates a step builder. The name is normalized into the step's
// identity (snake_case, invalid characters stripped); WithID overrides it
func NewStep(name string) *Step {
	return &Step{
		id:   api.SanitizeID(api.StepID(toSnakeCase(name))),
		kind: api.KindTransform,
	}
}

func (s *Step) WithID(id api.StepID) *Step {
	res := *s
	res.id = id
	return &res
}

func (s *Step) WithKind(kind api.StepKind) *Step {
	res := *s
	res.kind = kind
	return &res
}

// DependsOn adds dependency edges
func (s *Step) DependsOn(deps ...api.StepID) *Step {
	res := *s
	res.dependsOn = append(slices.Clone(s.dependsOn), deps...)
	return &res
}

// TolerateSkipped marks dependency edges that remain satisfied when the
// dependency was skipped
func (s *Step) TolerateSkipped(deps ...api.StepID) *Step {
	res := *s
	res.skipTolerant = append(slices.Clone(s.skipTolerant), deps...)
	return &res
}

func (s *Step) WithPredicate(language, script string) *Step {
	res := *s
	res.predicate = &api.ScriptConfig{
		Language: language,
		Script:   script,
	}
	return &res
}

func (s *Step) WithLuaPredicate(script string) *Step {
	return s.WithPredicate(api.ScriptLangLua, script)
}

func (s *Step) WithHandler(h api.Handler) *Step {
	res := *s
	res.handler = h
	return &res
}

// Build materializes and validates the step declaration
func (s *Step) Build() (*api.Step, error) {
	step := &api.Step{
		ID:           s.id,
		Kind:         s.kind,
		DependsOn:    slices.Clone(s.dependsOn),
		SkipTolerant: slices.Clone(s.skipTolerant),
		Predicate:    s.predicate,
		Handler:      s.handler,
	}

	if err := step.Validate(); err != nil {
		return nil, err
	}
	return step, nil
}

func toSnakeCase(s string) string {
	s = camelCaseRegex.ReplaceAllString(s, "${1}_${2}")
	s = delimiterRegex.ReplaceAllString(s, "_")
	return strings.ToLower(s)
}
