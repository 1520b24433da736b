package builder

import (
	"slices"

	"github.com/atlasflow/engine/pkg/api"
)

// Pipeline accumulates step declarations into a pipeline
type Pipeline struct {
	steps []*Step
}

// NewPipeline creates an empty pipeline builder
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add appends a step declaration to the pipeline
func (p *Pipeline) Add(steps ...*Step) *Pipeline {
	res := *p
	res.steps = append(slices.Clone(p.steps), steps...)
	return &res
}

// Build materializes every step and returns the pipeline in declaration
// order. The first declaration error aborts the build; cross-step
// structure is the engine validator's concern
func (p *Pipeline) Build() (api.Steps, error) {
	res := make(api.Steps, 0, len(p.steps))
	for _, sb := range p.steps {
		step, err := sb.Build()
		if err != nil {
			return nil, err
		}
		res = append(res, step)
	}
	return res, nil
}
