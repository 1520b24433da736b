// Package trace provides an in-memory lifecycle sink that records run
// events in the order they were emitted
package trace

import (
	"sync"

	"github.com/atlasflow/engine/pkg/api"
)

type (
	// Entry is one recorded lifecycle event
	Entry struct {
		Type  api.EventType
		Event any
	}

	// Recorder is a Sink that appends every event to an ordered list.
	// It is safe for concurrent use
	Recorder struct {
		mu      sync.Mutex
		entries []*Entry
	}
)

// NewRecorder creates an empty trace recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RunStarted(ev *api.RunStartedEvent) error {
	r.append(api.EventTypeRunStarted, ev)
	return nil
}

func (r *Recorder) StepStarted(ev *api.StepStartedEvent) error {
	r.append(api.EventTypeStepStarted, ev)
	return nil
}

func (r *Recorder) StepFinished(et api.EventType, ev *api.StepFinishedEvent) error {
	r.append(et, ev)
	return nil
}

func (r *Recorder) RunFinished(ev *api.RunFinishedEvent) error {
	r.append(api.EventTypeRunFinished, ev)
	return nil
}

// Entries returns a copy of the recorded events in emission order
func (r *Recorder) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*Entry, len(r.entries))
	copy(res, r.entries)
	return res
}

// Types returns just the event types, in emission order
func (r *Recorder) Types() []api.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]api.EventType, len(r.entries))
	for i, e := range r.entries {
		res[i] = e.Type
	}
	return res
}

// StepEvents returns the recorded events for a single step in order
func (r *Recorder) StepEvents(id api.StepID) []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*Entry
	for _, e := range r.entries {
		switch ev := e.Event.(type) {
		case *api.StepStartedEvent:
			if ev.StepID == id {
				res = append(res, e)
			}
		case *api.StepFinishedEvent:
			if ev.Result != nil && ev.Result.StepID == id {
				res = append(res, e)
			}
		}
	}
	return res
}

func (r *Recorder) append(et api.EventType, ev any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &Entry{Type: et, Event: ev})
}

var _ api.Sink = (*Recorder)(nil)
