package events

import (
	"github.com/kode4food/timebox"

	"github.com/atlasflow/engine/pkg/api"
)

// EventFilter decides whether a consumed event should be delivered
type EventFilter func(*timebox.Event) bool

func FilterEvents(eventTypes ...timebox.EventType) EventFilter {
	lookup := map[timebox.EventType]bool{}
	for _, et := range eventTypes {
		lookup[et] = true
	}
	return func(ev *timebox.Event) bool {
		return lookup[ev.Type]
	}
}

func FilterRun(runID api.RunID) EventFilter {
	return func(ev *timebox.Event) bool {
		if !IsRunEvent(ev) {
			return false
		}
		return ev.AggregateID[1] == timebox.ID(runID)
	}
}

func AndFilters(filters ...EventFilter) EventFilter {
	return func(ev *timebox.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}
