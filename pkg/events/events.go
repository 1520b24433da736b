// Package events defines the event-sourced aggregates behind the engine:
// one aggregate per run, plus a registry aggregate indexing all runs
package events

import (
	"github.com/kode4food/timebox"

	"github.com/atlasflow/engine/pkg/api"
)

func MakeAppliers[T any](
	app map[api.EventType]timebox.Applier[T],
) timebox.Appliers[T] {
	res := map[timebox.EventType]timebox.Applier[T]{}
	for et, fn := range app {
		res[timebox.EventType(et)] = fn
	}
	return res
}

// Raise raises an event through the aggregator
func Raise[T, E any](
	ag *timebox.Aggregator[T], eventType api.EventType, event E,
) error {
	return timebox.Raise(ag, timebox.EventType(eventType), event)
}
