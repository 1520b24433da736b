package engine

import (
	"container/heap"

	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/util"
)

// Plan computes the single deterministic execution order for a step set
// using incoming-edge elimination, breaking ties between equally eligible
// steps by ascending identity. The same step set always yields the same
// order regardless of insertion order. A cycle surfaces as a CycleError
// even when Plan is invoked without prior validation
func Plan(steps api.Steps) ([]api.StepID, error) {
	byID := steps.ByID()

	inDegree := make(map[api.StepID]int, len(steps))
	dependents := make(map[api.StepID][]api.StepID, len(steps))
	for _, s := range steps {
		if _, ok := inDegree[s.ID]; !ok {
			inDegree[s.ID] = 0
		}
		for _, dep := range util.Sorted(util.SetOf(s.DependsOn...)) {
			if _, ok := byID[dep]; !ok {
				continue
			}
			inDegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	ready := &idHeap{}
	for _, id := range sortedIDs(steps) {
		if inDegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	order := make([]api.StepID, 0, len(steps))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(api.StepID)
		order = append(order, id)
		for _, next := range dependents[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) < len(inDegree) {
		if err := checkAcyclic(steps); err != nil {
			return nil, err
		}
		return nil, &api.CycleError{}
	}
	return order, nil
}

// idHeap is a min-heap of step identities, yielding the lexicographically
// smallest eligible step first
type idHeap []api.StepID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(api.StepID)) }

func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	id := old[n-1]
	*h = old[:n-1]
	return id
}
