package sim

import (
	"flowsim/internal/model"
	"flowsim/internal/rational"
)

// heapElement is a zipper-merge priority queue entry: (priority, edge_id,
// queue_id) per spec.md §4.2, ordered as a max-heap with ties broken by the
// smaller edge_id. Grounded on the teacher's dijkstra.go priorityQueueItem,
// inverted for "largest first" instead of "smallest first".
type heapElement struct {
	priority rational.Fraction
	edgeID   model.EdgeID
	queueID  int
}

// streamHeap implements container/heap.Interface as a max-heap over
// heapElement, largest priority first and smaller edgeID breaking ties.
type streamHeap []heapElement

func (h streamHeap) Len() int { return len(h) }

func (h streamHeap) Less(i, j int) bool {
	// max-heap: i is "less" (pops before j) when i has the larger priority
	c := h[i].priority.Cmp(h[j].priority)
	if c != 0 {
		return c > 0
	}
	// tie-break: smaller edge_id dispatches first, i.e. sorts "less" here
	return h[i].edgeID < h[j].edgeID
}

func (h streamHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *streamHeap) Push(x any) {
	*h = append(*h, x.(heapElement))
}

func (h *streamHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
