package hnsw

import "container/heap"

// candidate is one node visited during a beam search: its id and
// distance to the query that produced it.
type candidate struct {
	id       uint32
	distance float32
}

// farthestFirst orders candidates by descending distance, so its Top
// is the worst of the current best-ef set — used to decide whether a
// newly visited node displaces it.
type farthestFirst struct {
	items []*candidate
}

func newFarthestFirst(capacityHint int) *farthestFirst {
	return &farthestFirst{items: make([]*candidate, 0, capacityHint)}
}

func (h *farthestFirst) Len() int { return len(h.items) }
func (h *farthestFirst) Less(i, j int) bool {
	return h.items[i].distance > h.items[j].distance
}
func (h *farthestFirst) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *farthestFirst) Push(x interface{}) {
	h.items = append(h.items, x.(*candidate))
}
func (h *farthestFirst) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (h *farthestFirst) push(c *candidate) { heap.Push(h, c) }
func (h *farthestFirst) pop() *candidate {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*candidate)
}
func (h *farthestFirst) top() *candidate {
	if h.Len() == 0 {
		return nil
	}
	return h.items[0]
}

// nearestFirst orders candidates by ascending distance: the frontier
// of nodes still to expand during a beam search.
type nearestFirst struct {
	items []*candidate
}

func newNearestFirst(capacityHint int) *nearestFirst {
	return &nearestFirst{items: make([]*candidate, 0, capacityHint)}
}

func (h *nearestFirst) Len() int { return len(h.items) }
func (h *nearestFirst) Less(i, j int) bool {
	return h.items[i].distance < h.items[j].distance
}
func (h *nearestFirst) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *nearestFirst) Push(x interface{}) {
	h.items = append(h.items, x.(*candidate))
}
func (h *nearestFirst) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (h *nearestFirst) push(c *candidate) { heap.Push(h, c) }
func (h *nearestFirst) pop() *candidate {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*candidate)
}
