// Package idscore defines the (id, score) result pair shared by every
// search path in this module and a bounded max-heap for collecting the
// k best of them. Adapted from the teacher's internal/util MaxHeap
// (container/heap wrapper over a candidate slice), generalized to the
// id/score ordering this module's results use: primarily ascending by
// score (smaller is more similar, matching the distance kernels'
// convention), ties broken by ascending id.
package idscore

import "container/heap"

// IdWithScore pairs a result's document id with its distance score.
// Ordering (via Less) is ascending by Score, then ascending by ID.
type IdWithScore struct {
	ID    uint64
	Score float32
}

// Less reports whether a sorts before b under this module's canonical
// ordering.
func Less(a, b IdWithScore) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID < b.ID
}

// BoundedMaxHeap retains the k smallest-scoring entries seen via Push,
// evicting the current worst (largest score) in O(log k) once full.
// Draining with Drain returns the retained entries sorted ascending —
// the same convention Search results use throughout this module.
type BoundedMaxHeap struct {
	capacity int
	items    maxHeapSlice
}

// NewBoundedMaxHeap returns a heap that retains at most capacity
// entries. A capacity of zero yields a heap that retains nothing.
func NewBoundedMaxHeap(capacity int) *BoundedMaxHeap {
	return &BoundedMaxHeap{capacity: capacity, items: make(maxHeapSlice, 0, capacity)}
}

// Push offers a candidate. If the heap is below capacity the candidate
// is always kept; once full, it is kept only if it beats (scores lower
// than) the current worst entry, which is evicted to make room.
func (h *BoundedMaxHeap) Push(item IdWithScore) {
	if len(h.items) < h.capacity {
		heap.Push(&h.items, item)
		return
	}
	if h.capacity == 0 {
		return
	}
	worst := h.items[0]
	if Less(item, worst) {
		h.items[0] = item
		heap.Fix(&h.items, 0)
	}
}

// Len returns the number of entries currently retained.
func (h *BoundedMaxHeap) Len() int { return len(h.items) }

// Full reports whether the heap has reached capacity.
func (h *BoundedMaxHeap) Full() bool { return len(h.items) >= h.capacity }

// Worst returns the current worst (largest-score) retained entry and
// whether the heap is non-empty.
func (h *BoundedMaxHeap) Worst() (IdWithScore, bool) {
	if len(h.items) == 0 {
		return IdWithScore{}, false
	}
	return h.items[0], true
}

// Drain empties the heap and returns its contents sorted ascending by
// the canonical (Score, ID) ordering.
func (h *BoundedMaxHeap) Drain() []IdWithScore {
	out := make([]IdWithScore, len(h.items))
	n := len(h.items)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h.items).(IdWithScore)
	}
	return out
}

// maxHeapSlice is a container/heap.Interface ordering entries so the
// worst (largest score) candidate sits at the root.
type maxHeapSlice []IdWithScore

func (s maxHeapSlice) Len() int { return len(s) }

func (s maxHeapSlice) Less(i, j int) bool {
	// Inverted relative to Less: root should be the worst entry.
	return Less(s[j], s[i])
}

func (s maxHeapSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *maxHeapSlice) Push(x interface{}) {
	*s = append(*s, x.(IdWithScore))
}

func (s *maxHeapSlice) Pop() interface{} {
	old := *s
	n := len(old)
	item := old[n-1]
	*s = old[:n-1]
	return item
}
