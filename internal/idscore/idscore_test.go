package idscore

import (
	"math/rand"
	"sort"
	"testing"
)

func TestLessOrdersByScoreThenID(t *testing.T) {
	a := IdWithScore{ID: 5, Score: 1.0}
	b := IdWithScore{ID: 2, Score: 2.0}
	if !Less(a, b) {
		t.Fatal("lower score should sort first regardless of id")
	}

	c := IdWithScore{ID: 1, Score: 1.0}
	d := IdWithScore{ID: 9, Score: 1.0}
	if !Less(c, d) {
		t.Fatal("equal scores should tie-break by ascending id")
	}
}

func TestBoundedMaxHeapRetainsKBest(t *testing.T) {
	h := NewBoundedMaxHeap(3)
	entries := []IdWithScore{
		{ID: 1, Score: 5},
		{ID: 2, Score: 1},
		{ID: 3, Score: 9},
		{ID: 4, Score: 2},
		{ID: 5, Score: 0.5},
	}
	for _, e := range entries {
		h.Push(e)
	}

	got := h.Drain()
	want := []IdWithScore{
		{ID: 5, Score: 0.5},
		{ID: 2, Score: 1},
		{ID: 4, Score: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("Drain() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBoundedMaxHeapDrainIsSortedAscending(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := NewBoundedMaxHeap(10)
	for i := 0; i < 500; i++ {
		h.Push(IdWithScore{ID: uint64(i), Score: rng.Float32() * 100})
	}
	got := h.Drain()
	if len(got) != 10 {
		t.Fatalf("Drain() len = %d, want 10", len(got))
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return Less(got[i], got[j]) }) {
		t.Fatalf("Drain() not sorted ascending: %+v", got)
	}
}

func TestBoundedMaxHeapFewerThanCapacity(t *testing.T) {
	h := NewBoundedMaxHeap(10)
	h.Push(IdWithScore{ID: 1, Score: 3})
	h.Push(IdWithScore{ID: 2, Score: 1})
	if h.Full() {
		t.Fatal("heap with 2 of 10 entries should not report Full")
	}
	got := h.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain() len = %d, want 2", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("Drain() = %+v, want ascending by score", got)
	}
}

func TestBoundedMaxHeapZeroCapacity(t *testing.T) {
	h := NewBoundedMaxHeap(0)
	h.Push(IdWithScore{ID: 1, Score: 1})
	if h.Len() != 0 {
		t.Fatalf("zero-capacity heap should retain nothing, got len %d", h.Len())
	}
}
