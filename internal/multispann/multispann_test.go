package multispann

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/distkernel"
	"github.com/xDarkicex/spanndb/internal/hnsw"
	"github.com/xDarkicex/spanndb/internal/ivf"
	"github.com/xDarkicex/spanndb/internal/quant"
)

func l2(a, b []float32) float32 { return distkernel.NewL2Kernel().Calculate(a, b) }

// TestS4MultiSpannUserIsolation pins the multi-tenant search scenario:
// one user's 1001-vector corpus, a query near one extra inserted
// point, k=3 probing every cluster (so the result is the true global
// top-3 regardless of how k-means happens to partition the diagonal
// data set).
func TestS4MultiSpannUserIsolation(t *testing.T) {
	const dim = 4
	rows := make([]ivf.Row, 1001)
	for i := 0; i < 1000; i++ {
		v := float32(i)
		rows[i] = ivf.Row{ID: uint64(i), Data: []float32{v, v, v, v}}
	}
	rows[1000] = ivf.Row{ID: 1000, Data: []float32{1.2, 2.2, 3.2, 4.2}}

	const numClusters = 5
	ivfCfg := *ivf.DefaultConfig(dim)
	ivfCfg.BaseDirectory = t.TempDir()
	ivfCfg.NumClusters = numClusters
	ivfCfg.NumDataPointsForClustering = len(rows)
	ivfCfg.MaxClustersPerVector = 1
	ivfCfg.MaxPostingListSize = 2000

	hnswCfg := hnsw.Config{M: 8, EfConstruction: 32, ML: 1.0 / math.Log(2.0), RandomSeed: 1}

	dir := filepath.Join(t.TempDir(), "segment")
	users := []UserInput{{UserID: 0, Input: ivf.NewSliceInput(rows)}}
	if err := Build(context.Background(), dir, ivfCfg, hnswCfg, codec.Plain, l2, users, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	seg, err := Open(dir, dim, 0, quant.NoQuant, l2, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer seg.Close()

	query := []float32{1.4, 2.4, 3.4, 4.4}
	got, found, err := seg.SearchWithID(0, query, 3, numClusters)
	if err != nil {
		t.Fatalf("SearchWithID: %v", err)
	}
	if !found {
		t.Fatalf("SearchWithID(0, ...): user 0 not found")
	}

	wantIDs := []uint64{1000, 3, 2}
	if len(got) != len(wantIDs) {
		t.Fatalf("SearchWithID returned %d results, want %d: %+v", len(got), len(wantIDs), got)
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("result[%d].ID = %d, want %d (full: %+v)", i, got[i].ID, want, got)
		}
	}
}

// TestSearchWithIDUnknownUser checks that an unrecognized user id
// yields found=false with a nil error, not a Go error return, per
// spec.md §7's ErrUnknownUser note.
func TestSearchWithIDUnknownUser(t *testing.T) {
	const dim = 2
	rows := []ivf.Row{
		{ID: 0, Data: []float32{0, 0}},
		{ID: 1, Data: []float32{1, 1}},
	}
	ivfCfg := *ivf.DefaultConfig(dim)
	ivfCfg.BaseDirectory = t.TempDir()
	ivfCfg.NumClusters = 1
	ivfCfg.NumDataPointsForClustering = len(rows)
	ivfCfg.MaxClustersPerVector = 1
	ivfCfg.MaxPostingListSize = 100

	hnswCfg := hnsw.Config{M: 4, EfConstruction: 16, ML: 1.0 / math.Log(2.0), RandomSeed: 1}

	dir := filepath.Join(t.TempDir(), "segment")
	users := []UserInput{{UserID: 7, Input: ivf.NewSliceInput(rows)}}
	if err := Build(context.Background(), dir, ivfCfg, hnswCfg, codec.Plain, l2, users, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	seg, err := Open(dir, dim, 0, quant.NoQuant, l2, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer seg.Close()

	_, found, err := seg.SearchWithID(999, []float32{0, 0}, 1, 1)
	if err != nil {
		t.Fatalf("SearchWithID(unknown user): unexpected error: %v", err)
	}
	if found {
		t.Fatalf("SearchWithID(999, ...): want found=false for an unregistered user")
	}

	_, found, err = seg.SearchWithID(7, []float32{0, 0}, 1, 1)
	if err != nil {
		t.Fatalf("SearchWithID(registered user): %v", err)
	}
	if !found {
		t.Fatalf("SearchWithID(7, ...): want found=true for the registered user")
	}
}
