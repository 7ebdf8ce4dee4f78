package spanndb

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/distkernel"
	"github.com/xDarkicex/spanndb/internal/hnsw"
	"github.com/xDarkicex/spanndb/internal/ivf"
	"github.com/xDarkicex/spanndb/internal/multispann"
)

func l2(a, b []float32) float32 { return distkernel.NewL2Kernel().Calculate(a, b) }

// TestCreateBuildSearchEndToEnd exercises the full public surface: a
// fresh collection is created, one segment is built and published,
// and a search against it returns the nearest row.
func TestCreateBuildSearchEndToEnd(t *testing.T) {
	const dim = 4
	dir := t.TempDir()

	cfg, err := NewCollectionConfig(dim, l2,
		WithIVF(4, 1, 200),
		WithHNSW(8, 4, 32),
	)
	if err != nil {
		t.Fatalf("NewCollectionConfig: %v", err)
	}

	c, err := CreateCollection(filepath.Join(dir, "col"), cfg)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	defer c.Close()

	if c.Version() != -1 {
		t.Fatalf("fresh collection: Version() = %d, want -1", c.Version())
	}

	rows := make([]ivf.Row, 100)
	for i := range rows {
		v := float32(i)
		rows[i] = ivf.Row{ID: uint64(i), Data: []float32{v, v, v, v}}
	}
	segments := []SegmentInput{{
		Name:  "seg1",
		Users: []multispann.UserInput{{UserID: 0, Input: ivf.NewSliceInput(rows)}},
	}}
	if err := c.BuildAndPublish(context.Background(), segments, codec.Plain); err != nil {
		t.Fatalf("BuildAndPublish: %v", err)
	}
	if c.Version() != 0 {
		t.Fatalf("after BuildAndPublish: Version() = %d, want 0", c.Version())
	}

	res, err := c.Search([]float32{42, 42, 42, 42}, 1, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].ID != 42 {
		t.Fatalf("Search = %+v, want top-1 id=42", res.Results)
	}

	_, err = c.SearchWithID(999, []float32{0, 0, 0, 0}, 1, 4)
	if err != nil {
		t.Fatalf("SearchWithID(unregistered user): unexpected error: %v", err)
	}
}

// TestS6CodecEquivalence pins spec.md's S6 scenario: two indexes built
// from identical data, one Plain-coded, one Elias-Fano-coded, must
// answer every one of a large batch of random queries with the
// identical ordered (id, score) sequence.
func TestS6CodecEquivalence(t *testing.T) {
	const dim = 8
	const n = 1000
	rng := rand.New(rand.NewSource(42))

	rows := make([]ivf.Row, n)
	for i := range rows {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32() * 100
		}
		rows[i] = ivf.Row{ID: uint64(i), Data: v}
	}

	build := func(t *testing.T, codecType codec.Type) *multispann.Segment {
		t.Helper()
		dir := t.TempDir()
		ivfCfg := *ivf.DefaultConfig(dim)
		ivfCfg.BaseDirectory = t.TempDir()
		ivfCfg.NumClusters = 16
		ivfCfg.NumDataPointsForClustering = n
		ivfCfg.MaxClustersPerVector = 2
		ivfCfg.MaxPostingListSize = 500
		ivfCfg.CodecType = codecType

		hnswCfg := hnsw.Config{M: 8, EfConstruction: 32, ML: 1.0 / math.Log(2.0), RandomSeed: 1}

		segDir := filepath.Join(dir, "seg")
		users := []multispann.UserInput{{UserID: 0, Input: ivf.NewSliceInput(rows)}}
		if err := multispann.Build(context.Background(), segDir, ivfCfg, hnswCfg, codecType, l2, users, nil); err != nil {
			t.Fatalf("Build(%v): %v", codecType, err)
		}
		seg, err := multispann.Open(segDir, dim, 0, ivfCfg.QuantizerType, l2, nil)
		if err != nil {
			t.Fatalf("Open(%v): %v", codecType, err)
		}
		t.Cleanup(func() { seg.Close() })
		return seg
	}

	plain := build(t, codec.Plain)
	ef := build(t, codec.EliasFano)

	const k, p = 3, 8
	for q := 0; q < 1000; q++ {
		query := make([]float32, dim)
		for j := range query {
			query[j] = rng.Float32() * 100
		}
		got, _, err := plain.SearchWithID(0, query, k, p)
		if err != nil {
			t.Fatalf("query %d: plain search: %v", q, err)
		}
		want, _, err := ef.SearchWithID(0, query, k, p)
		if err != nil {
			t.Fatalf("query %d: elias-fano search: %v", q, err)
		}
		if len(got) != len(want) {
			t.Fatalf("query %d: plain returned %d results, elias-fano %d", q, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("query %d result[%d]: plain=%+v elias-fano=%+v", q, i, got[i], want[i])
			}
		}
	}
}
