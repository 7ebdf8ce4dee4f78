package collection

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/distkernel"
	"github.com/xDarkicex/spanndb/internal/hnsw"
	"github.com/xDarkicex/spanndb/internal/ivf"
	"github.com/xDarkicex/spanndb/internal/multispann"
	"github.com/xDarkicex/spanndb/internal/obs"
	"github.com/xDarkicex/spanndb/internal/quant"
)

func l2(a, b []float32) float32 { return distkernel.NewL2Kernel().Calculate(a, b) }

const testDim = 4

func defaultCollectionConfig() *Config {
	return &Config{
		QuantizerType:               quant.NoQuant,
		NumFeatures:                 testDim,
		NumClusters:                 2,
		MaxClustersPerVector:        1,
		DistanceThreshold:           0.05,
		MaxPostingListSize:          100,
		NumDataPointsForClustering:  20,
		MaxIteration:                50,
		Tolerance:                   1e-4,
		MaxNeighbors:                8,
		MaxLayers:                   4,
		EfConstruction:              32,
	}
}

func buildSegment(t *testing.T, dir string, userID uint64, baseID uint64, metrics *obs.Metrics) {
	t.Helper()
	rows := make([]ivf.Row, 20)
	for i := range rows {
		v := float32(baseID) + float32(i)
		rows[i] = ivf.Row{ID: baseID + uint64(i), Data: []float32{v, v, v, v}}
	}
	ivfCfg := *ivf.DefaultConfig(testDim)
	ivfCfg.BaseDirectory = t.TempDir()
	ivfCfg.NumClusters = 2
	ivfCfg.NumDataPointsForClustering = len(rows)
	ivfCfg.MaxClustersPerVector = 1
	ivfCfg.MaxPostingListSize = 100

	hnswCfg := hnsw.Config{M: 4, EfConstruction: 16, ML: 1.0 / math.Log(2.0), RandomSeed: 1}

	users := []multispann.UserInput{{UserID: userID, Input: ivf.NewSliceInput(rows)}}
	if err := multispann.Build(context.Background(), dir, ivfCfg, hnswCfg, codec.Plain, l2, users, metrics); err != nil {
		t.Fatalf("multispann.Build(%s): %v", dir, err)
	}
}

// TestS5CollectionSnapshotVersioning pins spec.md's S5 scenario:
// writing version_0 with one segment then version_1 with two makes a
// freshly opened reader resolve version 1 with both segments present.
func TestS5CollectionSnapshotVersioning(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultCollectionConfig()
	if err := Create(dir, cfg); err != nil {
		t.Fatalf("Create: %v", err)
	}

	buildSegment(t, filepath.Join(dir, "seg1"), 1, 100, nil)
	buildSegment(t, filepath.Join(dir, "seg2"), 2, 200, nil)

	c, err := Open(dir, l2, nil)
	if err != nil {
		t.Fatalf("Open (before any version): %v", err)
	}
	if c.Version() != -1 || c.NumSegments() != 0 {
		t.Fatalf("fresh collection: version=%d numSegments=%d, want -1/0", c.Version(), c.NumSegments())
	}

	if err := c.PublishVersion([]string{"seg1"}); err != nil {
		t.Fatalf("PublishVersion(seg1): %v", err)
	}
	if c.Version() != 0 || c.NumSegments() != 1 {
		t.Fatalf("after version_0: version=%d numSegments=%d, want 0/1", c.Version(), c.NumSegments())
	}

	if err := c.PublishVersion([]string{"seg1", "seg2"}); err != nil {
		t.Fatalf("PublishVersion(seg1,seg2): %v", err)
	}
	if c.Version() != 1 || c.NumSegments() != 2 {
		t.Fatalf("after version_1: version=%d numSegments=%d, want 1/2", c.Version(), c.NumSegments())
	}
	c.Close()

	// A fresh reader opening the same directory must independently
	// resolve the same latest version and segment count.
	reader, err := Open(dir, l2, nil)
	if err != nil {
		t.Fatalf("Open (fresh reader): %v", err)
	}
	defer reader.Close()
	if reader.Version() != 1 {
		t.Fatalf("fresh reader: current_version = %d, want 1", reader.Version())
	}
	if reader.NumSegments() != 2 {
		t.Fatalf("fresh reader: numSegments = %d, want 2", reader.NumSegments())
	}
}

// TestSearchWithIDAcrossSegments checks that a reader resolves a user
// to whichever segment actually contains them, searching both.
func TestSearchWithIDAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultCollectionConfig()
	if err := Create(dir, cfg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	buildSegment(t, filepath.Join(dir, "seg1"), 1, 100, nil)
	buildSegment(t, filepath.Join(dir, "seg2"), 2, 200, nil)

	c, err := Open(dir, l2, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	if err := c.PublishVersion([]string{"seg1", "seg2"}); err != nil {
		t.Fatalf("PublishVersion: %v", err)
	}

	query := []float32{205, 205, 205, 205}
	got, found, err := c.SearchWithID(2, query, 1, 2)
	if err != nil {
		t.Fatalf("SearchWithID(2, ...): %v", err)
	}
	if !found {
		t.Fatalf("SearchWithID(2, ...): user 2 not found across segments")
	}
	if len(got) != 1 || got[0].ID != 205 {
		t.Fatalf("SearchWithID(2, ...) = %+v, want top-1 id=205", got)
	}

	_, found, err = c.SearchWithID(999, query, 1, 2)
	if err != nil {
		t.Fatalf("SearchWithID(999, ...): unexpected error: %v", err)
	}
	if found {
		t.Fatalf("SearchWithID(999, ...): want found=false for an unregistered user")
	}
}

// TestPublishVersionIsMonotonic checks that repeated PublishVersion
// calls strictly increase the version number and never revisit or
// delete a prior version_N file.
func TestPublishVersionIsMonotonic(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultCollectionConfig()
	if err := Create(dir, cfg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	buildSegment(t, filepath.Join(dir, "seg1"), 1, 100, nil)

	c, err := Open(dir, l2, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	for i := 0; i < 3; i++ {
		if err := c.PublishVersion([]string{"seg1"}); err != nil {
			t.Fatalf("PublishVersion #%d: %v", i, err)
		}
		if c.Version() != i {
			t.Fatalf("after publish #%d: version = %d, want %d", i, c.Version(), i)
		}
	}

	for n := 0; n < 3; n++ {
		if _, err := readTOC(dir, n); err != nil {
			t.Fatalf("version_%d should still be readable: %v", n, err)
		}
	}
}

// TestMetricsWiredThroughSearch confirms a *obs.Metrics passed to Open
// is actually threaded down to every segment's IVF reader: a real
// search against a real Collection must leave the scan counters, and
// a real build must leave the codec-bytes-written counter, above zero.
func TestMetricsWiredThroughSearch(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultCollectionConfig()
	if err := Create(dir, cfg); err != nil {
		t.Fatalf("Create: %v", err)
	}

	metrics := obs.NewMetrics()
	buildSegment(t, filepath.Join(dir, "seg1"), 1, 100, metrics)

	if got := testutil.ToFloat64(metrics.CodecBytesWritten); got <= 0 {
		t.Fatalf("CodecBytesWritten after build = %v, want > 0", got)
	}

	c, err := Open(dir, l2, metrics)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	if err := c.PublishVersion([]string{"seg1"}); err != nil {
		t.Fatalf("PublishVersion: %v", err)
	}

	if _, found, err := c.SearchWithID(1, []float32{105, 105, 105, 105}, 1, 2); err != nil || !found {
		t.Fatalf("SearchWithID: found=%v err=%v", found, err)
	}

	if got := testutil.ToFloat64(metrics.PostingListsScanned); got <= 0 {
		t.Fatalf("PostingListsScanned after search = %v, want > 0", got)
	}
	if got := testutil.ToFloat64(metrics.VectorsScanned); got <= 0 {
		t.Fatalf("VectorsScanned after search = %v, want > 0", got)
	}
}
