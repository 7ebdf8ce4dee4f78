package ivf

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/distkernel"
	"github.com/xDarkicex/spanndb/internal/quant"
)

func l2(a, b []float32) float32 { return distkernel.NewL2Kernel().Calculate(a, b) }

// buildAndOpen writes result to a fresh temp directory and opens a
// Reader over it, for tests that construct a BuildResult by hand to
// pin an exact scenario rather than letting k-means pick centroids.
func buildAndOpen(t *testing.T, result *BuildResult, codecType codec.Type) *Reader {
	t.Helper()
	dir := t.TempDir()
	layout := LayoutIn(filepath.Join(dir, "segment"))
	if err := Write(layout, result, codecType, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := Open(layout, result.NumFeatures, 0, quant.NoQuant, l2, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func noQuantResult(t *testing.T, numFeatures int, vectors [][]float32, docIDs []uint64, centroids [][]float32, postingLists [][]uint64) *BuildResult {
	t.Helper()
	quantizer := quant.NewNoQuantizer(numFeatures, l2)
	if err := quantizer.Train(context.Background(), vectors); err != nil {
		t.Fatalf("quantizer.Train: %v", err)
	}
	rows := make([][]byte, len(vectors))
	for i, v := range vectors {
		code, err := quantizer.Quantize(v)
		if err != nil {
			t.Fatalf("quantizer.Quantize: %v", err)
		}
		rows[i] = code
	}
	return &BuildResult{
		NumVectors:    len(vectors),
		NumFeatures:   numFeatures,
		Centroids:     centroids,
		PostingLists:  postingLists,
		DocIDs:        docIDs,
		Quantizer:     quantizer,
		QuantizedRows: rows,
	}
}

// TestS2IVFSearchScenario pins the exact end-to-end search scenario
// from the project's worked example: 4 vectors, 2 centroids, 2 posting
// lists, query [2,3,4], k=2, P=2.
func TestS2IVFSearchScenario(t *testing.T) {
	vectors := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {2, 3, 4}}
	docIDs := []uint64{0, 1, 2, 3}
	centroids := [][]float32{{1.5, 2.5, 3.5}, {5.5, 6.5, 7.5}}
	postingLists := [][]uint64{{0, 3}, {1, 2}}

	result := noQuantResult(t, 3, vectors, docIDs, centroids, postingLists)
	r := buildAndOpen(t, result, codec.Plain)

	got, err := r.Search([]float32{2, 3, 4}, 2, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search returned %d results, want 2", len(got))
	}
	if got[0].ID != 3 || math.Abs(float64(got[0].Score)) > 1e-4 {
		t.Errorf("result[0] = %+v, want {ID:3 Score:~0}", got[0])
	}
	if got[1].ID != 0 || math.Abs(float64(got[1].Score)-1.732) > 1e-2 {
		t.Errorf("result[1] = %+v, want {ID:0 Score:~1.732}", got[1])
	}
}

// TestS3NearestCentroidsScenario pins FindNearestCentroids over three
// centroids: query [3,4,5] should prefer centroid 1 then centroid 0.
func TestS3NearestCentroidsScenario(t *testing.T) {
	centroids := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	dummyVectors := centroids
	docIDs := []uint64{0, 1, 2}
	postingLists := [][]uint64{{0}, {1}, {2}}

	result := noQuantResult(t, 3, dummyVectors, docIDs, centroids, postingLists)
	r := buildAndOpen(t, result, codec.Plain)

	got, err := r.FindNearestCentroids([]float32{3, 4, 5}, 2)
	if err != nil {
		t.Fatalf("FindNearestCentroids: %v", err)
	}
	want := []int{1, 0}
	if len(got) != len(want) {
		t.Fatalf("FindNearestCentroids returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindNearestCentroids()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// TestEliasFanoAndPlainSearchAgree is the cross-codec round-trip law:
// the same segment contents, once encoded with Plain and once with
// Elias-Fano, must return identical ranked search results.
func TestEliasFanoAndPlainSearchAgree(t *testing.T) {
	vectors := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {2, 3, 4}, {9, 9, 9}}
	docIDs := []uint64{10, 11, 12, 13, 14}
	centroids := [][]float32{{1.5, 2.5, 3.5}, {5.5, 6.5, 7.5}, {9, 9, 9}}
	postingLists := [][]uint64{{0, 3}, {1}, {2, 4}}

	plainResult := noQuantResult(t, 3, vectors, docIDs, centroids, postingLists)
	plainReader := buildAndOpen(t, plainResult, codec.Plain)

	efResult := noQuantResult(t, 3, vectors, docIDs, centroids, postingLists)
	efReader := buildAndOpen(t, efResult, codec.EliasFano)

	query := []float32{2, 3, 5}
	plainGot, err := plainReader.Search(query, 3, 3)
	if err != nil {
		t.Fatalf("plain Search: %v", err)
	}
	efGot, err := efReader.Search(query, 3, 3)
	if err != nil {
		t.Fatalf("elias-fano Search: %v", err)
	}

	if len(plainGot) != len(efGot) {
		t.Fatalf("result length mismatch: plain=%d elias-fano=%d", len(plainGot), len(efGot))
	}
	for i := range plainGot {
		if plainGot[i] != efGot[i] {
			t.Errorf("result[%d]: plain=%+v elias-fano=%+v", i, plainGot[i], efGot[i])
		}
	}
}

// TestBuilderDocIDMappingInvariant is quantified invariant 2: every
// local id's doc-id mapping reproduces the original input doc id.
func TestBuilderDocIDMappingInvariant(t *testing.T) {
	vectors, docIDs := syntheticDataset(200, 4, 7)

	cfg := *DefaultConfig(4)
	cfg.BaseDirectory = t.TempDir()
	cfg.NumClusters = 8
	cfg.NumDataPointsForClustering = 200
	cfg.MaxClustersPerVector = 2
	cfg.MaxPostingListSize = 1000

	builder, err := NewBuilder(cfg, l2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	rows := make([]Row, len(vectors))
	for i, v := range vectors {
		rows[i] = Row{ID: docIDs[i], Data: v}
	}
	result, err := builder.Build(context.Background(), NewSliceInput(rows))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for localID, want := range docIDs {
		if result.DocIDs[localID] != want {
			t.Fatalf("DocIDs[%d] = %d, want %d", localID, result.DocIDs[localID], want)
		}
	}
}

// TestBuilderMaxClustersPerVectorInvariant is quantified invariant 3:
// no local id appears in more posting lists than MaxClustersPerVector.
func TestBuilderMaxClustersPerVectorInvariant(t *testing.T) {
	vectors, docIDs := syntheticDataset(150, 4, 11)

	cfg := *DefaultConfig(4)
	cfg.BaseDirectory = t.TempDir()
	cfg.NumClusters = 6
	cfg.NumDataPointsForClustering = 150
	cfg.MaxClustersPerVector = 2
	cfg.DistanceThreshold = 0.5
	cfg.MaxPostingListSize = 1000

	builder, err := NewBuilder(cfg, l2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	rows := make([]Row, len(vectors))
	for i, v := range vectors {
		rows[i] = Row{ID: docIDs[i], Data: v}
	}
	result, err := builder.Build(context.Background(), NewSliceInput(rows))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	counts := make(map[uint64]int)
	for _, list := range result.PostingLists {
		for _, id := range list {
			counts[id]++
		}
	}
	for id, count := range counts {
		if count > cfg.MaxClustersPerVector {
			t.Errorf("local id %d appears in %d posting lists, want <= %d", id, count, cfg.MaxClustersPerVector)
		}
	}
}

// TestBoundaryNumClustersOne: with one cluster, the single posting
// list holds every local id.
func TestBoundaryNumClustersOne(t *testing.T) {
	vectors, docIDs := syntheticDataset(50, 3, 3)

	cfg := *DefaultConfig(3)
	cfg.BaseDirectory = t.TempDir()
	cfg.NumClusters = 1
	cfg.NumDataPointsForClustering = 50
	cfg.MaxClustersPerVector = 1
	cfg.MaxPostingListSize = 1000

	builder, err := NewBuilder(cfg, l2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	rows := make([]Row, len(vectors))
	for i, v := range vectors {
		rows[i] = Row{ID: docIDs[i], Data: v}
	}
	result, err := builder.Build(context.Background(), NewSliceInput(rows))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(result.PostingLists) != 1 {
		t.Fatalf("len(PostingLists) = %d, want 1", len(result.PostingLists))
	}
	if len(result.PostingLists[0]) != len(vectors) {
		t.Fatalf("single posting list holds %d ids, want %d", len(result.PostingLists[0]), len(vectors))
	}
}

// TestBoundaryKGreaterThanCorpusSize: asking for more results than
// exist returns exactly corpus_size results.
func TestBoundaryKGreaterThanCorpusSize(t *testing.T) {
	vectors := [][]float32{{1, 1}, {2, 2}, {3, 3}}
	docIDs := []uint64{100, 101, 102}
	centroids := [][]float32{{2, 2}}
	postingLists := [][]uint64{{0, 1, 2}}

	result := noQuantResult(t, 2, vectors, docIDs, centroids, postingLists)
	r := buildAndOpen(t, result, codec.Plain)

	got, err := r.Search([]float32{2, 2}, 10, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != len(vectors) {
		t.Fatalf("Search with k=10 over corpus of %d returned %d results", len(vectors), len(got))
	}
}

func syntheticDataset(n, dim int, seed int64) ([][]float32, []uint64) {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	docIDs := make([]uint64, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for d := range v {
			v[d] = float32(rng.Intn(1000)) / 10
		}
		vectors[i] = v
		docIDs[i] = uint64(1000 + i)
	}
	return vectors, docIDs
}
