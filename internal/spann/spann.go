// Package spann composes an IVF index with an HNSW navigator over its
// centroids, per spec.md §4.4: HNSW picks P candidate centroids, the
// IVF reader scans and merges their posting lists. Grounded in
// internal/ivf (posting-list scan/merge) and internal/hnsw (centroid
// navigation), wired together the way the teacher's collection.go
// wires its HNSW index to its storage layer.
package spann

import (
	"fmt"
	"path/filepath"

	"github.com/xDarkicex/spanndb/internal/hnsw"
	"github.com/xDarkicex/spanndb/internal/idscore"
	"github.com/xDarkicex/spanndb/internal/ivf"
	"github.com/xDarkicex/spanndb/internal/obs"
	"github.com/xDarkicex/spanndb/internal/quant"
)

// Layout names the two subdirectories a single-tenant SPANN index
// occupies on disk, per spec.md §3: "directory with centroids/ (HNSW
// artifacts over IVF centroids) and ivf/ (posting-list file + vectors)".
type Layout struct {
	CentroidsPath string // HNSW navigator file
	IVFDir        string // ivf.Layout root
}

// LayoutIn returns the conventional Layout for a SPANN index rooted at dir.
func LayoutIn(dir string) Layout {
	return Layout{
		CentroidsPath: filepath.Join(dir, "centroids", "navigator"),
		IVFDir:        filepath.Join(dir, "ivf"),
	}
}

// Spann is an opened, searchable SPANN index: an HNSW navigator over
// centroids plus the IVF reader that owns the posting lists and
// quantized vectors those centroids index into.
type Spann struct {
	navigator *hnsw.Reader
	ivf       *ivf.Reader
}

// Open loads both halves of a Layout. numFeatures/subspaces/quantizerType/
// distance describe the IVF segment exactly as ivf.Open requires.
// metrics may be nil and is forwarded to the IVF reader.
func Open(layout Layout, numFeatures, subspaces int, quantizerType quant.Type, distance func(a, b []float32) float32, metrics *obs.Metrics) (*Spann, error) {
	navigator, err := hnsw.OpenReader(layout.CentroidsPath, distance)
	if err != nil {
		return nil, fmt.Errorf("spann: opening centroid navigator: %w", err)
	}

	ivfReader, err := ivf.Open(ivf.LayoutIn(layout.IVFDir), numFeatures, subspaces, quantizerType, distance, metrics)
	if err != nil {
		return nil, fmt.Errorf("spann: opening ivf segment: %w", err)
	}

	return &Spann{navigator: navigator, ivf: ivfReader}, nil
}

// Close releases the IVF reader's mmap'd files. The navigator is held
// in memory and has nothing to release.
func (s *Spann) Close() error {
	err := s.ivf.Close()
	return err
}

// Search finds the P nearest centroids via the HNSW navigator, then
// scans and merges their IVF posting lists into the top-K results.
// When the centroid count is small the navigator degenerates to a
// near-brute-force scan, matching spec.md §4.4's note that brute
// force is an acceptable substitute at small scale.
func (s *Spann) Search(query []float32, k, p int) ([]idscore.IdWithScore, error) {
	centroidHits, err := s.navigator.Search(query, p, p)
	if err != nil {
		return nil, fmt.Errorf("spann: centroid navigation: %w", err)
	}

	heap := idscore.NewBoundedMaxHeap(k)
	for _, hit := range centroidHits {
		candidates, err := s.ivf.ScanPostingList(int(hit.ID), query)
		if err != nil {
			return nil, fmt.Errorf("spann: scanning centroid %d: %w", hit.ID, err)
		}
		for _, cand := range candidates {
			heap.Push(cand)
		}
	}
	return heap.Drain(), nil
}

// NumVectors returns the number of vectors indexed by the IVF segment.
func (s *Spann) NumVectors() int { return s.ivf.NumVectors() }
