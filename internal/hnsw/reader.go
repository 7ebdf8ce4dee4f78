package hnsw

import "github.com/xDarkicex/spanndb/internal/idscore"

// Reader wraps a loaded graph for search-only use, matching
// spec.md's `HnswReader::read(dir, offsets) -> HnswIndex` contract
// (`search(query, k, ef) -> [IdWithScore]`). Node ids are returned as
// IdWithScore.ID since they are centroid indices, not external doc ids.
type Reader struct {
	index *Index
}

// OpenReader loads a graph written by (*Index).Write.
func OpenReader(path string, distance func(a, b []float32) float32) (*Reader, error) {
	idx, err := Open(path, distance)
	if err != nil {
		return nil, err
	}
	return &Reader{index: idx}, nil
}

// Search returns up to k centroid ids closest to query, using ef as
// the dynamic candidate list size during the level-0 beam search.
func (r *Reader) Search(query []float32, k, ef int) ([]idscore.IdWithScore, error) {
	if ef < k {
		ef = k
	}
	candidates, err := r.index.Search(query, ef)
	if err != nil {
		return nil, err
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]idscore.IdWithScore, k)
	for i := 0; i < k; i++ {
		out[i] = idscore.IdWithScore{ID: uint64(candidates[i].id), Score: candidates[i].distance}
	}
	return out, nil
}

// Size returns the number of indexed centroids.
func (r *Reader) Size() int { return r.index.Size() }
