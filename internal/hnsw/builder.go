package hnsw

import "fmt"

// Builder constructs a navigator graph over a fixed vector set,
// inserting in order so that node id equals the vector's position in
// the input slice — the identity local_id -> centroid_id mapping
// spec.md's SPANN builder requires.
type Builder struct {
	cfg      Config
	distance func(a, b []float32) float32
}

// NewBuilder returns a Builder for the given configuration.
func NewBuilder(cfg Config, distance func(a, b []float32) float32) *Builder {
	return &Builder{cfg: cfg, distance: distance}
}

// Build inserts every vector in order and returns the resulting graph.
func (b *Builder) Build(vectors [][]float32) (*Index, error) {
	idx, err := NewIndex(&b.cfg, b.distance)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if err := idx.Insert(v); err != nil {
			return nil, fmt.Errorf("hnsw: inserting vector %d: %w", i, err)
		}
	}
	return idx, nil
}
