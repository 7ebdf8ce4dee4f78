// Package hnsw implements a minimal hierarchical navigable small-world
// graph used as the in-memory navigator over IVF centroids in a SPANN
// segment. The graph-building algorithm is treated as a narrow
// build/read/search contract (per spec.md §1's Non-goals), so this
// package omits the teacher's quantization, metadata, and delete
// support — a SPANN navigator only ever builds once over a fixed
// centroid set and reads it back. Grounded in the teacher's
// internal/index/hnsw package (hnsw.go, insert.go, search.go,
// neighbors.go), stripped of string ids, metadata and quantization
// since centroids are plain float32 vectors keyed by integer index.
package hnsw

import (
	"fmt"
	"math/rand"
)

// Config holds HNSW construction/search parameters, named after
// spec.md's configuration table (max_neighbors, max_layers,
// ef_construction).
type Config struct {
	Dimension      int
	M              int // max bidirectional links per node per level
	EfConstruction int
	ML             float64 // level generation factor, conventionally 1/ln(2)
	RandomSeed     int64
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("hnsw: dimension must be positive")
	}
	if c.M <= 0 {
		return fmt.Errorf("hnsw: M must be positive")
	}
	if c.EfConstruction <= 0 {
		return fmt.Errorf("hnsw: ef_construction must be positive")
	}
	if c.ML <= 0 {
		return fmt.Errorf("hnsw: ML must be positive")
	}
	return nil
}

// Index is an in-memory HNSW graph over a fixed set of vectors,
// addressed by their insertion-order index (0-based, matching the
// identity local_id -> centroid_id mapping spec.md's SPANN builder
// requires).
type Index struct {
	config         *Config
	distance       func(a, b []float32) float32
	nodes          []*node
	entryPoint     uint32
	maxLevel       int
	levelGenerator *rand.Rand
	neighborSel    *neighborSelector
}

// NewIndex returns an empty graph ready for sequential Insert calls.
func NewIndex(cfg *Config, distance func(a, b []float32) float32) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Index{
		config:         cfg,
		distance:       distance,
		levelGenerator: rand.New(rand.NewSource(cfg.RandomSeed)),
		neighborSel:    newNeighborSelector(cfg.M, 2.0),
	}, nil
}

// Size returns the number of indexed vectors.
func (h *Index) Size() int { return len(h.nodes) }

// Vector returns the stored vector for a node id (its insertion index).
func (h *Index) Vector(id uint32) []float32 { return h.nodes[id].vector }

func (h *Index) generateLevel() int {
	level := 0
	for h.levelGenerator.Float64() < h.config.ML && level < 16 {
		level++
	}
	return level
}

// Insert appends vector as the next sequential node id and wires it
// into the graph. Callers must insert in centroid-index order so that
// node id == centroid id.
func (h *Index) Insert(vector []float32) error {
	if len(vector) != h.config.Dimension {
		return fmt.Errorf("hnsw: vector dimension %d does not match %d", len(vector), h.config.Dimension)
	}

	level := h.generateLevel()
	n := &node{vector: append([]float32(nil), vector...), level: level, links: make([][]uint32, level+1)}
	for i := range n.links {
		n.links[i] = make([]uint32, 0, h.config.M)
	}

	id := uint32(len(h.nodes))
	h.nodes = append(h.nodes, n)

	if id == 0 {
		h.entryPoint = id
		h.maxLevel = level
		return nil
	}

	h.insertNode(n, id)

	if level > h.maxLevel {
		h.entryPoint = id
		h.maxLevel = level
	}
	return nil
}

// Search returns up to ef closest node ids to query, sorted ascending
// by distance.
func (h *Index) Search(query []float32, ef int) ([]candidate, error) {
	if len(h.nodes) == 0 {
		return nil, fmt.Errorf("hnsw: index is empty")
	}
	if len(query) != h.config.Dimension {
		return nil, fmt.Errorf("hnsw: query dimension %d does not match %d", len(query), h.config.Dimension)
	}

	entry := h.entryPoint
	for level := h.maxLevel; level > 0; level-- {
		candidates := h.searchLevel(query, entry, 1, level)
		if len(candidates) > 0 {
			entry = candidates[0].id
		}
	}

	if ef < 1 {
		ef = 1
	}
	return h.searchLevel(query, entry, ef, 0), nil
}
