// Package ivf implements the inverted-file clustering index: build
// (subsample -> k-means -> multi-assign -> posting-list balancing),
// on-disk serialization via internal/ivfformat, and search (nearest
// centroids -> posting-list scan -> bounded top-K merge). Grounded in
// the teacher's internal/index/ivfpq package for the build pipeline's
// shape and internal/util's heap for the search merge, generalized to
// this module's file-backed, codec-compressed posting lists instead of
// the teacher's in-memory cluster slices.
package ivf

import (
	"fmt"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/quant"
)

// Config recognizes the IVF build/runtime options from spec.md's
// configuration table.
type Config struct {
	MaxIteration               int
	BatchSize                  int
	NumClusters                int
	NumDataPointsForClustering int
	MaxClustersPerVector       int
	DistanceThreshold          float64
	BaseDirectory              string
	MemorySize                 int64
	FileSize                   int64
	NumFeatures                int
	Tolerance                  float64
	MaxPostingListSize         int

	CodecType     codec.Type
	QuantizerType quant.Type
	Subspaces     int // only meaningful when QuantizerType == quant.ProductQuant
}

// DefaultConfig returns reasonable defaults for a given feature
// dimension, in the teacher's DefaultConfig(dimension) style.
func DefaultConfig(numFeatures int) *Config {
	return &Config{
		MaxIteration:               100,
		BatchSize:                  10000,
		NumClusters:                64,
		NumDataPointsForClustering: 10000,
		MaxClustersPerVector:       1,
		DistanceThreshold:          0.05,
		MemorySize:                1 << 26,
		FileSize:                  1 << 28,
		NumFeatures:                numFeatures,
		Tolerance:                 1e-4,
		MaxPostingListSize:        1000,
		CodecType:                 codec.EliasFano,
		QuantizerType:             quant.NoQuant,
	}
}

// Validate checks that the configuration is usable for a build,
// returning a wrapped ErrConfigInvalid on failure.
func (c *Config) Validate() error {
	if c.NumFeatures <= 0 {
		return fmt.Errorf("%w: num_features must be positive, got %d", ErrConfigInvalid, c.NumFeatures)
	}
	if c.NumClusters <= 0 {
		return fmt.Errorf("%w: num_clusters must be positive, got %d", ErrConfigInvalid, c.NumClusters)
	}
	if c.MaxIteration <= 0 {
		return fmt.Errorf("%w: max_iteration must be positive, got %d", ErrConfigInvalid, c.MaxIteration)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %v", ErrConfigInvalid, c.Tolerance)
	}
	if c.MaxClustersPerVector <= 0 {
		return fmt.Errorf("%w: max_clusters_per_vector must be positive, got %d", ErrConfigInvalid, c.MaxClustersPerVector)
	}
	if c.DistanceThreshold < 0 {
		return fmt.Errorf("%w: distance_threshold must be non-negative, got %v", ErrConfigInvalid, c.DistanceThreshold)
	}
	if c.MaxPostingListSize <= 0 {
		return fmt.Errorf("%w: max_posting_list_size must be positive, got %d", ErrConfigInvalid, c.MaxPostingListSize)
	}
	if c.BaseDirectory == "" {
		return fmt.Errorf("%w: base_directory must be set", ErrConfigInvalid)
	}
	if c.QuantizerType == quant.ProductQuant && c.Subspaces <= 0 {
		return fmt.Errorf("%w: subspaces must be positive for product quantization", ErrConfigInvalid)
	}
	return nil
}
