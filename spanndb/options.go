package spanndb

import (
	"fmt"

	"github.com/xDarkicex/spanndb/internal/collection"
	"github.com/xDarkicex/spanndb/internal/quant"
)

// CollectionOption configures a collection.Config being built by
// NewCollectionConfig, in the teacher's functional-options style
// (libravdb/options.go's CollectionOption).
type CollectionOption func(*collection.Config) error

// WithDimension sets the collection's feature dimension.
func WithDimension(dim int) CollectionOption {
	return func(c *collection.Config) error {
		if dim <= 0 {
			return fmt.Errorf("dimension must be positive")
		}
		c.NumFeatures = dim
		return nil
	}
}

// WithIVF configures the IVF clustering parameters.
func WithIVF(numClusters, maxClustersPerVector, maxPostingListSize int) CollectionOption {
	return func(c *collection.Config) error {
		if numClusters <= 0 || maxClustersPerVector <= 0 || maxPostingListSize <= 0 {
			return fmt.Errorf("IVF parameters must be positive")
		}
		c.NumClusters = numClusters
		c.MaxClustersPerVector = maxClustersPerVector
		c.MaxPostingListSize = maxPostingListSize
		return nil
	}
}

// WithHNSW configures the HNSW navigator parameters.
func WithHNSW(maxNeighbors, maxLayers, efConstruction int) CollectionOption {
	return func(c *collection.Config) error {
		if maxNeighbors <= 0 || maxLayers <= 0 || efConstruction <= 0 {
			return fmt.Errorf("HNSW parameters must be positive")
		}
		c.MaxNeighbors = maxNeighbors
		c.MaxLayers = maxLayers
		c.EfConstruction = efConstruction
		return nil
	}
}

// WithQuantizer selects the quantizer type, and the subspace count
// when it is quant.ProductQuant.
func WithQuantizer(t quant.Type, subspaces int) CollectionOption {
	return func(c *collection.Config) error {
		c.QuantizerType = t
		c.Subspaces = subspaces
		return nil
	}
}

