// Package collection implements the top-level on-disk container from
// spec.md §4.6: a directory holding collection_config.json, one
// directory per Multi-SPANN segment, and a monotonic sequence of
// version_N files each naming the segments live at that version.
// Grounded in the teacher's CollectionConfig/Option pattern
// (libravdb/collection.go, libravdb/options.go) for the config shape
// and validate() style, generalized from HNSW-only parameters to the
// IVF+HNSW (SPANN) parameter set spec.md's configuration table names.
package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xDarkicex/spanndb/internal/quant"
)

// Config is collection_config.json: the quantizer type, feature
// dimension, and SPANN (IVF + HNSW) build parameters shared by every
// segment in the collection.
type Config struct {
	QuantizerType quant.Type `json:"quantizer_type"`
	NumFeatures   int        `json:"num_features"`
	Subspaces     int        `json:"subspaces,omitempty"`

	NumClusters                int     `json:"num_clusters"`
	MaxClustersPerVector        int     `json:"max_clusters_per_vector"`
	DistanceThreshold           float64 `json:"distance_threshold"`
	MaxPostingListSize          int     `json:"max_posting_list_size"`
	NumDataPointsForClustering  int     `json:"num_data_points_for_clustering"`
	MaxIteration                int     `json:"max_iteration"`
	Tolerance                   float64 `json:"tolerance"`

	MaxNeighbors   int `json:"max_neighbors"`
	MaxLayers      int `json:"max_layers"`
	EfConstruction int `json:"ef_construction"`
}

// Validate checks that every field the builders and readers depend on
// is present and in range, returning a wrapped ErrConfigInvalid.
func (c *Config) Validate() error {
	if c.NumFeatures <= 0 {
		return fmt.Errorf("%w: num_features must be positive, got %d", ErrConfigInvalid, c.NumFeatures)
	}
	if c.NumClusters <= 0 {
		return fmt.Errorf("%w: num_clusters must be positive, got %d", ErrConfigInvalid, c.NumClusters)
	}
	if c.MaxClustersPerVector <= 0 {
		return fmt.Errorf("%w: max_clusters_per_vector must be positive, got %d", ErrConfigInvalid, c.MaxClustersPerVector)
	}
	if c.MaxPostingListSize <= 0 {
		return fmt.Errorf("%w: max_posting_list_size must be positive, got %d", ErrConfigInvalid, c.MaxPostingListSize)
	}
	if c.MaxNeighbors <= 0 {
		return fmt.Errorf("%w: max_neighbors must be positive, got %d", ErrConfigInvalid, c.MaxNeighbors)
	}
	if c.EfConstruction <= 0 {
		return fmt.Errorf("%w: ef_construction must be positive, got %d", ErrConfigInvalid, c.EfConstruction)
	}
	if c.QuantizerType == quant.ProductQuant && c.Subspaces <= 0 {
		return fmt.Errorf("%w: subspaces must be positive for product quantization", ErrConfigInvalid)
	}
	return nil
}

const configFileName = "collection_config.json"

// WriteConfig writes cfg to dir/collection_config.json. Unlike
// version_N files, the config is written once at collection creation
// and is not part of the version chain, so a plain create (not a
// rename-based append) is used.
func WriteConfig(dir string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("collection: marshaling config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("collection: mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0o644); err != nil {
		return fmt.Errorf("collection: writing %s: %w", configFileName, err)
	}
	return nil
}

// ReadConfig loads dir/collection_config.json.
func ReadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		return nil, fmt.Errorf("collection: reading %s: %w", configFileName, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", ErrIndexCorrupt, configFileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
