// Package spanndb is this module's public API: a thin, teacher-styled
// (libravdb/collection.go's mutex-guarded Collection wrapper pattern)
// facade over internal/collection, internal/multispann and
// internal/ivf that keeps a caller outside this module from needing
// to reason about the internal/ package boundary. RPC/catalog/CLI
// layers remain out of scope (see SPEC_FULL.md §1); this is a
// library, not a server.
package spanndb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/collection"
	"github.com/xDarkicex/spanndb/internal/hnsw"
	"github.com/xDarkicex/spanndb/internal/idscore"
	"github.com/xDarkicex/spanndb/internal/ivf"
	"github.com/xDarkicex/spanndb/internal/multispann"
	"github.com/xDarkicex/spanndb/internal/obs"
	"github.com/xDarkicex/spanndb/internal/quant"
)

// CollectionConfig pairs a validated collection.Config with the
// distance kernel new segments and readers should use — the two
// pieces CreateCollection needs that aren't serialized into
// collection_config.json.
type CollectionConfig struct {
	inner    *collection.Config
	distance func(a, b []float32) float32
}

// NewCollectionConfig builds a CollectionConfig from the teacher's
// sensible-defaults-plus-functional-options pattern
// (DefaultConfig(dimension) + opts...), validating the result before
// return.
func NewCollectionConfig(dimension int, distance func(a, b []float32) float32, opts ...CollectionOption) (*CollectionConfig, error) {
	inner := &collection.Config{
		QuantizerType:              quant.NoQuant,
		NumFeatures:                dimension,
		NumClusters:                64,
		MaxClustersPerVector:       1,
		DistanceThreshold:          0.05,
		MaxPostingListSize:         1000,
		NumDataPointsForClustering: 10000,
		MaxIteration:               100,
		Tolerance:                  1e-4,
		MaxNeighbors:               32,
		MaxLayers:                  4,
		EfConstruction:             200,
	}
	for _, opt := range opts {
		if err := opt(inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
	}
	if err := inner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return &CollectionConfig{inner: inner, distance: distance}, nil
}

// Collection is a named, on-disk ANN collection: a versioned sequence
// of Multi-SPANN segments, queried through a single immutable
// snapshot at a time. Search calls are safe for concurrent use;
// BuildAndPublish calls serialize through an internal mutex, in the
// teacher's mutex-guarded Collection style.
type Collection struct {
	mu       sync.Mutex
	dir      string
	inner    *collection.Collection
	distance func(a, b []float32) float32
	metrics  *obs.Metrics
	closed   bool
}

// CreateCollection initializes a brand-new collection directory with
// cfg and opens it. The returned Collection has no published version
// (Version() == -1) until the first BuildAndPublish call.
func CreateCollection(dir string, cfg *CollectionConfig) (*Collection, error) {
	if err := collection.Create(dir, cfg.inner); err != nil {
		return nil, err
	}
	return OpenCollection(dir, cfg.distance)
}

// OpenCollection opens an existing collection directory, resolving
// its latest published version. A Metrics set is constructed once per
// Collection, against its own private registry (see obs.NewMetrics),
// and threaded down through every segment it opens or builds, in the
// teacher's Database-constructs-once/Collection-receives style.
func OpenCollection(dir string, distance func(a, b []float32) float32) (*Collection, error) {
	metrics := obs.NewMetrics()
	inner, err := collection.Open(dir, distance, metrics)
	if err != nil {
		return nil, err
	}
	return &Collection{dir: dir, inner: inner, distance: distance, metrics: metrics}, nil
}

// Metrics returns this Collection's private Prometheus registry, for
// callers that want to scrape or export it.
func (c *Collection) Metrics() *obs.Metrics {
	return c.metrics
}

// Version returns the currently-exposed snapshot's version number, or
// -1 before any BuildAndPublish call.
func (c *Collection) Version() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Version()
}

// SegmentInput is one Multi-SPANN segment's build-time data: a unique
// name (the directory this segment will live in, relative to the
// collection) and its per-user input rows.
type SegmentInput struct {
	Name  string
	Users []multispann.UserInput
}

// BuildAndPublish builds every entry in segments as a new Multi-SPANN
// segment directory under the collection, then publishes a new
// version whose TOC names every segment the current version already
// exposes plus the newly built ones — the offline-writer half of
// spec.md §4.6's "built by an offline writer, then sealed, then a
// version pointer is bumped" lifecycle.
func (c *Collection) BuildAndPublish(ctx context.Context, segments []SegmentInput, codecType codec.Type) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("spanndb: collection is closed")
	}

	start := time.Now()
	defer func() {
		c.metrics.ObserveBuild(time.Since(start).Seconds(), err != nil)
	}()

	cfg := c.inner.Config()
	ivfCfg := ivf.Config{
		NumClusters:                cfg.NumClusters,
		MaxClustersPerVector:       cfg.MaxClustersPerVector,
		DistanceThreshold:          cfg.DistanceThreshold,
		MaxPostingListSize:         cfg.MaxPostingListSize,
		NumDataPointsForClustering: cfg.NumDataPointsForClustering,
		MaxIteration:               cfg.MaxIteration,
		Tolerance:                  cfg.Tolerance,
		NumFeatures:                cfg.NumFeatures,
		BaseDirectory:              filepath.Join(c.dir, ".build-scratch"),
		MemorySize:                 1 << 26,
		FileSize:                   1 << 28,
		CodecType:                  codecType,
		QuantizerType:              cfg.QuantizerType,
		Subspaces:                  cfg.Subspaces,
	}
	hnswCfg := hnsw.Config{
		M:              cfg.MaxNeighbors,
		EfConstruction: cfg.EfConstruction,
		ML:             1.0 / math.Log(2.0),
		RandomSeed:     1,
	}

	names := make([]string, 0, len(segments))
	for _, seg := range segments {
		segDir := filepath.Join(c.dir, seg.Name)
		if err := multispann.Build(ctx, segDir, ivfCfg, hnswCfg, codecType, c.distance, seg.Users, c.metrics); err != nil {
			if errors.Is(err, ivf.ErrBuildFailed) {
				return fmt.Errorf("%w: segment %q: %w", ErrBuildFailed, seg.Name, err)
			}
			return fmt.Errorf("spanndb: building segment %q: %w", seg.Name, err)
		}
		names = append(names, seg.Name)
	}

	return c.inner.PublishVersion(names)
}

// Search runs SearchWithID(0, ...), per spec.md §4.5's single-tenant
// convention.
func (c *Collection) Search(query []float32, k, p int) (*SearchResults, error) {
	return c.SearchWithID(0, query, k, p)
}

// SearchWithID resolves userID against the current snapshot and
// returns its top-k matches. An unrecognized userID yields a
// zero-length, non-nil Results slice and a nil error — spec.md §7
// classifies UnknownUser as "not a Go error".
func (c *Collection) SearchWithID(userID uint64, query []float32, k, p int) (*SearchResults, error) {
	c.mu.Lock()
	inner := c.inner
	c.mu.Unlock()

	start := time.Now()
	results, _, err := inner.SearchWithID(userID, query, k, p)
	took := time.Since(start)
	c.metrics.ObserveSearch(took.Seconds(), err)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []idscore.IdWithScore{}
	}
	return &SearchResults{Results: results, Took: took}, nil
}

// Close releases every segment the current snapshot holds open.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.inner.Close()
}
