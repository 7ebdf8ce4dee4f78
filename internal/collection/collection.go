package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/xDarkicex/spanndb/internal/idscore"
	"github.com/xDarkicex/spanndb/internal/multispann"
	"github.com/xDarkicex/spanndb/internal/obs"
)

// snapshot is the immutable (version, TOC, segments) triple spec.md
// §4.6/§5 describes. Once published it is never mutated; a new
// version is published as a brand-new snapshot value, and readers
// holding an old snapshot keep it (and its segments) alive for as
// long as they hold the reference — Go's garbage collector plays the
// role of the Rust original's Arc refcounting here.
type snapshot struct {
	version  int
	toc      *TOC
	segments []*multispann.Segment
}

// Collection is an opened collection directory: the validated config
// plus an atomically-swappable current snapshot. SearchWithID loads
// the snapshot once and operates on that fixed view, so a concurrent
// PublishVersion never tears a single search's results.
type Collection struct {
	dir      string
	config   *Config
	distance func(a, b []float32) float32
	metrics  *obs.Metrics
	current  atomic.Pointer[snapshot]
}

// Open reads dir's collection_config.json, resolves the latest
// version_N, opens every segment it names, and returns a ready
// Collection. An empty collection (no version_N file yet) opens
// successfully with an empty snapshot: Version() returns -1 and
// NumSegments() returns 0. metrics may be nil and is forwarded to every
// segment this Collection opens, now and on every future reload.
func Open(dir string, distance func(a, b []float32) float32, metrics *obs.Metrics) (*Collection, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		return nil, err
	}
	c := &Collection{dir: dir, config: cfg, distance: distance, metrics: metrics}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// reload resolves the latest version_N and swaps in a freshly-opened
// snapshot built from it.
func (c *Collection) reload() error {
	n, err := latestVersion(c.dir)
	if err != nil {
		return err
	}
	if n < 0 {
		c.current.Store(&snapshot{version: -1, toc: &TOC{}})
		return nil
	}
	toc, err := readTOC(c.dir, n)
	if err != nil {
		return err
	}
	segments := make([]*multispann.Segment, 0, len(toc.Segments))
	for _, name := range toc.Segments {
		seg, err := multispann.Open(filepath.Join(c.dir, name), c.config.NumFeatures, c.config.Subspaces, c.config.QuantizerType, c.distance, c.metrics)
		if err != nil {
			return fmt.Errorf("collection: opening segment %q at version %d: %w", name, n, err)
		}
		segments = append(segments, seg)
	}
	c.current.Store(&snapshot{version: n, toc: toc, segments: segments})
	return nil
}

// Config returns the collection's validated configuration.
func (c *Collection) Config() *Config { return c.config }

// Version returns the currently-exposed snapshot's version number, or
// -1 if no version_N file has ever been published.
func (c *Collection) Version() int {
	return c.current.Load().version
}

// NumSegments returns how many segments the current snapshot holds.
func (c *Collection) NumSegments() int {
	return len(c.current.Load().segments)
}

// PublishVersion writes segmentNames as version_{Version()+1} and
// reloads the collection so subsequent calls observe the new
// snapshot. Per spec.md §4.6, versions are monotonic and write-once:
// this is the only way a Collection's visible state changes.
func (c *Collection) PublishVersion(segmentNames []string) error {
	next := c.Version() + 1
	if err := writeTOC(c.dir, next, &TOC{Segments: segmentNames}); err != nil {
		return err
	}
	return c.reload()
}

// SearchWithID dispatches to the first segment (in TOC order) that
// recognizes userID, matching this implementation's one-user-per-
// segment sharding model: a user's data lives in exactly one segment
// of a given version. found is false if no segment in the current
// snapshot recognizes userID.
func (c *Collection) SearchWithID(userID uint64, query []float32, k, p int) (results []idscore.IdWithScore, found bool, err error) {
	snap := c.current.Load()
	for _, seg := range snap.segments {
		res, ok, err := seg.SearchWithID(userID, query, k, p)
		if err != nil {
			return nil, true, err
		}
		if ok {
			return res, true, nil
		}
	}
	return nil, false, nil
}

// Search is SearchWithID(0, ...), per spec.md §4.5's single-tenant
// convention.
func (c *Collection) Search(query []float32, k, p int) ([]idscore.IdWithScore, error) {
	res, _, err := c.SearchWithID(0, query, k, p)
	return res, err
}

// Close releases every segment held by the current snapshot.
func (c *Collection) Close() error {
	snap := c.current.Load()
	var firstErr error
	for _, seg := range snap.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Create initializes a brand-new, empty collection directory: writes
// collection_config.json and nothing else. The collection has no
// version_N file (and therefore Version() == -1) until the first
// PublishVersion call.
func Create(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("collection: mkdir %s: %w", dir, err)
	}
	return WriteConfig(dir, cfg)
}
