package multispann

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/xDarkicex/spanndb/internal/idscore"
	"github.com/xDarkicex/spanndb/internal/obs"
	"github.com/xDarkicex/spanndb/internal/quant"
	"github.com/xDarkicex/spanndb/internal/spann"
)

// Segment is an opened Multi-SPANN segment directory: the mmap'd
// user_index_info table plus the concurrent cache of decoded per-user
// Spann instances, per spec.md §4.5's search_with_id state machine.
type Segment struct {
	dir           string
	table         *HashTable
	cache         *ShardMap
	numFeatures   int
	subspaces     int
	quantizerType quant.Type
	distance      func(a, b []float32) float32
	metrics       *obs.Metrics
}

// Open mmaps dir's user_index_info table and returns a ready-to-query
// Segment. numFeatures/subspaces/quantizerType/distance describe every
// user's IVF segment identically, matching this implementation's
// choice to share one quantizer configuration per Multi-SPANN segment
// (see DESIGN.md). metrics may be nil and is forwarded to every
// per-user Spann instance this Segment opens.
func Open(dir string, numFeatures, subspaces int, quantizerType quant.Type, distance func(a, b []float32) float32, metrics *obs.Metrics) (*Segment, error) {
	table, err := OpenHashTable(filepath.Join(dir, "user_index_info"))
	if err != nil {
		return nil, err
	}
	return &Segment{
		dir:           dir,
		table:         table,
		cache:         NewShardMap(),
		numFeatures:   numFeatures,
		subspaces:     subspaces,
		quantizerType: quantizerType,
		distance:      distance,
		metrics:       metrics,
	}, nil
}

// Close unmaps the hash table. Cached per-user Spann instances are not
// explicitly closed here since they hold their own mmaps that remain
// valid independently; callers that need a hard shutdown should stop
// issuing searches and let the process exit.
func (s *Segment) Close() error { return s.table.Close() }

func (s *Segment) layoutFor(off Offsets) spann.Layout {
	slot := strconv.FormatUint(off.IVFIndexOffset, 10)
	return spann.Layout{
		CentroidsPath: filepath.Join(s.dir, "centroids", slot),
		IVFDir:        filepath.Join(s.dir, "ivf", slot),
	}
}

// SearchWithID resolves userID to its Spann instance (via cache, then
// the on-disk hash table, instantiating and caching on a miss) and
// dispatches the search. found is false when userID is not present in
// this segment — an ErrUnknownUser condition that is not a Go error,
// per spec.md §7.
func (s *Segment) SearchWithID(userID uint64, query []float32, k, p int) (results []idscore.IdWithScore, found bool, err error) {
	key := NewUserID(userID)

	if cached, ok := s.cache.Get(key); ok {
		res, err := cached.Search(query, k, p)
		return res, true, err
	}

	off, ok := s.table.Lookup(key)
	if !ok {
		return nil, false, nil
	}

	instance, err := s.cache.GetOrInsert(key, func() (*spann.Spann, error) {
		return spann.Open(s.layoutFor(off), s.numFeatures, s.subspaces, s.quantizerType, s.distance, s.metrics)
	})
	if err != nil {
		return nil, true, fmt.Errorf("multispann: instantiating user %d: %w", userID, err)
	}

	res, err := instance.Search(query, k, p)
	return res, true, err
}

// Search is SearchWithID(0, ...), per spec.md §4.5.
func (s *Segment) Search(query []float32, k, p int) ([]idscore.IdWithScore, error) {
	res, _, err := s.SearchWithID(0, query, k, p)
	return res, err
}
