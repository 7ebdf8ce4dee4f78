package ivf

import (
	"fmt"
	"log"
	"sort"

	"github.com/xDarkicex/spanndb/internal/idscore"
	"github.com/xDarkicex/spanndb/internal/ivfformat"
	"github.com/xDarkicex/spanndb/internal/obs"
	"github.com/xDarkicex/spanndb/internal/quant"
	"github.com/xDarkicex/spanndb/internal/vecstore"
)

// Reader gives mmap-backed search over a segment written by Write.
// Multiple Readers (and multiple concurrent Search calls on one
// Reader) may be used from many goroutines at once: every read-only
// field is immutable after Open and the mmap pages are shared
// read-only, matching spec.md §5's parallel, thread-safe search model.
type Reader struct {
	index     *ivfformat.Reader
	vectors   *vecstore.FixedFileVectorStorage[byte]
	quantizer quant.Quantizer
	distance  func(a, b []float32) float32
	metrics   *obs.Metrics
}

// Open mmaps the index and vector files named by layout and
// reconstructs the quantizer that built them. metrics may be nil, in
// which case every posting-list scan this Reader performs is simply
// uninstrumented.
func Open(layout Layout, numFeatures, subspaces int, quantizerType quant.Type, distance func(a, b []float32) float32, metrics *obs.Metrics) (*Reader, error) {
	idx, err := ivfformat.Open(layout.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening index file: %v", ErrIndexCorrupt, err)
	}

	quantizer, err := quant.New(quantizerType, numFeatures, subspaces, distance)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("ivf: constructing quantizer: %w", err)
	}
	if err := quantizer.Read(layout.QuantizerDir); err != nil {
		idx.Close()
		return nil, fmt.Errorf("ivf: loading quantizer state: %w", err)
	}

	vectors, err := vecstore.Open[byte](layout.VectorsPath, quantizer.QuantizedDim())
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("%w: opening vector storage: %v", ErrIndexCorrupt, err)
	}

	return &Reader{index: idx, vectors: vectors, quantizer: quantizer, distance: distance, metrics: metrics}, nil
}

// Close unmaps every backing file.
func (r *Reader) Close() error {
	err1 := r.index.Close()
	err2 := r.vectors.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// FindNearestCentroids computes the distance from query to every
// centroid and returns the P closest cluster indices, sorted ascending
// by distance with ties broken by ascending cluster id.
func (r *Reader) FindNearestCentroids(query []float32, p int) ([]int, error) {
	n := r.index.NumClusters()
	if p > n {
		p = n
	}

	type scored struct {
		cluster int
		dist    float32
	}
	scores := make([]scored, n)
	for c := 0; c < n; c++ {
		centroid, err := r.index.Centroid(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
		}
		scores[c] = scored{cluster: c, dist: r.distance(query, centroid)}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].dist != scores[j].dist {
			return scores[i].dist < scores[j].dist
		}
		return scores[i].cluster < scores[j].cluster
	})

	out := make([]int, p)
	for i := 0; i < p; i++ {
		out[i] = scores[i].cluster
	}
	return out, nil
}

// ScanPostingList decodes cluster c's posting list and scores each
// referenced vector against query. A local id whose row is missing
// from vector storage is skipped and logged, tolerating partial
// corruption rather than failing the whole scan — the Rust original's
// `match ... None => {}` behavior, preserved per spec.md §9.
func (r *Reader) ScanPostingList(c int, query []float32) ([]idscore.IdWithScore, error) {
	r.metrics.AddPostingListsScanned(1)

	decoder, err := r.index.PostingList(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	localIDs := decoder.All()
	out := make([]idscore.IdWithScore, 0, len(localIDs))
	for _, localID := range localIDs {
		code, err := r.vectors.Get(int(localID))
		if err != nil {
			log.Printf("ivf: cluster %d: local id %d missing from vector storage, skipping: %v", c, localID, err)
			continue
		}
		score, err := r.quantizer.DistanceToQuery(code, query)
		if err != nil {
			log.Printf("ivf: cluster %d: local id %d distance computation failed, skipping: %v", c, localID, err)
			continue
		}
		docID, err := r.index.DocID(int(localID))
		if err != nil {
			log.Printf("ivf: cluster %d: local id %d has no doc-id mapping, skipping: %v", c, localID, err)
			continue
		}
		out = append(out, idscore.IdWithScore{ID: docID, Score: score})
	}
	r.metrics.AddVectorsScanned(len(out))
	return out, nil
}

// Search runs find-nearest-centroids over P probes then a bounded
// top-K merge across each probed posting list, per spec.md §4.3.
// Returns at most k results, ascending by (score, id).
func (r *Reader) Search(query []float32, k, p int) ([]idscore.IdWithScore, error) {
	clusters, err := r.FindNearestCentroids(query, p)
	if err != nil {
		return nil, err
	}

	heap := idscore.NewBoundedMaxHeap(k)
	for _, c := range clusters {
		candidates, err := r.ScanPostingList(c, query)
		if err != nil {
			return nil, err
		}
		for _, cand := range candidates {
			heap.Push(cand)
		}
	}
	return heap.Drain(), nil
}

// NumVectors returns the segment's declared row count.
func (r *Reader) NumVectors() int { return int(r.index.Header().NumVectors) }
