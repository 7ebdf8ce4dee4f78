package ivf

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/xDarkicex/spanndb/internal/distkernel"
	"github.com/xDarkicex/spanndb/internal/kmeans"
	"github.com/xDarkicex/spanndb/internal/quant"
)

// maxSplitRounds bounds the posting-list balancing loop. Exceeding it
// with a posting list still over 3x the soft cap surfaces
// ErrBuildFailed, per spec.md's "iteration cap" design note.
const maxSplitRounds = 20

// BuildResult holds everything a Writer needs to serialize a segment:
// trained centroids, per-cluster posting lists (sorted local ids),
// the doc-id mapping, and the trained quantizer plus its per-row codes.
type BuildResult struct {
	NumVectors   int
	NumFeatures  int
	Centroids    [][]float32 // [cluster][feature]
	PostingLists [][]uint64  // [cluster] -> sorted local ids
	DocIDs       []uint64    // [local_id] -> external doc id
	Quantizer    quant.Quantizer
	QuantizedRows [][]byte // [local_id] -> quantized code
}

// Builder runs the IVF build pipeline: subsample, k-means, multi-assign,
// posting-list balancing. One Builder instance is single-use and
// single-threaded, matching spec.md's "build is single-threaded per
// builder" concurrency model.
type Builder struct {
	cfg      Config
	distance func(a, b []float32) float32
	rng      *rand.Rand
}

// NewBuilder validates cfg and returns a ready-to-run Builder. dist
// selects the distance kernel used for clustering and assignment (L2
// or dot-product, per internal/distkernel.ByName).
func NewBuilder(cfg Config, dist func(a, b []float32) float32) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dist == nil {
		dist = distkernel.CalculateScalarL2
	}
	return &Builder{cfg: cfg, distance: dist, rng: rand.New(rand.NewSource(1))}, nil
}

// Build runs the full pipeline over input and returns the artifacts a
// Writer will serialize.
func (b *Builder) Build(ctx context.Context, input Input) (*BuildResult, error) {
	input.Reset()
	n := input.NumRows()
	if n == 0 {
		return nil, fmt.Errorf("ivf: cannot build from an empty input")
	}

	vectors := make([][]float32, n)
	docIDs := make([]uint64, n)
	for i := 0; i < n; i++ {
		row, err := input.Next()
		if err != nil {
			return nil, fmt.Errorf("ivf: reading input row %d: %w", i, err)
		}
		if len(row.Data) != b.cfg.NumFeatures {
			return nil, fmt.Errorf("ivf: row %d has dimension %d, want %d", i, len(row.Data), b.cfg.NumFeatures)
		}
		vectors[i] = row.Data
		docIDs[i] = row.ID
	}

	numClusters := b.cfg.NumClusters
	if numClusters > n {
		numClusters = n
	}

	trainingSet := subsample(vectors, b.cfg.NumDataPointsForClustering, b.rng)
	centroids, err := kmeans.Train(ctx, trainingSet, kmeans.Config{
		K:             numClusters,
		MaxIterations: b.cfg.MaxIteration,
		Tolerance:     b.cfg.Tolerance,
		Rand:          b.rng,
		Distance:      b.distance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: k-means training: %v", ErrBuildFailed, err)
	}

	postingLists := b.assign(vectors, centroids)

	centroids, postingLists, err = b.rebalance(ctx, vectors, centroids, postingLists)
	if err != nil {
		return nil, err
	}

	for _, list := range postingLists {
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	}

	// Every row is quantized, even under NoQuant: its identity quantizer
	// stores the row as raw float32 bytes, so posting-list scans always
	// read vectors through the same Quantizer.DistanceToQuery path
	// regardless of which quantizer a segment was built with.
	quantizer, err := quant.New(b.cfg.QuantizerType, b.cfg.NumFeatures, b.cfg.Subspaces, b.distance)
	if err != nil {
		return nil, fmt.Errorf("ivf: constructing quantizer: %w", err)
	}
	if err := quantizer.Train(ctx, vectors); err != nil {
		return nil, fmt.Errorf("%w: quantizer training: %v", ErrBuildFailed, err)
	}
	quantizedRows := make([][]byte, n)
	for i, v := range vectors {
		code, err := quantizer.Quantize(v)
		if err != nil {
			return nil, fmt.Errorf("ivf: quantizing row %d: %w", i, err)
		}
		quantizedRows[i] = code
	}

	return &BuildResult{
		NumVectors:    n,
		NumFeatures:   b.cfg.NumFeatures,
		Centroids:     centroids,
		PostingLists:  postingLists,
		DocIDs:        docIDs,
		Quantizer:     quantizer,
		QuantizedRows: quantizedRows,
	}, nil
}

func subsample(vectors [][]float32, n int, rng *rand.Rand) [][]float32 {
	if n <= 0 || n >= len(vectors) {
		return vectors
	}
	idx := rng.Perm(len(vectors))[:n]
	out := make([][]float32, n)
	for i, j := range idx {
		out[i] = vectors[j]
	}
	return out
}

// assign gives every vector its nearest MaxClustersPerVector centroids
// whose distance falls within DistanceThreshold of the single nearest,
// per spec.md §4.3 step 3.
func (b *Builder) assign(vectors [][]float32, centroids [][]float32) [][]uint64 {
	postingLists := make([][]uint64, len(centroids))

	type scored struct {
		cluster int
		dist    float32
	}

	for localID, v := range vectors {
		scores := make([]scored, len(centroids))
		for c, centroid := range centroids {
			scores[c] = scored{cluster: c, dist: b.distance(v, centroid)}
		}
		sort.Slice(scores, func(i, j int) bool {
			if scores[i].dist != scores[j].dist {
				return scores[i].dist < scores[j].dist
			}
			return scores[i].cluster < scores[j].cluster
		})

		best := scores[0].dist
		threshold := best * float32(1+b.cfg.DistanceThreshold)
		assigned := 0
		for _, s := range scores {
			if assigned >= b.cfg.MaxClustersPerVector {
				break
			}
			if s.dist > threshold {
				break
			}
			postingLists[s.cluster] = append(postingLists[s.cluster], uint64(localID))
			assigned++
		}
	}
	return postingLists
}

// rebalance splits any centroid whose posting list exceeds
// MaxPostingListSize into two sub-centroids (via a local 2-means run
// on the overflowing list's vectors), replacing the original and
// appending the new one, then reassigns. Runs until no list overflows
// or maxSplitRounds is exhausted; overflow beyond 3x the cap after
// that is ErrBuildFailed, matching spec.md's soft-cap/overflow note.
func (b *Builder) rebalance(ctx context.Context, vectors [][]float32, centroids [][]float32, postingLists [][]uint64) ([][]float32, [][]uint64, error) {
	cap := b.cfg.MaxPostingListSize

	for round := 0; round < maxSplitRounds; round++ {
		overflowIdx := -1
		for i, list := range postingLists {
			if len(list) > cap {
				overflowIdx = i
				break
			}
		}
		if overflowIdx == -1 {
			return centroids, postingLists, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		list := postingLists[overflowIdx]
		subVectors := make([][]float32, len(list))
		for i, localID := range list {
			subVectors[i] = vectors[localID]
		}

		if len(subVectors) < 2 {
			break
		}

		children, err := kmeans.Train(ctx, subVectors, kmeans.Config{
			K:             2,
			MaxIterations: b.cfg.MaxIteration,
			Tolerance:     b.cfg.Tolerance,
			Rand:          b.rng,
			Distance:      b.distance,
		})
		if err != nil {
			log.Printf("ivf: split round %d: 2-means on overflowing cluster %d failed: %v", round, overflowIdx, err)
			break
		}

		childLists := make([][]uint64, 2)
		for _, localID := range list {
			best, bestDist := 0, float32(math.Inf(1))
			for c, centroid := range children {
				d := b.distance(vectors[localID], centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			childLists[best] = append(childLists[best], localID)
		}

		centroids[overflowIdx] = children[0]
		postingLists[overflowIdx] = childLists[0]
		centroids = append(centroids, children[1])
		postingLists = append(postingLists, childLists[1])
	}

	for i, list := range postingLists {
		if len(list) > cap*3 {
			return nil, nil, fmt.Errorf("%w: posting list %d still holds %d entries (> 3x cap %d) after %d balancing rounds",
				ErrBuildFailed, i, len(list), cap, maxSplitRounds)
		}
	}
	log.Printf("ivf: posting-list balancing stopped after %d rounds with some lists still over the soft cap of %d", maxSplitRounds, cap)
	return centroids, postingLists, nil
}
