package quant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/xDarkicex/spanndb/internal/kmeans"
)

// maxCentroidsPerSubspace caps each subspace codebook at 256 entries so
// one quantized code byte addresses a centroid directly (8 bits/code),
// matching the teacher's ProductQuantizer at its default Bits: 8.
const maxCentroidsPerSubspace = 256

// ProductQuantizer splits each vector into equal-width subspaces and
// replaces each subvector with the id of its nearest subspace centroid,
// trained independently per subspace via k-means. Adapted from the
// teacher's internal/quant/product.go Train/Compress/DistanceToQuery
// logic, restructured around this package's narrower Quantizer contract
// and this module's internal/kmeans trainer instead of a private
// k-means loop.
type ProductQuantizer struct {
	dim       int
	subspaces int
	subDim    int
	distance  func(a, b []float32) float32

	trained   bool
	centroids [][][]float32 // centroids[subspace][code] -> subvector
}

// NewProductQuantizer prepares an untrained quantizer. dim must be
// evenly divisible by subspaces.
func NewProductQuantizer(dim, subspaces int, distance func(a, b []float32) float32) (*ProductQuantizer, error) {
	if subspaces <= 0 {
		return nil, fmt.Errorf("quant: subspaces must be positive, got %d", subspaces)
	}
	if dim%subspaces != 0 {
		return nil, fmt.Errorf("quant: dimension %d not divisible by subspaces %d", dim, subspaces)
	}
	return &ProductQuantizer{
		dim:       dim,
		subspaces: subspaces,
		subDim:    dim / subspaces,
		distance:  distance,
	}, nil
}

func (pq *ProductQuantizer) Train(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("quant: no training vectors provided")
	}
	for i, v := range vectors {
		if len(v) != pq.dim {
			return fmt.Errorf("quant: training vector %d has dimension %d, want %d", i, len(v), pq.dim)
		}
	}

	numCentroids := maxCentroidsPerSubspace
	if numCentroids > len(vectors) {
		numCentroids = len(vectors)
	}

	centroids := make([][][]float32, pq.subspaces)
	for s := 0; s < pq.subspaces; s++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := s * pq.subDim
		end := start + pq.subDim
		subvectors := make([][]float32, len(vectors))
		for i, v := range vectors {
			subvectors[i] = v[start:end]
		}

		trained, err := kmeans.Train(ctx, subvectors, kmeans.Config{
			K:             numCentroids,
			MaxIterations: 50,
			Tolerance:     1e-4,
			Rand:          rand.New(rand.NewSource(int64(s) + 1)),
			Distance:      pq.distance,
		})
		if err != nil {
			return fmt.Errorf("quant: training subspace %d codebook: %w", s, err)
		}
		centroids[s] = trained
	}

	pq.centroids = centroids
	pq.trained = true
	return nil
}

func (pq *ProductQuantizer) QuantizedDim() int { return pq.subspaces }

func (pq *ProductQuantizer) Quantize(v []float32) ([]byte, error) {
	if !pq.trained {
		return nil, fmt.Errorf("quant: product quantizer not trained")
	}
	if len(v) != pq.dim {
		return nil, fmt.Errorf("quant: vector dimension %d does not match %d", len(v), pq.dim)
	}

	code := make([]byte, pq.subspaces)
	for s := 0; s < pq.subspaces; s++ {
		start := s * pq.subDim
		sub := v[start : start+pq.subDim]
		best := 0
		bestDist := float32(math.Inf(1))
		for c, centroid := range pq.centroids[s] {
			d := pq.distance(sub, centroid)
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
		code[s] = byte(best)
	}
	return code, nil
}

func (pq *ProductQuantizer) DistanceToQuery(code []byte, query []float32) (float32, error) {
	if !pq.trained {
		return 0, fmt.Errorf("quant: product quantizer not trained")
	}
	if len(code) != pq.subspaces {
		return 0, fmt.Errorf("quant: code length %d does not match subspaces %d", len(code), pq.subspaces)
	}
	if len(query) != pq.dim {
		return 0, fmt.Errorf("quant: query dimension %d does not match %d", len(query), pq.dim)
	}

	var total float64
	for s := 0; s < pq.subspaces; s++ {
		start := s * pq.subDim
		sub := query[start : start+pq.subDim]
		idx := int(code[s])
		if idx >= len(pq.centroids[s]) {
			return 0, fmt.Errorf("quant: code %d for subspace %d out of range (have %d centroids)", idx, s, len(pq.centroids[s]))
		}
		d := pq.distance(sub, pq.centroids[s][idx])
		total += float64(d) * float64(d)
	}
	return float32(math.Sqrt(total)), nil
}

// persistedCodebooks is the JSON shape written to dir/codebooks.json —
// this package's equivalent of the teacher's in-memory codebook state,
// made durable the way collection_config.json persists config: plain
// encoding/json, matching the rest of this module's config files.
type persistedCodebooks struct {
	Dim       int         `json:"dim"`
	Subspaces int         `json:"subspaces"`
	SubDim    int         `json:"sub_dim"`
	Centroids [][][]float32 `json:"centroids"`
}

const codebooksFileName = "codebooks.json"

func (pq *ProductQuantizer) Write(dir string) error {
	if !pq.trained {
		return fmt.Errorf("quant: cannot write an untrained product quantizer")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("quant: mkdir %s: %w", dir, err)
	}
	payload := persistedCodebooks{
		Dim:       pq.dim,
		Subspaces: pq.subspaces,
		SubDim:    pq.subDim,
		Centroids: pq.centroids,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("quant: marshal codebooks: %w", err)
	}
	path := filepath.Join(dir, codebooksFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("quant: write %s: %w", path, err)
	}
	return nil
}

func (pq *ProductQuantizer) Read(dir string) error {
	path := filepath.Join(dir, codebooksFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("quant: read %s: %w", path, err)
	}
	var payload persistedCodebooks
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("quant: unmarshal %s: %w", path, err)
	}
	pq.dim = payload.Dim
	pq.subspaces = payload.Subspaces
	pq.subDim = payload.SubDim
	pq.centroids = payload.Centroids
	pq.trained = true
	return nil
}
