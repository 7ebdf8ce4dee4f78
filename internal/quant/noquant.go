package quant

import (
	"context"
	"fmt"

	"github.com/xDarkicex/spanndb/internal/memlayout"
)

// NoQuantizer is the identity quantizer: rows are stored as raw
// little-endian float32, and distance-to-query is the plain kernel
// distance. Read/Write are no-ops since there is no codebook state.
type NoQuantizer struct {
	dim      int
	distance func(a, b []float32) float32
}

// NewNoQuantizer returns a quantizer that passes vectors through
// unchanged.
func NewNoQuantizer(dim int, distance func(a, b []float32) float32) *NoQuantizer {
	return &NoQuantizer{dim: dim, distance: distance}
}

func (q *NoQuantizer) Train(ctx context.Context, vectors [][]float32) error { return nil }

func (q *NoQuantizer) QuantizedDim() int { return q.dim * 4 }

func (q *NoQuantizer) Quantize(v []float32) ([]byte, error) {
	if len(v) != q.dim {
		return nil, fmt.Errorf("quant: vector dimension %d does not match %d", len(v), q.dim)
	}
	out := make([]float32, q.dim)
	copy(out, v)
	return memlayout.Float32ToBytes(out), nil
}

func (q *NoQuantizer) DistanceToQuery(code []byte, query []float32) (float32, error) {
	if len(code) != q.dim*4 {
		return 0, fmt.Errorf("quant: code length %d does not match dim*4=%d", len(code), q.dim*4)
	}
	stored := memlayout.ReinterpretFloat32(code)
	return q.distance(stored, query), nil
}

func (q *NoQuantizer) Read(dir string) error  { return nil }
func (q *NoQuantizer) Write(dir string) error { return nil }
