// Package quant implements the Quantizer contract this module's IVF
// builder consumes: quantized_dim/quantize/read/write, plus a
// distance-to-query operation the search path needs. Two
// implementations are provided: NoQuantizer (identity passthrough,
// rows stored as raw float32) and ProductQuantizer (subspace k-means
// codebooks, adapted from the teacher's internal/quant/product.go).
package quant

import (
	"context"
	"fmt"
)

// Type tags which Quantizer implementation a segment was built with,
// persisted in collection_config.json so readers instantiate the
// matching concrete type.
type Type uint8

const (
	NoQuant Type = iota
	ProductQuant
)

func (t Type) String() string {
	switch t {
	case NoQuant:
		return "none"
	case ProductQuant:
		return "product"
	default:
		return "unknown"
	}
}

// Quantizer compresses float32 vectors into a fixed-width byte code
// and scores a code against a live query vector without fully
// decompressing it. Read/Write persist any trained codebook state to
// a segment's quantizer/ directory.
type Quantizer interface {
	// Train fits any codebook parameters (a no-op for NoQuantizer).
	Train(ctx context.Context, vectors [][]float32) error
	// QuantizedDim returns the byte length of one quantized row.
	QuantizedDim() int
	// Quantize compresses a single vector into its code.
	Quantize(v []float32) ([]byte, error)
	// DistanceToQuery scores a stored code against a live query vector,
	// in the same "smaller is more similar" convention as distkernel.
	DistanceToQuery(code []byte, query []float32) (float32, error)
	// Read loads persisted codebook state from dir.
	Read(dir string) error
	// Write persists codebook state to dir.
	Write(dir string) error
}

// New constructs an untrained Quantizer of the given type for vectors
// of dimension dim. subspaces is ignored by NoQuant.
func New(t Type, dim int, subspaces int, distance func(a, b []float32) float32) (Quantizer, error) {
	switch t {
	case NoQuant:
		return NewNoQuantizer(dim, distance), nil
	case ProductQuant:
		return NewProductQuantizer(dim, subspaces, distance)
	default:
		return nil, fmt.Errorf("quant: unknown quantizer type %d", t)
	}
}
