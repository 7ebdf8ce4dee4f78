package quant

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/xDarkicex/spanndb/internal/distkernel"
)

func l2(a, b []float32) float32 { return distkernel.NewL2Kernel().Calculate(a, b) }

func TestNoQuantizerRoundTrip(t *testing.T) {
	q := NewNoQuantizer(4, l2)
	v := []float32{1, 2, 3, 4}
	code, err := q.Quantize(v)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	d, err := q.DistanceToQuery(code, v)
	if err != nil {
		t.Fatalf("DistanceToQuery: %v", err)
	}
	if d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestNoQuantizerPersistenceIsNoOp(t *testing.T) {
	q := NewNoQuantizer(4, l2)
	dir := t.TempDir()
	if err := q.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := q.Read(dir); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestProductQuantizerTrainQuantizeDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	dim, subspaces := 8, 4
	pq, err := NewProductQuantizer(dim, subspaces, l2)
	if err != nil {
		t.Fatalf("NewProductQuantizer: %v", err)
	}

	var vectors [][]float32
	for i := 0; i < 64; i++ {
		v := make([]float32, dim)
		for d := range v {
			v[d] = rng.Float32() * 10
		}
		vectors = append(vectors, v)
	}

	if err := pq.Train(context.Background(), vectors); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if pq.QuantizedDim() != subspaces {
		t.Fatalf("QuantizedDim() = %d, want %d", pq.QuantizedDim(), subspaces)
	}

	probe := vectors[0]
	code, err := pq.Quantize(probe)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if len(code) != subspaces {
		t.Fatalf("code length = %d, want %d", len(code), subspaces)
	}

	d, err := pq.DistanceToQuery(code, probe)
	if err != nil {
		t.Fatalf("DistanceToQuery: %v", err)
	}
	// Quantization is lossy but a vector quantized from itself should
	// score close to (not necessarily exactly) zero.
	if d > 5 {
		t.Errorf("self-distance after quantization = %v, expected small", d)
	}
}

func TestProductQuantizerRejectsIndivisibleDimension(t *testing.T) {
	if _, err := NewProductQuantizer(10, 3, l2); err == nil {
		t.Fatal("expected error for dim not divisible by subspaces")
	}
}

func TestProductQuantizerPersistence(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	dim, subspaces := 4, 2
	pq, err := NewProductQuantizer(dim, subspaces, l2)
	if err != nil {
		t.Fatalf("NewProductQuantizer: %v", err)
	}
	var vectors [][]float32
	for i := 0; i < 20; i++ {
		v := make([]float32, dim)
		for d := range v {
			v[d] = rng.Float32()
		}
		vectors = append(vectors, v)
	}
	if err := pq.Train(context.Background(), vectors); err != nil {
		t.Fatalf("Train: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "quantizer")
	if err := pq.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := NewProductQuantizer(dim, subspaces, l2)
	if err != nil {
		t.Fatalf("NewProductQuantizer: %v", err)
	}
	if err := loaded.Read(dir); err != nil {
		t.Fatalf("Read: %v", err)
	}

	probe := vectors[0]
	wantCode, _ := pq.Quantize(probe)
	gotCode, err := loaded.Quantize(probe)
	if err != nil {
		t.Fatalf("Quantize on loaded quantizer: %v", err)
	}
	for i := range wantCode {
		if wantCode[i] != gotCode[i] {
			t.Errorf("code[%d] = %d, want %d (loaded codebooks differ)", i, gotCode[i], wantCode[i])
		}
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	if _, err := New(Type(99), 4, 2, l2); err == nil {
		t.Fatal("expected error for unknown quantizer type")
	}
}
