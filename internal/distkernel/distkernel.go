// Package distkernel implements the distance kernels shared by the IVF
// and HNSW indexes. Smaller always means more similar: L2 returns the
// Euclidean distance, dot product returns the negated inner product so
// that both kernels order candidates the same way.
package distkernel

import "math"

// Kernel computes a similarity-ordered distance between two equal-length
// vectors. Behavior is undefined when len(a) != len(b).
type Kernel interface {
	Calculate(a, b []float32) float32
	CalculateSquared(a, b []float32) float32
}

// Streaming accumulates partial distance contributions across multiple
// calls to Stream and produces the final distance on Finalize. Finalize
// resets the internal accumulators so the kernel can be reused.
type Streaming interface {
	Stream(a, b []float32)
	Finalize() float32
}

// scalarTailThreshold is the dimension below which the lane-cascade is
// skipped in favor of a plain scalar loop (spec: dimension < 32).
const scalarTailThreshold = 32

// accumulateSquaredDiff runs the 16/8/4-wide lane cascade over a and b,
// then a scalar loop over the remainder, and returns each lane width's
// partial sum of squared differences separately. The caller sums them.
func accumulateSquaredDiff(a, b []float32) (sum16, sum8, sum4, sum1 float32) {
	n := len(a)

	i := 0
	for ; n-i >= 16; i += 16 {
		for j := 0; j < 16; j++ {
			d := a[i+j] - b[i+j]
			sum16 += d * d
		}
	}
	for ; n-i >= 8; i += 8 {
		for j := 0; j < 8; j++ {
			d := a[i+j] - b[i+j]
			sum8 += d * d
		}
	}
	for ; n-i >= 4; i += 4 {
		for j := 0; j < 4; j++ {
			d := a[i+j] - b[i+j]
			sum4 += d * d
		}
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		sum1 += d * d
	}
	return
}

func accumulateProduct(a, b []float32) (sum16, sum8, sum4, sum1 float32) {
	n := len(a)

	i := 0
	for ; n-i >= 16; i += 16 {
		for j := 0; j < 16; j++ {
			sum16 += a[i+j] * b[i+j]
		}
	}
	for ; n-i >= 8; i += 8 {
		for j := 0; j < 8; j++ {
			sum8 += a[i+j] * b[i+j]
		}
	}
	for ; n-i >= 4; i += 4 {
		for j := 0; j < 4; j++ {
			sum4 += a[i+j] * b[i+j]
		}
	}
	for ; i < n; i++ {
		sum1 += a[i] * b[i]
	}
	return
}

// L2Kernel is the Euclidean distance kernel. The zero value is ready to use.
type L2Kernel struct {
	acc16, acc8, acc4, acc1 float32
}

// NewL2Kernel returns a ready-to-use L2 kernel.
func NewL2Kernel() *L2Kernel { return &L2Kernel{} }

func (k *L2Kernel) reset() {
	k.acc16, k.acc8, k.acc4, k.acc1 = 0, 0, 0, 0
}

func (k *L2Kernel) reduce() float32 {
	return float32(math.Sqrt(float64(k.acc16 + k.acc8 + k.acc4 + k.acc1)))
}

// Calculate returns the Euclidean distance between a and b.
func (k *L2Kernel) Calculate(a, b []float32) float32 {
	if len(a) < scalarTailThreshold {
		return CalculateScalarL2(a, b)
	}
	k.acc16, k.acc8, k.acc4, k.acc1 = accumulateSquaredDiff(a, b)
	res := k.reduce()
	k.reset()
	return res
}

// CalculateSquared returns the squared Euclidean distance, skipping the
// square root when only relative ordering is needed.
func (k *L2Kernel) CalculateSquared(a, b []float32) float32 {
	s16, s8, s4, s1 := accumulateSquaredDiff(a, b)
	return s16 + s8 + s4 + s1
}

// Stream accumulates a partial segment of a and b into the running total.
func (k *L2Kernel) Stream(a, b []float32) {
	s16, s8, s4, s1 := accumulateSquaredDiff(a, b)
	k.acc16 += s16
	k.acc8 += s8
	k.acc4 += s4
	k.acc1 += s1
}

// Finalize returns the accumulated L2 distance and resets the accumulators.
func (k *L2Kernel) Finalize() float32 {
	res := k.reduce()
	k.reset()
	return res
}

// CalculateScalarL2 is the plain scalar fallback, used directly for short
// vectors and exercised by tests to bound the lane cascade's error.
func CalculateScalarL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// DotProductKernel is the negated-inner-product kernel: two vectors
// pointing the same direction have the most negative (smallest) score.
type DotProductKernel struct {
	acc16, acc8, acc4, acc1 float32
}

// NewDotProductKernel returns a ready-to-use dot-product kernel.
func NewDotProductKernel() *DotProductKernel { return &DotProductKernel{} }

func (k *DotProductKernel) reset() {
	k.acc16, k.acc8, k.acc4, k.acc1 = 0, 0, 0, 0
}

// Calculate returns -sum(a_i * b_i).
func (k *DotProductKernel) Calculate(a, b []float32) float32 {
	if len(a) < scalarTailThreshold {
		return CalculateScalarDotProduct(a, b)
	}
	s16, s8, s4, s1 := accumulateProduct(a, b)
	return -(s16 + s8 + s4 + s1)
}

// CalculateSquared for dot product is the same negated inner product;
// there is no separate "squared" form worth skipping a sqrt for.
func (k *DotProductKernel) CalculateSquared(a, b []float32) float32 {
	return k.Calculate(a, b)
}

// Stream accumulates a partial segment's raw (non-negated) product sum.
func (k *DotProductKernel) Stream(a, b []float32) {
	s16, s8, s4, s1 := accumulateProduct(a, b)
	k.acc16 += s16
	k.acc8 += s8
	k.acc4 += s4
	k.acc1 += s1
}

// Finalize negates and returns the accumulated product, then resets.
func (k *DotProductKernel) Finalize() float32 {
	res := -(k.acc16 + k.acc8 + k.acc4 + k.acc1)
	k.reset()
	return res
}

// CalculateScalarDotProduct is the plain scalar fallback.
func CalculateScalarDotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return -sum
}

// ByName is the tagged-variant lookup used at index-open time. Unknown
// names are a construction-time config error (ErrConfigInvalid in the
// root package), not something this package surfaces itself.
func ByName(name string) (Kernel, bool) {
	switch name {
	case "l2":
		return NewL2Kernel(), true
	case "dot_product":
		return NewDotProductKernel(), true
	default:
		return nil, false
	}
}
