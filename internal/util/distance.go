package util

import (
	"fmt"
	"math"

	"golang.org/x/sys/cpu"
)

// Metric selects which distance kernel a space uses to rank candidates.
type Metric int

const (
	L2Distance Metric = iota
	InnerProduct
	CosineDistance
)

func (m Metric) String() string {
	switch m {
	case L2Distance:
		return "l2"
	case InnerProduct:
		return "ip"
	case CosineDistance:
		return "cosine"
	default:
		return "unknown"
	}
}

// DistanceFunc computes the distance between two equal-length dense vectors.
// Smaller is closer; callers rank candidates by ascending distance regardless
// of metric, which is why InnerProduct returns 1 minus the dot product.
type DistanceFunc func(a, b []float32) float32

// GetDistanceFunc returns the kernel for metric, dispatching to the widest
// available unrolled path. Go has no SIMD intrinsics, so "dispatch" here
// means picking a loop shape matched to the vector width rather than
// selecting an assembly routine; hasAVX2 only widens the unroll factor.
//
// Cosine is implemented as inner-product over unit-normalized vectors: the
// kernel itself is just IP, and normalization is the caller index's
// responsibility at insert/query time (NormalizesVectors reports when
// that's required), not something this kernel does per call.
func GetDistanceFunc(metric Metric) (DistanceFunc, error) {
	switch metric {
	case L2Distance:
		return L2, nil
	case InnerProduct, CosineDistance:
		return IP, nil
	default:
		return nil, fmt.Errorf("unsupported distance metric: %v", metric)
	}
}

// NormalizesVectors reports whether metric requires vectors to be
// unit-normalized before they reach the distance kernel.
func NormalizesVectors(metric Metric) bool {
	return metric == CosineDistance
}

// hasAVX2 is read once at init; it only affects the unroll width chosen by
// the bucketed kernels below, never correctness.
var hasAVX2 = cpu.X86.HasAVX2

// L2 returns squared Euclidean distance. Squared, not rooted: HGraph and
// SINDI only ever compare distances against each other, and skipping the
// sqrt avoids float64 round-trips on every edge relaxation.
func L2(a, b []float32) float32 {
	n := len(a)
	if n != len(b) {
		panic("util: vector dimensions must match")
	}
	switch {
	case n%16 == 0 && hasAVX2:
		return l2Unroll16(a, b)
	case n%4 == 0:
		return l2Unroll4(a, b)
	default:
		return l2Residual(a, b)
	}
}

func l2Unroll16(a, b []float32) float32 {
	var s0, s1, s2, s3 float32
	for i := 0; i < len(a); i += 16 {
		for j := 0; j < 16; j += 4 {
			d0 := a[i+j] - b[i+j]
			d1 := a[i+j+1] - b[i+j+1]
			d2 := a[i+j+2] - b[i+j+2]
			d3 := a[i+j+3] - b[i+j+3]
			s0 += d0 * d0
			s1 += d1 * d1
			s2 += d2 * d2
			s3 += d3 * d3
		}
	}
	return s0 + s1 + s2 + s3
}

func l2Unroll4(a, b []float32) float32 {
	var sum float32
	for i := 0; i < len(a); i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		sum += d0*d0 + d1*d1 + d2*d2 + d3*d3
	}
	return sum
}

func l2Residual(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// IP returns 1 minus the dot product, the ranking-distance convention used
// throughout this index so the max-heap that drives every search ranks
// "closer = smaller" regardless of metric.
func IP(a, b []float32) float32 {
	n := len(a)
	if n != len(b) {
		panic("util: vector dimensions must match")
	}
	var sum float32
	switch {
	case n%16 == 0 && hasAVX2:
		var s0, s1, s2, s3 float32
		for i := 0; i < n; i += 16 {
			for j := 0; j < 16; j += 4 {
				s0 += a[i+j] * b[i+j]
				s1 += a[i+j+1] * b[i+j+1]
				s2 += a[i+j+2] * b[i+j+2]
				s3 += a[i+j+3] * b[i+j+3]
			}
		}
		sum = s0 + s1 + s2 + s3
	default:
		for i := range a {
			sum += a[i] * b[i]
		}
	}
	return 1 - sum
}

// Normalize returns a unit-length copy of v. A zero-norm vector comes back
// as a zero copy rather than dividing by zero; IP against it then yields
// distance 1 (dot product 0), the same "maximally distant" convention a
// cosine kernel would give a zero vector directly.
func Normalize(v []float32) []float32 {
	var normSq float32
	for _, x := range v {
		normSq += x * x
	}
	out := make([]float32, len(v))
	if normSq == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(float64(normSq)))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// SparseDotFunc computes similarity between two sorted sparse term/weight
// lists sharing a term-id space, used by SINDI's accumulator and two-stage
// scorers. termIDs within each vector must be strictly ascending.
type SparseDotFunc func(aIDs []uint32, aWeights []float32, bIDs []uint32, bWeights []float32) float32

// SparseDot performs a merge-join over two sorted (termID, weight) lists and
// returns the dot product restricted to shared terms.
func SparseDot(aIDs []uint32, aWeights []float32, bIDs []uint32, bWeights []float32) float32 {
	var sum float32
	i, j := 0, 0
	for i < len(aIDs) && j < len(bIDs) {
		switch {
		case aIDs[i] == bIDs[j]:
			sum += aWeights[i] * bWeights[j]
			i++
			j++
		case aIDs[i] < bIDs[j]:
			i++
		default:
			j++
		}
	}
	return sum
}
