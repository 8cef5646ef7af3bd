package math

import "math"

// The N-suffixed helpers work on float slices of any length. The
// destination may alias either input. Lengths are taken from dst.

// AddN stores a + b into dst.
func AddN(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

// SubN stores a - b into dst.
func SubN(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

// DotN returns the dot product of a and b over len(a) components.
func DotN(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// ScaleN multiplies every component of v by s in place.
func ScaleN(v []float32, s float32) {
	for i := range v {
		v[i] *= s
	}
}

// NormalizeN stores src divided by its Euclidean norm into dst.
// A zero vector produces NaN components.
func NormalizeN(dst, src []float32) {
	var sum float32
	for _, c := range src {
		sum += c * c
	}
	length := float32(math.Sqrt(float64(sum)))
	for i := range dst {
		dst[i] = src[i] / length
	}
}
