//go:build !fastmath

package effects

import "math"

// pow2 computes 2^x using standard library math.
func pow2(x float32) float32 {
	return float32(math.Exp2(float64(x)))
}

// expDecay computes e^-x using standard library math.
func expDecay(x float64) float64 {
	return math.Exp(-x)
}
