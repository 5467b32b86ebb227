//go:build fastmath

package effects

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// ln2 is the natural logarithm of 2, used for log base conversions.
const ln2 = 0.69314718055994530942

// pow2 computes 2^x using fast approximation.
// Uses the identity: 2^x = e^(x * ln(2))
func pow2(x float32) float32 {
	return approx.FastExp(x * ln2)
}

// expDecay computes e^-x. Coefficients are derived once per parameter
// change, so the standard library is used here.
func expDecay(x float64) float64 {
	return math.Exp(-x)
}
