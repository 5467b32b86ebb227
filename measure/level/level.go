// Package level provides block peak and RMS measurements and a PPM-style
// peak meter for monitoring processed output.
package level

import (
	"math"

	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

// Peak returns the largest absolute sample value of x, or 0 for an empty
// block.
func Peak(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return vecmath.MaxAbs(x)
}

// RMS returns the root mean square of x, or 0 for an empty block.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(vecmath.DotProduct(x, x) / float64(len(x)))
}

// ToDB converts a linear level to dBFS. Zero maps to -Inf.
func ToDB(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return core.LinearToDB(linear)
}
