// Package window provides the cosine-sum analysis windows used by the
// distortion measurement.
package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeBlackmanHarris4Term
	TypeFlatTop
)

// Metadata holds spectral properties of a window type.
type Metadata struct {
	Name string
	// ENBW is the equivalent noise bandwidth in bins.
	ENBW float64
	// CoherentGain is the mean coefficient value (amplitude correction).
	CoherentGain float64
	// MainLobeBins is the half-width of the main lobe in bins, the
	// distance from the peak to the first spectral minimum.
	MainLobeBins int
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic selects the periodic form (FFT framing) instead of the
// symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

var coefficients = map[Type][]float64{
	TypeRectangular:         {1},
	TypeHann:                {0.5, 0.5},
	TypeHamming:             {0.54, 0.46},
	TypeBlackman:            {0.42, 0.5, 0.08},
	TypeBlackmanHarris4Term: {0.35875, 0.48829, 0.14128, 0.01168},
	TypeFlatTop:             {0.21557895, 0.41663158, 0.277263158, 0.083578947, 0.006947368},
}

var metadataByType = map[Type]Metadata{
	TypeRectangular:         {Name: "Rectangular", ENBW: 1, CoherentGain: 1, MainLobeBins: 1},
	TypeHann:                {Name: "Hann", ENBW: 1.5, CoherentGain: 0.5, MainLobeBins: 2},
	TypeHamming:             {Name: "Hamming", ENBW: 1.3628, CoherentGain: 0.54, MainLobeBins: 2},
	TypeBlackman:            {Name: "Blackman", ENBW: 1.7268, CoherentGain: 0.42, MainLobeBins: 3},
	TypeBlackmanHarris4Term: {Name: "Blackman-Harris", ENBW: 2.0044, CoherentGain: 0.35875, MainLobeBins: 4},
	TypeFlatTop:             {Name: "Flat top", ENBW: 3.7702, CoherentGain: 0.21557895, MainLobeBins: 5},
}

// Generate returns window coefficients of the given length. Unknown types
// fall back to Hann.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}
	out := make([]float64, length)
	Fill(t, out, opts...)
	return out
}

// Fill writes window coefficients into dst.
func Fill(t Type, dst []float64, opts ...Option) {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	a, ok := coefficients[t]
	if !ok {
		a = coefficients[TypeHann]
	}

	n := len(dst)
	span := float64(n - 1)
	if cfg.periodic || n == 1 {
		span = float64(n)
	}

	for i := range dst {
		x := 2 * math.Pi * float64(i) / span
		v, sign := 0.0, 1.0
		for k, ak := range a {
			v += sign * ak * math.Cos(float64(k)*x)
			sign = -sign
		}
		dst[i] = v
	}
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}
	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// Info returns static metadata for a window type.
func Info(t Type) Metadata {
	return metadataByType[t]
}
