// Package testutil holds signal generators and slice assertions shared by
// the package tests.
package testutil

import (
	"math"
	"math/rand"
	"testing"
)

// DeterministicSine returns length samples of a sine at freqHz starting at
// phase zero.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	w := 2 * math.Pi * freqHz / sampleRate
	for n := range out {
		out[n] = amplitude * math.Sin(w*float64(n))
	}
	return out
}

// DeterministicNoise returns uniform white noise in [-amplitude, amplitude).
// The same seed always yields the same samples.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, length)
	for n := range out {
		out[n] = amplitude * (2*rng.Float64() - 1)
	}
	return out
}

// DC returns length copies of value.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for n := range out {
		out[n] = value
	}
	return out
}

// Float32 narrows a float64 signal to the working precision.
func Float32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

// Float64 widens a float32 signal to host precision.
func Float64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// SineF32 is DeterministicSine narrowed to float32.
func SineF32(freqHz, sampleRate, amplitude float64, length int) []float32 {
	return Float32(DeterministicSine(freqHz, sampleRate, amplitude, length))
}

// RequireSliceEqualF32 fails t unless got and want are bit-identical.
func RequireSliceEqualF32(t *testing.T, got, want []float32) {
	t.Helper()
	requireSameLen(t, len(got), len(want))
	for i := range got {
		if math.Float32bits(got[i]) != math.Float32bits(want[i]) {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// RequireSliceNearlyEqualF32 fails t if any element pair differs by more
// than eps.
func RequireSliceNearlyEqualF32(t *testing.T, got, want []float32, eps float64) {
	t.Helper()
	requireSameLen(t, len(got), len(want))
	for i := range got {
		if diff := math.Abs(float64(got[i]) - float64(want[i])); diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFiniteF32 fails t on the first NaN or Inf.
func RequireFiniteF32(t *testing.T, data []float32) {
	t.Helper()
	for i, v := range data {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsF32 returns the largest absolute sample value, 0 for an empty slice.
func MaxAbsF32(x []float32) float64 {
	peak := 0.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	return peak
}

func requireSameLen(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("length mismatch: got %d, want %d", got, want)
	}
}
