package level

import (
	"math"
	"sync/atomic"
)

// Meter is a PPM-style peak meter: instant attack, exponential release,
// updated once per block. Update is called from the audio goroutine; Value
// may be read from any goroutine.
type Meter struct {
	sampleRate float64
	releaseMs  float64
	// per-sample release coefficient
	decay float64

	level atomic.Uint64
}

// NewMeter creates a peak meter with the given options.
func NewMeter(opts ...MeterOption) *Meter {
	cfg := ApplyMeterOptions(opts...)
	m := &Meter{
		sampleRate: cfg.SampleRate,
		releaseMs:  cfg.ReleaseMs,
	}
	m.decay = math.Exp(-1 / (m.releaseMs * 0.001 * m.sampleRate))
	return m
}

// Update feeds one block and returns the new meter value.
func (m *Meter) Update(block []float64) float64 {
	v := m.Value() * math.Pow(m.decay, float64(len(block)))
	if peak := Peak(block); peak > v {
		v = peak
	}
	m.level.Store(math.Float64bits(v))
	return v
}

// Value returns the current meter value (linear).
func (m *Meter) Value() float64 {
	return math.Float64frombits(m.level.Load())
}

// Reset drops the meter to zero.
func (m *Meter) Reset() {
	m.level.Store(0)
}

// SampleRate returns the sample rate in Hz.
func (m *Meter) SampleRate() float64 { return m.sampleRate }

// ReleaseMs returns the release time constant in milliseconds.
func (m *Meter) ReleaseMs() float64 { return m.releaseMs }
