package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-lofi/dsp/core"
)

const (
	lfoTableSize = 128

	// MinLFORate and MaxLFORate bound the oscillation rate in Hz.
	MinLFORate = 0.1
	MaxLFORate = 10.0
)

// sineTable holds one sine period.
var sineTable = func() [lfoTableSize]float32 {
	var t [lfoTableSize]float32
	for i := range t {
		t[i] = float32(math.Sin(2 * math.Pi * float64(i) / lfoTableSize))
	}
	return t
}()

// LFO is a wavetable sine oscillator running at sub-audio rates.
// Output is in [-1, 1] and starts at phase 0 (value 0, rising).
type LFO struct {
	sampleRate float64
	rate       float64
	phase      float64
	step       float64
}

// NewLFO returns an oscillator at rateHz, clamped to [MinLFORate, MaxLFORate].
func NewLFO(sampleRate, rateHz float64) (*LFO, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("lfo sample rate must be > 0 and finite: %f", sampleRate)
	}
	l := &LFO{sampleRate: sampleRate}
	l.SetRate(rateHz)
	return l, nil
}

// SetRate changes the rate, clamped to [MinLFORate, MaxLFORate]. The phase
// is kept.
func (l *LFO) SetRate(rateHz float64) {
	switch {
	case math.IsNaN(rateHz) || rateHz < MinLFORate:
		rateHz = MinLFORate
	case rateHz > MaxLFORate:
		rateHz = MaxLFORate
	}
	l.rate = rateHz
	l.updateStep()
}

// SetSampleRate updates the sample rate.
func (l *LFO) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("lfo sample rate must be > 0 and finite: %f", sampleRate)
	}
	l.sampleRate = sampleRate
	l.updateStep()
	return nil
}

// Rate returns the rate in Hz.
func (l *LFO) Rate() float64 { return l.rate }

// Reset restarts the oscillator at phase 0.
func (l *LFO) Reset() { l.phase = 0 }

// Next returns the current value and advances by one sample.
func (l *LFO) Next() float32 {
	i := int(l.phase)
	frac := float32(l.phase - float64(i))
	a := sineTable[i]
	b := sineTable[(i+1)&(lfoTableSize-1)]

	l.phase += l.step
	if l.phase >= lfoTableSize {
		l.phase = math.Mod(l.phase, lfoTableSize)
	}
	return a + (b-a)*frac
}

func (l *LFO) updateStep() {
	l.step = l.rate * lfoTableSize / l.sampleRate
}
