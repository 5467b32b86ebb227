package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-lofi/dsp/core"
)

const (
	defaultBitCrusherResolution = 8.0
	defaultBitCrusherLFORate    = 0.5
	defaultBitCrusherLFODepth   = 0.5

	// MinResolution and MaxResolution bound the bit crusher resolution.
	MinResolution = 1.0
	MaxResolution = 32.0

	// transparentResolution is the resolution at and above which an
	// unmodulated crusher passes samples through untouched.
	transparentResolution = 16.0
)

// BitCrusherOption mutates bit crusher construction parameters.
type BitCrusherOption func(*bitCrusherConfig) error

type bitCrusherConfig struct {
	resolution float32
	lfoRate    float32
	lfoDepth   float32
}

func defaultBitCrusherConfig() bitCrusherConfig {
	return bitCrusherConfig{
		resolution: defaultBitCrusherResolution,
		lfoRate:    defaultBitCrusherLFORate,
		lfoDepth:   defaultBitCrusherLFODepth,
	}
}

// WithBitCrusherResolution sets the quantization resolution in bits.
// Fractional values are supported for smooth parameter sweeps.
// Range: [1, 32].
func WithBitCrusherResolution(bits float32) BitCrusherOption {
	return func(cfg *bitCrusherConfig) error {
		if err := validateResolution(bits); err != nil {
			return err
		}
		cfg.resolution = bits
		return nil
	}
}

// WithBitCrusherLFO sets the resolution modulation rate in Hz and depth in
// [0, 1]. Rates below MinLFORate switch the modulation off.
func WithBitCrusherLFO(rateHz, depth float32) BitCrusherOption {
	return func(cfg *bitCrusherConfig) error {
		if err := validateLFO(rateHz, depth); err != nil {
			return err
		}
		cfg.lfoRate = rateHz
		cfg.lfoDepth = depth
		return nil
	}
}

// BitCrusher reduces amplitude resolution for lo-fi aesthetics. Samples are
// snapped to a grid of 2^(bits-1) levels per unit; input is assumed in
// [-1, 1] and values outside are quantized without clipping.
//
// A sine LFO can sweep the resolution downwards:
//
//	bits = resolution - depth*(resolution-1)*(lfo+1)/2
//
// With the LFO off and a resolution of 16 bits or more the crusher is
// transparent and leaves samples bit-identical.
type BitCrusher struct {
	sampleRate float64
	resolution float32
	lfoRate    float32
	lfoDepth   float32

	lfo       *LFO
	lfoActive bool

	// Precomputed quantization levels for the unmodulated path.
	quantLevels float32
}

// NewBitCrusher creates a bit crusher with the given sample rate and optional
// configuration overrides. Defaults: 8 bits, LFO at 0.5 Hz with depth 0.5.
func NewBitCrusher(sampleRate float64, opts ...BitCrusherOption) (*BitCrusher, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("bit crusher sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultBitCrusherConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	lfo, err := NewLFO(sampleRate, float64(cfg.lfoRate))
	if err != nil {
		return nil, err
	}

	bc := &BitCrusher{
		sampleRate: sampleRate,
		resolution: cfg.resolution,
		lfo:        lfo,
	}
	bc.setLFO(cfg.lfoRate, cfg.lfoDepth)
	bc.updateQuantLevels()
	return bc, nil
}

// SetSampleRate updates the sample rate.
func (bc *BitCrusher) SetSampleRate(sampleRate float64) error {
	if err := bc.lfo.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("bit crusher: %w", err)
	}
	bc.sampleRate = sampleRate
	return nil
}

// SetResolution sets the quantization resolution in bits, in [1, 32].
func (bc *BitCrusher) SetResolution(bits float32) error {
	if err := validateResolution(bits); err != nil {
		return err
	}
	bc.resolution = bits
	bc.updateQuantLevels()
	return nil
}

// SetLFO sets the modulation rate in Hz, in [0, 10], and depth in [0, 1].
// Rates below MinLFORate or a zero depth switch the modulation off.
func (bc *BitCrusher) SetLFO(rateHz, depth float32) error {
	if err := validateLFO(rateHz, depth); err != nil {
		return err
	}
	bc.setLFO(rateHz, depth)
	return nil
}

// Reset restarts the LFO at phase 0.
func (bc *BitCrusher) Reset() {
	bc.lfo.Reset()
}

// ProcessSample processes one sample through the bit crusher.
func (bc *BitCrusher) ProcessSample(input float32) float32 {
	if !bc.lfoActive {
		if bc.resolution >= transparentResolution {
			return input
		}
		return quantize(input, bc.quantLevels)
	}

	mod := (bc.lfo.Next() + 1) * 0.5
	bits := bc.resolution - bc.lfoDepth*(bc.resolution-1)*mod
	return quantize(input, pow2(bits-1))
}

// ProcessInPlace applies the bit crusher to buf in place. The LFO advances
// once per sample.
func (bc *BitCrusher) ProcessInPlace(buf []float32) {
	if !bc.lfoActive && bc.resolution >= transparentResolution {
		return
	}
	for i, x := range buf {
		buf[i] = bc.ProcessSample(x)
	}
}

// ProcessChannels applies the bit crusher to every channel of a block. All
// channels see the same LFO trajectory; the LFO advances once per frame.
func (bc *BitCrusher) ProcessChannels(channels [][]float32) {
	start := bc.lfo.phase
	end := start
	for _, ch := range channels {
		bc.lfo.phase = start
		bc.ProcessInPlace(ch)
		end = bc.lfo.phase
	}
	bc.lfo.phase = end
}

// SampleRate returns the sample rate in Hz.
func (bc *BitCrusher) SampleRate() float64 { return bc.sampleRate }

// Resolution returns the unmodulated resolution in bits.
func (bc *BitCrusher) Resolution() float32 { return bc.resolution }

// LFORate returns the configured modulation rate in Hz.
func (bc *BitCrusher) LFORate() float32 { return bc.lfoRate }

// LFODepth returns the modulation depth in [0, 1].
func (bc *BitCrusher) LFODepth() float32 { return bc.lfoDepth }

// LFOActive reports whether the resolution is being modulated.
func (bc *BitCrusher) LFOActive() bool { return bc.lfoActive }

func (bc *BitCrusher) setLFO(rateHz, depth float32) {
	bc.lfoRate = rateHz
	bc.lfoDepth = depth
	bc.lfoActive = rateHz >= MinLFORate && depth > 0
	if bc.lfoActive {
		bc.lfo.SetRate(float64(rateHz))
	}
}

func (bc *BitCrusher) updateQuantLevels() {
	bc.quantLevels = float32(math.Exp2(float64(bc.resolution) - 1))
}

// quantize snaps a sample to the nearest of levels steps per unit.
func quantize(sample, levels float32) float32 {
	return float32(math.Round(float64(sample*levels))) / levels
}

func validateResolution(bits float32) error {
	b := float64(bits)
	if b < MinResolution || b > MaxResolution || math.IsNaN(b) {
		return fmt.Errorf("bit crusher resolution must be in [%g, %g]: %f",
			MinResolution, MaxResolution, bits)
	}
	return nil
}

func validateLFO(rateHz, depth float32) error {
	r, d := float64(rateHz), float64(depth)
	if r < 0 || r > MaxLFORate || math.IsNaN(r) {
		return fmt.Errorf("bit crusher lfo rate must be in [0, %g]: %f", MaxLFORate, rateHz)
	}
	if d < 0 || d > 1 || math.IsNaN(d) {
		return fmt.Errorf("bit crusher lfo depth must be in [0, 1]: %f", depth)
	}
	return nil
}
