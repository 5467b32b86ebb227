package engine

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-lofi/dsp/buffer"
	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-lofi/dsp/effects"
	"github.com/cwbudde/algo-lofi/dsp/tempo"
)

const (
	defaultDryMix = 0.5
	defaultWetMix = 0.5

	defaultResolution = 8
	defaultLFORate    = 0.5
	defaultLFODepth   = 0.5
)

// ErrInvalidChannels is returned by New for a non-positive channel count.
var ErrInvalidChannels = errors.New("engine: channel count must be > 0")

// CrushController is implemented by bit crusher stages whose resolution and
// modulation can be driven by the engine.
type CrushController interface {
	SetResolution(bits float32) error
	SetLFO(rateHz, depth float32) error
}

// Engine is the dry/wet lo-fi mix engine.
type Engine struct {
	channels int

	// Written by any goroutine.
	dry            atomic.Uint32
	wet            atomic.Uint32
	limiterEnabled atomic.Bool
	sampleRate     atomic.Uint64
	timing         tempo.Tracker
	resolution     atomic.Uint32
	lfoRate        atomic.Uint32
	lfoDepth       atomic.Uint32
	crushVersion   atomic.Uint64

	// Audio goroutine only.
	crusher      effects.Stage
	limiter      effects.Stage
	pre          buffer.AudioBuffer
	post         buffer.AudioBuffer
	crushApplied uint64
	stageRate    float64
}

// New creates an engine for the given channel count with the default bit
// crusher (8 bits, 0.5 Hz LFO at depth 0.5), the default limiter (10 ms
// attack, 500 ms release, threshold 0.6, disabled) and dry = wet = 0.5.
func New(channels int, opts ...Option) (*Engine, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	cfg := config{proc: core.DefaultProcessorConfig()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.proc.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	if cfg.crusher == nil {
		bc, err := effects.NewBitCrusher(cfg.proc.SampleRate,
			effects.WithBitCrusherResolution(defaultResolution),
			effects.WithBitCrusherLFO(defaultLFORate, defaultLFODepth),
		)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		cfg.crusher = bc
	}
	if cfg.limiter == nil {
		lim, err := effects.NewLimiter(cfg.proc.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		cfg.limiter = lim
	}

	e := &Engine{
		channels:  channels,
		crusher:   cfg.crusher,
		limiter:   cfg.limiter,
		stageRate: cfg.proc.SampleRate,
	}
	e.SetDryMix(defaultDryMix)
	e.SetWetMix(defaultWetMix)
	e.limiterEnabled.Store(cfg.limiterEnabled)
	e.sampleRate.Store(math.Float64bits(cfg.proc.SampleRate))
	e.timing.SetSampleRate(cfg.proc.SampleRate)
	storeFloat(&e.resolution, defaultResolution)
	storeFloat(&e.lfoRate, defaultLFORate)
	storeFloat(&e.lfoDepth, defaultLFODepth)

	if cfg.proc.BlockSize > 0 {
		e.pre.Ensure(channels, cfg.proc.BlockSize)
		e.post.Ensure(channels, cfg.proc.BlockSize)
	}
	return e, nil
}

// Channels returns the configured channel count.
func (e *Engine) Channels() int { return e.channels }

// SetDryMix sets the dry gain. The value is stored verbatim.
func (e *Engine) SetDryMix(v float32) { storeFloat(&e.dry, v) }

// SetWetMix sets the wet gain. The value is stored verbatim.
func (e *Engine) SetWetMix(v float32) { storeFloat(&e.wet, v) }

// DryMix returns the dry gain.
func (e *Engine) DryMix() float32 { return loadFloat(&e.dry) }

// WetMix returns the wet gain.
func (e *Engine) WetMix() float32 { return loadFloat(&e.wet) }

// SetLimiterEnabled switches the output limiter on or off.
func (e *Engine) SetLimiterEnabled(enabled bool) { e.limiterEnabled.Store(enabled) }

// LimiterEnabled reports whether the output limiter runs.
func (e *Engine) LimiterEnabled() bool { return e.limiterEnabled.Load() }

// SetResolution sets the bit crusher resolution in bits, in [1, 32].
func (e *Engine) SetResolution(bits float32) error {
	b := float64(bits)
	if b < effects.MinResolution || b > effects.MaxResolution || math.IsNaN(b) {
		return fmt.Errorf("engine: resolution must be in [%g, %g]: %f",
			effects.MinResolution, effects.MaxResolution, bits)
	}
	storeFloat(&e.resolution, bits)
	e.crushVersion.Add(1)
	return nil
}

// Resolution returns the last resolution set.
func (e *Engine) Resolution() float32 { return loadFloat(&e.resolution) }

// SetLFO sets the resolution modulation rate in Hz, in [0, 10], and depth
// in [0, 1]. Rates below 0.1 Hz switch modulation off.
func (e *Engine) SetLFO(rateHz, depth float32) error {
	r, d := float64(rateHz), float64(depth)
	if r < 0 || r > effects.MaxLFORate || math.IsNaN(r) {
		return fmt.Errorf("engine: lfo rate must be in [0, %g]: %f", effects.MaxLFORate, rateHz)
	}
	if d < 0 || d > 1 || math.IsNaN(d) {
		return fmt.Errorf("engine: lfo depth must be in [0, 1]: %f", depth)
	}
	storeFloat(&e.lfoRate, rateHz)
	storeFloat(&e.lfoDepth, depth)
	e.crushVersion.Add(1)
	return nil
}

// LFO returns the last modulation rate and depth set.
func (e *Engine) LFO() (rateHz, depth float32) {
	return loadFloat(&e.lfoRate), loadFloat(&e.lfoDepth)
}

// SampleRate returns the current sample rate in Hz.
func (e *Engine) SampleRate() float64 {
	return math.Float64frombits(e.sampleRate.Load())
}

// SetSampleRate replaces the sample rate. Timing windows are recomputed
// from the last tempo and signature; stages pick up the new rate on the
// next callback.
func (e *Engine) SetSampleRate(sampleRate float64) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("engine: sample rate must be > 0 and finite: %f", sampleRate)
	}
	e.sampleRate.Store(math.Float64bits(sampleRate))
	e.timing.SetSampleRate(sampleRate)
	return nil
}

// SetTempo records the host tempo and time signature. Windows are
// recomputed only when tempo, numerator or denominator differ from the
// previous call; SetTempo reports whether that happened. It does not
// allocate and may be called from the audio goroutine.
//
// Arguments are not validated; see tempo.Validate.
func (e *Engine) SetTempo(bpm float64, numerator, denominator int) bool {
	return e.timing.Update(bpm, tempo.Signature{Numerator: numerator, Denominator: denominator})
}

// Windows returns the window lengths derived by the last SetTempo, or the
// zero value before the first call.
func (e *Engine) Windows() tempo.Windows { return e.timing.Windows() }

// Timing returns the current timing record. The second result is false
// before the first SetTempo.
func (e *Engine) Timing() (tempo.Snapshot, bool) { return e.timing.Snapshot() }

// ResetModulation restarts the bit crusher LFO. Audio goroutine only.
func (e *Engine) ResetModulation() {
	if r, ok := e.crusher.(effects.Resetter); ok {
		r.Reset()
	}
}

// Reset clears all stage state. Audio goroutine only.
func (e *Engine) Reset() {
	e.ResetModulation()
	if r, ok := e.limiter.(effects.Resetter); ok {
		r.Reset()
	}
}

// Close releases the scratch buffers and stages. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	e.pre.Release()
	e.post.Release()
	e.crusher = nil
	e.limiter = nil
}

// syncStages applies parameter changes made since the previous callback.
// A change that a stage rejects is retried on the next callback.
func (e *Engine) syncStages() {
	if sr := e.SampleRate(); sr != e.stageRate {
		applied := true
		for _, s := range [...]effects.Stage{e.crusher, e.limiter} {
			if setter, ok := s.(effects.SampleRateSetter); ok {
				if err := setter.SetSampleRate(sr); err != nil {
					applied = false
				}
			}
		}
		if applied {
			e.stageRate = sr
		}
	}

	if v := e.crushVersion.Load(); v != e.crushApplied {
		if c, ok := e.crusher.(CrushController); ok {
			rate, depth := e.LFO()
			if c.SetResolution(e.Resolution()) != nil || c.SetLFO(rate, depth) != nil {
				return
			}
		}
		e.crushApplied = v
	}
}

func storeFloat(dst *atomic.Uint32, v float32) { dst.Store(math.Float32bits(v)) }

func loadFloat(src *atomic.Uint32) float32 { return math.Float32frombits(src.Load()) }
