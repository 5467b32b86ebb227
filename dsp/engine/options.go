package engine

import (
	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-lofi/dsp/effects"
)

// Option mutates engine construction parameters.
type Option func(*config) error

type config struct {
	proc           core.ProcessorConfig
	crusher        effects.Stage
	limiter        effects.Stage
	limiterEnabled bool
}

// WithSampleRate sets the initial sample rate in Hz (default 44100).
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *config) error {
		core.WithSampleRate(sampleRate)(&cfg.proc)
		return nil
	}
}

// WithBlockSize pre-sizes the scratch buffers for callbacks of n frames
// (default 512) so the first callback of that size does not allocate. Zero
// defers allocation to the first callback.
func WithBlockSize(n int) Option {
	return func(cfg *config) error {
		core.WithBlockSize(n)(&cfg.proc)
		return nil
	}
}

// WithBitCrusher replaces the default bit crusher stage. Stages that also
// implement CrushController receive SetResolution and SetLFO updates.
func WithBitCrusher(s effects.Stage) Option {
	return func(cfg *config) error {
		cfg.crusher = s
		return nil
	}
}

// WithLimiter replaces the default limiter stage.
func WithLimiter(s effects.Stage) Option {
	return func(cfg *config) error {
		cfg.limiter = s
		return nil
	}
}

// WithLimiterEnabled sets the initial limiter state (default off).
func WithLimiterEnabled(enabled bool) Option {
	return func(cfg *config) error {
		cfg.limiterEnabled = enabled
		return nil
	}
}
