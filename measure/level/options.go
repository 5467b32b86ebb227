package level

import "github.com/cwbudde/algo-lofi/dsp/core"

const defaultReleaseMs = 1500.0

// MeterConfig defines configuration for the peak meter.
type MeterConfig struct {
	core.ProcessorConfig
	// ReleaseMs is the time constant of the meter fall-back.
	ReleaseMs float64
}

// MeterOption mutates a MeterConfig.
type MeterOption func(*MeterConfig)

// DefaultMeterConfig returns sensible defaults.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		ProcessorConfig: core.DefaultProcessorConfig(),
		ReleaseMs:       defaultReleaseMs,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) MeterOption {
	return func(cfg *MeterConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithRelease sets the fall-back time constant in milliseconds.
func WithRelease(ms float64) MeterOption {
	return func(cfg *MeterConfig) {
		if ms > 0 {
			cfg.ReleaseMs = ms
		}
	}
}

// ApplyMeterOptions applies zero or more options to the default config.
func ApplyMeterOptions(opts ...MeterOption) MeterConfig {
	cfg := DefaultMeterConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
