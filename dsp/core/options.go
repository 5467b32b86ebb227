package core

import "fmt"

// ProcessorConfig holds the sample rate and callback size a processor is
// built for.
type ProcessorConfig struct {
	SampleRate float64
	// BlockSize is the expected callback length. Processors use it to
	// pre-size scratch storage so the first callback does not allocate.
	// Zero defers sizing to the first callback.
	BlockSize int
}

// ProcessorOption mutates a ProcessorConfig. Values are stored as given;
// Validate rejects the ones a processor cannot run with.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns 44.1 kHz with 512-frame callbacks.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: 44100,
		BlockSize:  512,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		cfg.SampleRate = sampleRate
	}
}

// WithBlockSize sets the expected callback length.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		cfg.BlockSize = blockSize
	}
}

// Validate reports an error when the config cannot drive a processor.
func (cfg ProcessorConfig) Validate() error {
	if cfg.SampleRate <= 0 || !IsFinite(cfg.SampleRate) {
		return fmt.Errorf("sample rate must be > 0 and finite: %f", cfg.SampleRate)
	}
	if cfg.BlockSize < 0 {
		return fmt.Errorf("block size must be >= 0: %d", cfg.BlockSize)
	}
	return nil
}
