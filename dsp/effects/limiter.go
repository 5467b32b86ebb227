package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-lofi/dsp/core"
)

const (
	defaultLimiterAttackMs  = 10.0
	defaultLimiterReleaseMs = 500.0
	defaultLimiterThreshold = 0.6

	minLimiterTimeMs = 0.01
	maxLimiterTimeMs = 5000.0
)

// LimiterOption mutates limiter construction parameters.
type LimiterOption func(*limiterConfig) error

type limiterConfig struct {
	attackMs  float64
	releaseMs float64
	threshold float32
}

func defaultLimiterConfig() limiterConfig {
	return limiterConfig{
		attackMs:  defaultLimiterAttackMs,
		releaseMs: defaultLimiterReleaseMs,
		threshold: defaultLimiterThreshold,
	}
}

// WithLimiterAttack sets the envelope attack time in milliseconds.
// Range: [0.01, 5000].
func WithLimiterAttack(ms float64) LimiterOption {
	return func(cfg *limiterConfig) error {
		if err := validateLimiterTime("attack", ms); err != nil {
			return err
		}
		cfg.attackMs = ms
		return nil
	}
}

// WithLimiterRelease sets the envelope release time in milliseconds.
// Range: [0.01, 5000].
func WithLimiterRelease(ms float64) LimiterOption {
	return func(cfg *limiterConfig) error {
		if err := validateLimiterTime("release", ms); err != nil {
			return err
		}
		cfg.releaseMs = ms
		return nil
	}
}

// WithLimiterThreshold sets the ceiling as a linear amplitude in (0, 1].
func WithLimiterThreshold(threshold float32) LimiterOption {
	return func(cfg *limiterConfig) error {
		if err := validateLimiterThreshold(threshold); err != nil {
			return err
		}
		cfg.threshold = threshold
		return nil
	}
}

// Limiter is a peak limiter. A peak envelope follower with separate attack
// and release smoothing drives a gain of threshold/envelope whenever the
// envelope exceeds the threshold. Signals that stay below the threshold
// pass through unchanged.
//
// The attack is not instantaneous, so transients shorter than the attack
// time may briefly exceed the threshold.
type Limiter struct {
	sampleRate float64
	attackMs   float64
	releaseMs  float64
	threshold  float32

	attackCoeff  float32
	releaseCoeff float32

	envelope float32
}

// NewLimiter creates a limiter. Defaults: 10 ms attack, 500 ms release,
// threshold 0.6.
func NewLimiter(sampleRate float64, opts ...LimiterOption) (*Limiter, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("limiter sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultLimiterConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	l := &Limiter{
		sampleRate: sampleRate,
		attackMs:   cfg.attackMs,
		releaseMs:  cfg.releaseMs,
		threshold:  cfg.threshold,
	}
	l.updateCoefficients()
	return l, nil
}

// SetSampleRate updates the sample rate.
func (l *Limiter) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("limiter sample rate must be > 0 and finite: %f", sampleRate)
	}
	l.sampleRate = sampleRate
	l.updateCoefficients()
	return nil
}

// SetAttack sets the attack time in milliseconds.
func (l *Limiter) SetAttack(ms float64) error {
	if err := validateLimiterTime("attack", ms); err != nil {
		return err
	}
	l.attackMs = ms
	l.updateCoefficients()
	return nil
}

// SetRelease sets the release time in milliseconds.
func (l *Limiter) SetRelease(ms float64) error {
	if err := validateLimiterTime("release", ms); err != nil {
		return err
	}
	l.releaseMs = ms
	l.updateCoefficients()
	return nil
}

// SetThreshold sets the linear ceiling in (0, 1].
func (l *Limiter) SetThreshold(threshold float32) error {
	if err := validateLimiterThreshold(threshold); err != nil {
		return err
	}
	l.threshold = threshold
	return nil
}

// Reset clears the envelope.
func (l *Limiter) Reset() {
	l.envelope = 0
}

// ProcessSample processes one sample through the limiter.
func (l *Limiter) ProcessSample(input float32) float32 {
	return input * l.gain(abs32(input))
}

// ProcessInPlace applies the limiter to buf in place.
func (l *Limiter) ProcessInPlace(buf []float32) {
	for i, x := range buf {
		buf[i] = x * l.gain(abs32(x))
	}
}

// ProcessChannels limits a block with one envelope linked across channels:
// the loudest channel of each frame sets the gain for all of them.
func (l *Limiter) ProcessChannels(channels [][]float32) {
	if len(channels) == 0 {
		return
	}
	frames := len(channels[0])
	for i := 0; i < frames; i++ {
		var peak float32
		for _, ch := range channels {
			if a := abs32(ch[i]); a > peak {
				peak = a
			}
		}
		g := l.gain(peak)
		for _, ch := range channels {
			ch[i] *= g
		}
	}
}

// Envelope returns the current envelope level.
func (l *Limiter) Envelope() float32 { return l.envelope }

// SampleRate returns the sample rate in Hz.
func (l *Limiter) SampleRate() float64 { return l.sampleRate }

// Attack returns the attack time in milliseconds.
func (l *Limiter) Attack() float64 { return l.attackMs }

// Release returns the release time in milliseconds.
func (l *Limiter) Release() float64 { return l.releaseMs }

// Threshold returns the linear ceiling.
func (l *Limiter) Threshold() float32 { return l.threshold }

// gain advances the envelope with peak and returns the gain to apply.
func (l *Limiter) gain(peak float32) float32 {
	coeff := l.releaseCoeff
	if peak > l.envelope {
		coeff = l.attackCoeff
	}
	l.envelope = core.FlushDenormals(coeff*(l.envelope-peak) + peak)

	if l.envelope > l.threshold {
		return l.threshold / l.envelope
	}
	return 1
}

func (l *Limiter) updateCoefficients() {
	l.attackCoeff = float32(expDecay(1 / (l.attackMs * 0.001 * l.sampleRate)))
	l.releaseCoeff = float32(expDecay(1 / (l.releaseMs * 0.001 * l.sampleRate)))
}

func abs32(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}

func validateLimiterTime(name string, ms float64) error {
	if ms < minLimiterTimeMs || ms > maxLimiterTimeMs || math.IsNaN(ms) {
		return fmt.Errorf("limiter %s must be in [%g, %g] ms: %f",
			name, minLimiterTimeMs, maxLimiterTimeMs, ms)
	}
	return nil
}

func validateLimiterThreshold(threshold float32) error {
	t := float64(threshold)
	if !(t > 0) || t > 1 {
		return fmt.Errorf("limiter threshold must be in (0, 1]: %f", threshold)
	}
	return nil
}
