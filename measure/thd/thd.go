// Package thd measures harmonic distortion of a test tone: the fundamental
// level, THD, THD+N and SINAD, from an FFT of the windowed signal.
package thd

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-lofi/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultRangeLowerHz = 20.0
	defaultRangeUpperHz = 20000.0
)

// ErrShortSignal is returned when a signal is shorter than the FFT size.
var ErrShortSignal = errors.New("thd: signal shorter than FFT size")

// Config holds analysis parameters.
type Config struct {
	SampleRate float64
	// FFTSize must be a power of two. AnalyzeSignal picks the largest power
	// of two that fits the signal when it is zero.
	FFTSize int
	// FundamentalFreq pins the fundamental. Zero searches for the
	// strongest bin inside the range.
	FundamentalFreq float64
	RangeLowerFreq  float64
	RangeUpperFreq  float64
	// CaptureBins is the number of bins on each side of a peak summed into
	// its level. Zero uses the main-lobe width of the window.
	CaptureBins  int
	MaxHarmonics int
	// Window is the analysis window. The zero value selects Hann.
	Window window.Type
}

// Result holds distortion measurements. Ratios are relative to the
// fundamental level.
//
//nolint:revive
type Result struct {
	FundamentalFreq  float64
	FundamentalLevel float64
	THD              float64
	THDN             float64
	THD_dB           float64
	THDN_dB          float64
	Noise            float64
	SINAD            float64
	// Harmonics holds the level ratio of harmonics 2, 3, ... in order.
	Harmonics []float64
}

// Analyzer runs repeated measurements with one FFT plan and reusable
// buffers.
type Analyzer struct {
	cfg    Config
	plan   *algofft.Plan[complex128]
	coeffs []float64
	frame  []float64
	in     []complex128
	out    []complex128
	mag    []float64
}

// NewAnalyzer validates cfg and prepares the FFT plan.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	cfg = normalizeConfig(cfg)
	if cfg.SampleRate <= 0 || math.IsNaN(cfg.SampleRate) || math.IsInf(cfg.SampleRate, 0) {
		return nil, fmt.Errorf("thd: sample rate must be > 0 and finite: %f", cfg.SampleRate)
	}
	if cfg.FFTSize < 2 || cfg.FFTSize&(cfg.FFTSize-1) != 0 {
		return nil, fmt.Errorf("thd: FFT size must be a power of two >= 2: %d", cfg.FFTSize)
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("thd: failed to create FFT plan: %w", err)
	}

	return &Analyzer{
		cfg:    cfg,
		plan:   plan,
		coeffs: window.Generate(cfg.Window, cfg.FFTSize, window.WithPeriodic()),
		frame:  make([]float64, cfg.FFTSize),
		in:     make([]complex128, cfg.FFTSize),
		out:    make([]complex128, cfg.FFTSize),
		mag:    make([]float64, cfg.FFTSize/2+1),
	}, nil
}

// Config returns the normalized configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze measures the last FFTSize samples of signal, so that settling
// at the start of a rendered tone is skipped.
func (a *Analyzer) Analyze(signal []float64) (Result, error) {
	n := a.cfg.FFTSize
	if len(signal) < n {
		return Result{}, fmt.Errorf("%w: %d < %d", ErrShortSignal, len(signal), n)
	}

	vecmath.MulBlock(a.frame, signal[len(signal)-n:], a.coeffs)
	for i, v := range a.frame {
		a.in[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return Result{}, fmt.Errorf("thd: forward FFT: %w", err)
	}

	for i := range a.mag {
		x := a.out[i]
		a.mag[i] = real(x)*real(x) + imag(x)*imag(x)
	}
	return a.FromMagnitude(a.mag), nil
}

// AnalyzeSignal is a one-shot measurement of signal.
func AnalyzeSignal(signal []float64, cfg Config) (Result, error) {
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = floorPowerOf2(len(signal))
	}
	a, err := NewAnalyzer(cfg)
	if err != nil {
		return Result{}, err
	}
	return a.Analyze(signal)
}

// FromMagnitude computes the metrics from a squared-magnitude spectrum
// holding bins [0..Nyquist] of an FFTSize transform.
func (a *Analyzer) FromMagnitude(magSquared []float64) Result {
	cfg := a.cfg
	maxBin := len(magSquared) - 1
	if maxBin < 1 {
		return Result{}
	}

	binHz := cfg.SampleRate / float64(cfg.FFTSize)
	lowerBin := clampInt(int(math.Round(cfg.RangeLowerFreq/binHz)), 1, maxBin)
	upperBin := clampInt(int(math.Round(cfg.RangeUpperFreq/binHz)), lowerBin, maxBin)

	fundamentalBin := lowerBin
	if cfg.FundamentalFreq > 0 {
		fundamentalBin = clampInt(int(math.Round(cfg.FundamentalFreq/binHz)), lowerBin, upperBin)
	} else {
		best := -1.0
		for i := lowerBin; i <= upperBin; i++ {
			if magSquared[i] > best {
				best = magSquared[i]
				fundamentalBin = i
			}
		}
	}

	capture := cfg.CaptureBins
	if capture <= 0 {
		capture = window.Info(cfg.Window).MainLobeBins
	}
	capture = min(capture, fundamentalBin/2)

	res := Result{FundamentalFreq: float64(fundamentalBin) * binHz}
	fundamental := binLevel(magSquared, fundamentalBin, capture)
	if fundamental <= 0 {
		return res
	}
	res.FundamentalLevel = fundamental

	harmonicAbs := 0.0
	for k := 2; ; k++ {
		if cfg.MaxHarmonics > 0 && k-1 > cfg.MaxHarmonics {
			break
		}
		bin := k * fundamentalBin
		if bin > upperBin {
			break
		}
		v := binLevel(magSquared, bin, capture)
		harmonicAbs += v
		res.Harmonics = append(res.Harmonics, v/fundamental)
	}

	totalAbs := 0.0
	for i := lowerBin; i <= upperBin; i++ {
		totalAbs += sqrtPositive(magSquared[i])
	}
	thdnAbs := math.Max(totalAbs-fundamental, 0)

	res.THD = harmonicAbs / fundamental
	res.THDN = thdnAbs / fundamental
	res.Noise = math.Max(thdnAbs-harmonicAbs, 0) / fundamental
	res.THD_dB = ratioToDB(res.THD)
	res.THDN_dB = ratioToDB(res.THDN)
	res.SINAD = -res.THDN_dB
	return res
}

func normalizeConfig(cfg Config) Config {
	if cfg.RangeLowerFreq <= 0 {
		cfg.RangeLowerFreq = defaultRangeLowerHz
	}
	if cfg.RangeUpperFreq <= 0 {
		cfg.RangeUpperFreq = defaultRangeUpperHz
	}
	if cfg.RangeUpperFreq < cfg.RangeLowerFreq {
		cfg.RangeUpperFreq = cfg.RangeLowerFreq
	}
	if cfg.Window == window.TypeRectangular {
		cfg.Window = window.TypeHann
	}
	if cfg.CaptureBins < 0 {
		cfg.CaptureBins = 0
	}
	if cfg.MaxHarmonics < 0 {
		cfg.MaxHarmonics = 0
	}
	return cfg
}

// binLevel sums the amplitudes of bin and its capture neighbours.
func binLevel(magSquared []float64, bin, capture int) float64 {
	lo := max(bin-capture, 0)
	hi := min(bin+capture, len(magSquared)-1)
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += sqrtPositive(magSquared[i])
	}
	return sum
}

func sqrtPositive(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

func ratioToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

func clampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func floorPowerOf2(n int) int {
	if n < 2 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p <<= 1
	}
	return p
}
