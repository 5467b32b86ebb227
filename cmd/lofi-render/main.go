// Command lofi-render runs a WAV file through the lo-fi processor offline.
//
// Usage:
//
//	lofi-render [flags] -in input.wav -out output.wav
//
// The file is processed in fixed blocks exactly as a host would drive the
// plugin. Peak, RMS and meter levels of the result are printed to stdout.
//
// Examples:
//
//	lofi-render -in drums.wav -out crushed.wav -bits 6
//	lofi-render -in loop.wav -out out.wav -bits 8 -lfo-rate 2 -lfo-depth 0.7 -tempo 96 -sig 3/4
//	lofi-render -in vox.wav -out out.wav -wet 0.4 -dry 0.6 -limiter -normalize
//	lofi-render -analyze -bits 4
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-lofi/dsp/tempo"
	"github.com/cwbudde/algo-lofi/internal/wavio"
	"github.com/cwbudde/algo-lofi/measure/level"
	"github.com/cwbudde/algo-lofi/measure/thd"
	"github.com/cwbudde/algo-lofi/plugin"
	"github.com/cwbudde/algo-vecmath"
)

const (
	analyzeSampleRate = 44100
	analyzeToneHz     = 1000
	analyzeAmplitude  = 0.5
	analyzeFFTSize    = 16384
)

type options struct {
	in, out   string
	bits      int
	lfoRate   float64
	lfoDepth  float64
	wet, dry  float64
	bypass    bool
	limiter   bool
	tempo     float64
	sig       tempo.Signature
	block     int
	precision int
	gainDB    float64
	normalize bool
	analyze   bool
	state     string
	saveState string
	verbose   bool

	// set holds the names of flags given on the command line.
	set map[string]bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, opts.verbose)
	if err := run(opts, os.Stdout, logger); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("lofi-render", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.in, "in", "", "input WAV file (16, 24 or 32 bit PCM)")
	fs.StringVar(&opts.out, "out", "", "output WAV file")
	fs.IntVar(&opts.bits, "bits", 8, "bit crusher resolution in bits (1-16)")
	fs.Float64Var(&opts.lfoRate, "lfo-rate", 0.5, "resolution LFO rate in Hz (0-10, below 0.1 disables)")
	fs.Float64Var(&opts.lfoDepth, "lfo-depth", 0.5, "resolution LFO depth (0-1)")
	fs.Float64Var(&opts.wet, "wet", 1, "wet (crushed) gain (0-1)")
	fs.Float64Var(&opts.dry, "dry", 0, "dry (input) gain (0-1)")
	fs.BoolVar(&opts.bypass, "bypass", false, "bypass processing")
	fs.BoolVar(&opts.limiter, "limiter", false, "enable the output limiter")
	fs.Float64Var(&opts.tempo, "tempo", 0, "host tempo in BPM (0 sends no transport)")
	sig := fs.String("sig", "4/4", "time signature as numerator/denominator")
	fs.IntVar(&opts.block, "block", 512, "block size in frames")
	fs.IntVar(&opts.precision, "precision", 32, "host sample precision (32 or 64)")
	fs.Float64Var(&opts.gainDB, "gain", 0, "input gain in dB")
	fs.BoolVar(&opts.normalize, "normalize", false, "normalize the output peak to 0 dBFS")
	fs.BoolVar(&opts.analyze, "analyze", false, "render a 1 kHz test tone and print its distortion")
	fs.StringVar(&opts.state, "state", "", "load parameters from a state file; explicit flags override it")
	fs.StringVar(&opts.saveState, "save-state", "", "write the final parameters to a state file")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lofi-render [flags] -in input.wav -out output.wav\n\n")
		fmt.Fprintf(stderr, "Runs audio through the lo-fi bit crusher in host-sized blocks.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	var err error
	if opts.sig, err = tempo.ParseSignature(*sig); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *options) validate() error {
	switch {
	case !o.analyze && o.in == "":
		return errors.New("-in is required unless -analyze is given")
	case !o.analyze && o.out == "":
		return errors.New("-out is required unless -analyze is given")
	case o.bits < 1 || o.bits > 16:
		return fmt.Errorf("-bits must be in [1, 16]: %d", o.bits)
	case o.lfoRate < 0 || o.lfoRate > 10:
		return fmt.Errorf("-lfo-rate must be in [0, 10]: %g", o.lfoRate)
	case o.lfoDepth < 0 || o.lfoDepth > 1:
		return fmt.Errorf("-lfo-depth must be in [0, 1]: %g", o.lfoDepth)
	case o.wet < 0 || o.wet > 1:
		return fmt.Errorf("-wet must be in [0, 1]: %g", o.wet)
	case o.dry < 0 || o.dry > 1:
		return fmt.Errorf("-dry must be in [0, 1]: %g", o.dry)
	case o.block < 1:
		return fmt.Errorf("-block must be > 0: %d", o.block)
	case o.precision != 32 && o.precision != 64:
		return fmt.Errorf("-precision must be 32 or 64: %d", o.precision)
	case o.tempo < 0 || math.IsNaN(o.tempo) || math.IsInf(o.tempo, 0):
		return fmt.Errorf("-tempo must be >= 0 and finite: %g", o.tempo)
	}
	return nil
}

// applyParams loads the optional state file and then applies flag values.
// With a state file only explicitly given flags override it.
func applyParams(ps *plugin.Params, o *options, logger *slog.Logger) error {
	fromState := false
	if o.state != "" {
		f, err := os.Open(o.state)
		if err != nil {
			return err
		}
		err = plugin.ReadState(f, ps)
		f.Close()
		if err != nil {
			return fmt.Errorf("load state %s: %w", o.state, err)
		}
		fromState = true
		logger.Debug("state loaded", "path", o.state)
	}

	use := func(name string) bool { return !fromState || o.set[name] }
	if use("bits") {
		ps.SetResolutionBits(o.bits)
	}
	if use("lfo-rate") {
		ps.Get(plugin.ParamLFORate).SetPlain(o.lfoRate)
	}
	if use("lfo-depth") {
		ps.Get(plugin.ParamLFODepth).SetNormalized(o.lfoDepth)
	}
	if use("wet") {
		ps.Get(plugin.ParamWetMix).SetNormalized(o.wet)
	}
	if use("dry") {
		ps.Get(plugin.ParamDryMix).SetNormalized(o.dry)
	}
	if use("bypass") {
		v := 0.0
		if o.bypass {
			v = 1
		}
		ps.Get(plugin.ParamBypass).SetNormalized(v)
	}
	return nil
}

func testTone() *wavio.Audio {
	tone := make([]float64, analyzeSampleRate)
	w := 2 * math.Pi * analyzeToneHz / analyzeSampleRate
	for i := range tone {
		tone[i] = analyzeAmplitude * math.Sin(w*float64(i))
	}
	return &wavio.Audio{SampleRate: analyzeSampleRate, BitDepth: 24, Channels: [][]float64{tone}}
}

func run(o *options, stdout io.Writer, logger *slog.Logger) error {
	var src *wavio.Audio
	if o.analyze {
		src = testTone()
	} else {
		var err error
		if src, err = wavio.Read(o.in); err != nil {
			return err
		}
		logger.Info("input loaded",
			"path", o.in,
			"sample_rate", src.SampleRate,
			"channels", len(src.Channels),
			"bit_depth", src.BitDepth,
			"frames", src.Frames(),
		)
	}

	if o.gainDB != 0 {
		g := core.DBToLinear(o.gainDB)
		for _, ch := range src.Channels {
			vecmath.ScaleBlockInPlace(ch, g)
		}
	}

	p := plugin.NewProcessor(plugin.NewParams(),
		plugin.WithLogger(logger),
		plugin.WithMaxBlockSize(o.block),
		plugin.WithLimiterEnabled(o.limiter),
	)
	if err := applyParams(p.Params(), o, logger); err != nil {
		return err
	}
	if err := p.Setup(float64(src.SampleRate), len(src.Channels)); err != nil {
		return err
	}
	defer p.Close()

	var transport *plugin.Transport
	if o.tempo > 0 {
		if err := tempo.Validate(o.tempo, o.sig, float64(src.SampleRate)); err != nil {
			return err
		}
		transport = &plugin.Transport{Tempo: o.tempo, Numerator: o.sig.Numerator, Denominator: o.sig.Denominator}
	}

	for _, prm := range p.Params().All() {
		logger.Debug("parameter", "name", prm.Name, "value", prm.String())
	}

	start := time.Now()
	rendered := render(p, src, o.block, o.precision, transport)
	elapsed := time.Since(start)
	logger.Info("rendered",
		"frames", src.Frames(),
		"block", o.block,
		"precision", o.precision,
		"elapsed", elapsed,
	)

	if o.normalize {
		normalize(rendered)
	}

	out := &wavio.Audio{SampleRate: src.SampleRate, BitDepth: src.BitDepth, Channels: rendered}
	if err := report(stdout, p, out, transport != nil); err != nil {
		return err
	}
	if o.analyze {
		if err := analyze(stdout, rendered[0]); err != nil {
			return err
		}
	}

	if o.out != "" {
		if err := wavio.Write(o.out, out); err != nil {
			return err
		}
		logger.Info("output written", "path", o.out)
	}
	if o.saveState != "" {
		f, err := os.Create(o.saveState)
		if err != nil {
			return err
		}
		if err := p.SaveState(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// normalize scales all channels by the same factor so the overall peak is
// at full scale. Silent input is left alone.
func normalize(channels [][]float64) {
	peak := 0.0
	for _, ch := range channels {
		peak = math.Max(peak, level.Peak(ch))
	}
	if peak == 0 {
		return
	}
	for _, ch := range channels {
		vecmath.ScaleBlockInPlace(ch, 1/peak)
	}
}

func report(w io.Writer, p *plugin.Processor, a *wavio.Audio, withTransport bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Channel\tPeak [dBFS]\tRMS [dBFS]\n")
	fmt.Fprintf(tw, "-------\t-----------\t----------\n")
	for ch, samples := range a.Channels {
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\n", ch, level.ToDB(level.Peak(samples)), level.ToDB(level.RMS(samples)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "VU: %.2f dBFS\n", level.ToDB(p.VU()))
	if withTransport {
		win := p.Windows()
		fmt.Fprintf(w, "Windows: measure %d, half %d, beat %d, sixteenth %d samples\n",
			win.Measure, win.HalfMeasure, win.Beat, win.Sixteenth)
	}
	return nil
}

func analyze(w io.Writer, signal []float64) error {
	res, err := thd.AnalyzeSignal(signal, thd.Config{
		SampleRate:      analyzeSampleRate,
		FFTSize:         analyzeFFTSize,
		FundamentalFreq: analyzeToneHz,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Fundamental: %.1f Hz\n", res.FundamentalFreq)
	fmt.Fprintf(w, "THD:   %.4f %% (%.2f dB)\n", 100*res.THD, res.THD_dB)
	fmt.Fprintf(w, "THD+N: %.4f %% (%.2f dB)\n", 100*res.THDN, res.THDN_dB)
	fmt.Fprintf(w, "SINAD: %.2f dB\n", res.SINAD)
	return nil
}
