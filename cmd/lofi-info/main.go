// Command lofi-info prints the distortion the bit crusher adds to a test
// tone at each resolution.
//
// Usage:
//
//	lofi-info [flags] [bits ...]
//
// Without arguments it prints every resolution from 1 to 16 bits.
//
// Examples:
//
//	lofi-info
//	lofi-info 4 8 12
//	lofi-info -window blackman-harris -fft 32768 8
//	lofi-info -lfo-rate 2 -lfo-depth 0.5 8
//	lofi-info -list
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-lofi/dsp/effects"
	"github.com/cwbudde/algo-lofi/dsp/window"
	"github.com/cwbudde/algo-lofi/measure/thd"
)

// harmonicFloorDB is the level below which a harmonic is not counted.
const harmonicFloorDB = -120

type windowEntry struct {
	name string
	typ  window.Type
}

// Rectangular is left out: the analyzer replaces it with Hann.
var registry = []windowEntry{
	{"hann", window.TypeHann},
	{"hamming", window.TypeHamming},
	{"blackman", window.TypeBlackman},
	{"blackman-harris", window.TypeBlackmanHarris4Term},
	{"flat-top", window.TypeFlatTop},
}

type options struct {
	window    window.Type
	rate      float64
	toneHz    float64
	amplitude float64
	fftSize   int
	lfoRate   float64
	lfoDepth  float64
	bits      []int
	list      bool
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
	if opts.list {
		printList(os.Stdout)
		return
	}
	if err := printAnalysis(os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("lofi-info", flag.ContinueOnError)
	fs.SetOutput(stderr)

	win := fs.String("window", "hann", "analysis window (see -list)")
	fs.Float64Var(&opts.rate, "rate", 44100, "sample rate in Hz")
	fs.Float64Var(&opts.toneHz, "tone", 1000, "test tone frequency in Hz")
	fs.Float64Var(&opts.amplitude, "amplitude", 0.5, "test tone amplitude (0-1]")
	fs.IntVar(&opts.fftSize, "fft", 16384, "FFT size (power of two)")
	fs.Float64Var(&opts.lfoRate, "lfo-rate", 0, "resolution LFO rate in Hz (0-10)")
	fs.Float64Var(&opts.lfoDepth, "lfo-depth", 0, "resolution LFO depth (0-1)")
	fs.BoolVar(&opts.list, "list", false, "list available window names")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lofi-info [flags] [bits ...]\n\n")
		fmt.Fprintf(stderr, "Prints THD, THD+N and SINAD of a bit-crushed test tone.\n")
		fmt.Fprintf(stderr, "Without arguments, prints resolutions 1 to 16.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	t, ok := lookupWindow(*win)
	if !ok {
		return nil, fmt.Errorf("unknown window %q (use -list to see available)", *win)
	}
	opts.window = t

	if fs.NArg() == 0 {
		for b := 1; b <= 16; b++ {
			opts.bits = append(opts.bits, b)
		}
	}
	for _, arg := range fs.Args() {
		b, err := strconv.Atoi(arg)
		if err != nil || b < int(effects.MinResolution) || b > 16 {
			return nil, fmt.Errorf("invalid resolution %q (want 1-16)", arg)
		}
		opts.bits = append(opts.bits, b)
	}

	switch {
	case opts.amplitude <= 0 || opts.amplitude > 1:
		return nil, fmt.Errorf("-amplitude must be in (0, 1]: %g", opts.amplitude)
	case opts.toneHz <= 0 || opts.toneHz >= opts.rate/2:
		return nil, fmt.Errorf("-tone must be in (0, %g): %g", opts.rate/2, opts.toneHz)
	}
	return opts, nil
}

func lookupWindow(name string) (window.Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range registry {
		if e.name == name {
			return e.typ, true
		}
	}
	return 0, false
}

func printList(w io.Writer) {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.name
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
}

func sine(freqHz, sampleRate, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

type row struct {
	bits      int
	res       thd.Result
	harmonics int
}

// measure crushes a test tone at each resolution and analyzes the settled
// tail of the output with one analyzer.
func measure(opts *options) ([]row, error) {
	a, err := thd.NewAnalyzer(thd.Config{
		SampleRate:      opts.rate,
		FFTSize:         opts.fftSize,
		FundamentalFreq: opts.toneHz,
		Window:          opts.window,
	})
	if err != nil {
		return nil, err
	}

	tone := sine(opts.toneHz, opts.rate, opts.amplitude, opts.fftSize)
	buf := make([]float32, len(tone))
	out := make([]float64, len(tone))

	rows := make([]row, 0, len(opts.bits))
	for _, bits := range opts.bits {
		bc, err := effects.NewBitCrusher(opts.rate,
			effects.WithBitCrusherResolution(float32(bits)),
			effects.WithBitCrusherLFO(float32(opts.lfoRate), float32(opts.lfoDepth)),
		)
		if err != nil {
			return nil, err
		}
		for i, v := range tone {
			buf[i] = float32(v)
		}
		bc.ProcessInPlace(buf)
		for i, v := range buf {
			out[i] = float64(v)
		}

		res, err := a.Analyze(out)
		if err != nil {
			return nil, err
		}
		r := row{bits: bits, res: res}
		for _, h := range res.Harmonics {
			if h > 0 && 20*math.Log10(h) > harmonicFloorDB {
				r.harmonics++
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func printAnalysis(w io.Writer, opts *options) error {
	rows, err := measure(opts)
	if err != nil {
		return err
	}

	info := window.Info(opts.window)
	fmt.Fprintf(w, "Tone %.1f Hz at %.2f FS, %.0f Hz, FFT %d, window %s (ENBW %.4f bins, coherent gain %.4f)\n\n",
		opts.toneHz, opts.amplitude, opts.rate, opts.fftSize, info.Name, info.ENBW, info.CoherentGain)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Bits\tTHD [%%]\tTHD [dB]\tTHD+N [dB]\tSINAD [dB]\tHarmonics\n")
	fmt.Fprintf(tw, "----\t-------\t--------\t----------\t----------\t---------\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%.4f\t%.2f\t%.2f\t%.2f\t%d\n",
			r.bits,
			100*r.res.THD,
			r.res.THD_dB,
			r.res.THDN_dB,
			r.res.SINAD,
			r.harmonics,
		)
	}
	return tw.Flush()
}
