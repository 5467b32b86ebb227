// Command lofi-play plays a WAV file through the lo-fi processor in real
// time and lets the mix be changed from the keyboard while it plays.
//
// Usage:
//
//	lofi-play [flags] input.wav
//
// Keys:
//
//	w / W   wet mix down / up
//	d / D   dry mix down / up
//	[ / ]   resolution down / up one bit
//	b       toggle bypass
//	l       toggle the output limiter
//	q       quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/algo-lofi/dsp/tempo"
	"github.com/cwbudde/algo-lofi/internal/wavio"
	"github.com/cwbudde/algo-lofi/plugin"
	"github.com/ebitengine/oto/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

type options struct {
	path     string
	bits     int
	lfoRate  float64
	lfoDepth float64
	wet, dry float64
	limiter  bool
	tempo    float64
	sig      tempo.Signature
	block    int
	buffer   time.Duration
	loop     bool
	verbose  bool
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

	lvl := slog.LevelInfo
	if opts.verbose {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("playback failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("lofi-play", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVar(&opts.bits, "bits", 8, "bit crusher resolution in bits (1-16)")
	fs.Float64Var(&opts.lfoRate, "lfo-rate", 0.5, "resolution LFO rate in Hz (0-10, below 0.1 disables)")
	fs.Float64Var(&opts.lfoDepth, "lfo-depth", 0.5, "resolution LFO depth (0-1)")
	fs.Float64Var(&opts.wet, "wet", 1, "initial wet gain (0-1)")
	fs.Float64Var(&opts.dry, "dry", 0, "initial dry gain (0-1)")
	fs.BoolVar(&opts.limiter, "limiter", false, "start with the output limiter enabled")
	fs.Float64Var(&opts.tempo, "tempo", 0, "host tempo in BPM (0 sends no transport)")
	sig := fs.String("sig", "4/4", "time signature as numerator/denominator")
	fs.IntVar(&opts.block, "block", 256, "processing block size in frames")
	fs.DurationVar(&opts.buffer, "buffer", 40*time.Millisecond, "audio device buffer length")
	fs.BoolVar(&opts.loop, "loop", true, "loop the file")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lofi-play [flags] input.wav\n\n")
		fmt.Fprintf(stderr, "Keys: w/W wet, d/D dry, [/] bits, b bypass, l limiter, q quit.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one input file is required")
	}
	opts.path = fs.Arg(0)

	var err error
	if opts.sig, err = tempo.ParseSignature(*sig); err != nil {
		return nil, err
	}
	switch {
	case opts.bits < 1 || opts.bits > 16:
		return nil, fmt.Errorf("-bits must be in [1, 16]: %d", opts.bits)
	case opts.lfoRate < 0 || opts.lfoRate > 10:
		return nil, fmt.Errorf("-lfo-rate must be in [0, 10]: %g", opts.lfoRate)
	case opts.lfoDepth < 0 || opts.lfoDepth > 1:
		return nil, fmt.Errorf("-lfo-depth must be in [0, 1]: %g", opts.lfoDepth)
	case opts.block < 1:
		return nil, fmt.Errorf("-block must be > 0: %d", opts.block)
	case opts.buffer <= 0:
		return nil, fmt.Errorf("-buffer must be > 0: %v", opts.buffer)
	}
	return opts, nil
}

func newProcessor(o *options, a *wavio.Audio, logger *slog.Logger) (*plugin.Processor, error) {
	p := plugin.NewProcessor(plugin.NewParams(),
		plugin.WithLogger(logger),
		plugin.WithMaxBlockSize(o.block),
		plugin.WithLimiterEnabled(o.limiter),
	)
	ps := p.Params()
	ps.SetResolutionBits(o.bits)
	ps.Get(plugin.ParamLFORate).SetPlain(o.lfoRate)
	ps.Get(plugin.ParamLFODepth).SetNormalized(o.lfoDepth)
	ps.Get(plugin.ParamWetMix).SetNormalized(o.wet)
	ps.Get(plugin.ParamDryMix).SetNormalized(o.dry)

	if err := p.Setup(float64(a.SampleRate), len(a.Channels)); err != nil {
		return nil, err
	}
	return p, nil
}

func run(ctx context.Context, o *options, logger *slog.Logger) error {
	a, err := wavio.Read(o.path)
	if err != nil {
		return err
	}
	logger.Info("input loaded",
		"path", o.path,
		"sample_rate", a.SampleRate,
		"channels", len(a.Channels),
		"frames", a.Frames(),
	)

	p, err := newProcessor(o, a, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	var transport *plugin.Transport
	if o.tempo > 0 {
		if err := tempo.Validate(o.tempo, o.sig, float64(a.SampleRate)); err != nil {
			return err
		}
		transport = &plugin.Transport{Tempo: o.tempo, Numerator: o.sig.Numerator, Denominator: o.sig.Denominator}
	}
	src := newSource(p, a, o.block, o.loop, transport)

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   a.SampleRate,
		ChannelCount: len(a.Channels),
		Format:       oto.FormatFloat32LE,
		BufferSize:   o.buffer,
	})
	if err != nil {
		return fmt.Errorf("audio device: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(src)
	defer player.Close()
	player.Play()
	logger.Debug("playback started", "buffer", o.buffer, "block", o.block)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("terminal raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, oldState) }()
	}

	keys := make(chan byte)
	go readKeys(os.Stdin, keys)

	ctl := &controller{proc: p, limiter: o.limiter}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controlLoop(gctx, ctl, keys, os.Stdout, 100*time.Millisecond)
	})
	g.Go(func() error {
		return watchPlayer(gctx, player, 50*time.Millisecond)
	})

	err = g.Wait()
	logger.Debug("playback finished", "frames", src.Played())
	if errors.Is(err, errStopped) {
		return nil
	}
	return err
}

// watchPlayer returns errStopped once the player has drained or failed.
func watchPlayer(ctx context.Context, player *oto.Player, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := player.Err(); err != nil {
				return err
			}
			if !player.IsPlaying() {
				return errStopped
			}
		}
	}
}
