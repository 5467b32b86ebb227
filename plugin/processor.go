package plugin

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-lofi/dsp/engine"
	"github.com/cwbudde/algo-lofi/dsp/tempo"
	"github.com/cwbudde/algo-lofi/measure/level"
)

// Transport is the host timing information for one callback.
type Transport struct {
	Tempo       float64
	Numerator   int
	Denominator int
}

// Block is one host callback.
type Block[T core.Sample] struct {
	Inputs      [][]T
	Outputs     [][]T
	InChannels  int
	OutChannels int
	Frames      int
	// Transport is nil when the host does not provide timing.
	Transport *Transport
}

// Processor applies host parameters and transport to an engine and runs
// it. Setup, LoadState and Close belong to the host's control thread;
// Process32 and Process64 to its audio thread.
type Processor struct {
	params   *Params
	logger   *slog.Logger
	maxBlock int
	limiter  bool

	engine     *engine.Engine
	channels   int
	sampleRate float64
	meter      *level.Meter
	meterBuf   []float64

	// Last values pushed to the engine; audio thread only.
	bits     float32
	lfoRate  float32
	lfoDepth float32
}

// NewProcessor returns a Processor reading from params. Setup must be
// called before processing.
func NewProcessor(params *Params, opts ...Option) *Processor {
	if params == nil {
		params = NewParams()
	}
	p := &Processor{
		params:   params,
		logger:   slog.New(slog.DiscardHandler),
		maxBlock: defaultMaxBlockSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Params returns the parameter set.
func (p *Processor) Params() *Params { return p.params }

// Setup builds the engine for the given sample rate and channel count,
// replacing any previous one.
//
// Setup swaps the engine without synchronisation. It must not overlap
// Process32, Process64 or Close; hosts call it while processing is stopped,
// as in their setup-processing step.
func (p *Processor) Setup(sampleRate float64, channels int) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("plugin: sample rate must be > 0 and finite: %f", sampleRate)
	}

	e, err := engine.New(channels,
		engine.WithSampleRate(sampleRate),
		engine.WithBlockSize(p.maxBlock),
		engine.WithLimiterEnabled(p.limiter),
	)
	if err != nil {
		return fmt.Errorf("plugin: setup: %w", err)
	}

	if p.engine != nil {
		p.engine.Close()
	}
	p.engine = e
	p.channels = channels
	p.sampleRate = sampleRate
	p.meter = level.NewMeter(level.WithSampleRate(sampleRate))
	p.meterBuf = make([]float64, p.maxBlock*channels)
	p.bits, p.lfoRate, p.lfoDepth = -1, -1, -1

	p.logger.Info("processor setup",
		"sample_rate", sampleRate,
		"channels", channels,
		"max_block", p.maxBlock,
		"limiter", p.limiter,
	)
	return nil
}

// Ready reports whether Setup succeeded.
func (p *Processor) Ready() bool { return p.engine != nil }

// Engine returns the engine built by Setup, or nil.
func (p *Processor) Engine() *engine.Engine { return p.engine }

// SetLimiterEnabled switches the output limiter.
func (p *Processor) SetLimiterEnabled(enabled bool) {
	p.limiter = enabled
	if p.engine != nil {
		p.engine.SetLimiterEnabled(enabled)
	}
}

// VU returns the output peak meter value (linear).
func (p *Processor) VU() float64 {
	if p.meter == nil {
		return 0
	}
	return p.meter.Value()
}

// Windows returns the tempo windows derived from the host transport.
func (p *Processor) Windows() tempo.Windows {
	if p.engine == nil {
		return tempo.Windows{}
	}
	return p.engine.Windows()
}

// SaveState writes the parameter state to w.
func (p *Processor) SaveState(w io.Writer) error {
	if err := WriteState(w, p.params); err != nil {
		p.logger.Error("save state failed", "error", err)
		return err
	}
	p.logger.Debug("state saved", "bytes", StateSize)
	return nil
}

// LoadState reads the parameter state from r. On error the parameters are
// left unchanged.
func (p *Processor) LoadState(r io.Reader) error {
	if err := ReadState(r, p.params); err != nil {
		p.logger.Error("load state failed", "error", err)
		return err
	}
	p.logger.Info("state loaded",
		"bypass", p.params.Bypassed(),
		"bits", p.params.ResolutionBits(),
		"lfo_hz", p.params.LFORate(),
		"lfo_depth", p.params.LFODepth(),
		"wet", p.params.WetMix(),
		"dry", p.params.DryMix(),
	)
	return nil
}

// Close releases the engine.
func (p *Processor) Close() {
	if p.engine != nil {
		p.engine.Close()
		p.engine = nil
	}
	p.meter = nil
	p.meterBuf = nil
}

// Process32 runs one 32-bit callback.
func (p *Processor) Process32(b *Block[float32]) { process(p, b) }

// Process64 runs one 64-bit callback.
func (p *Processor) Process64(b *Block[float64]) { process(p, b) }

func process[T core.Sample](p *Processor, b *Block[T]) {
	if b.Frames <= 0 {
		return
	}
	if p.engine == nil {
		for ch := 0; ch < b.OutChannels; ch++ {
			core.Zero(b.Outputs[ch][:b.Frames])
		}
		return
	}

	p.pushParams()

	if t := b.Transport; t != nil {
		sig := tempo.Signature{Numerator: t.Numerator, Denominator: t.Denominator}
		if tempo.Validate(t.Tempo, sig, p.sampleRate) == nil &&
			p.engine.SetTempo(t.Tempo, t.Numerator, t.Denominator) {
			p.engine.ResetModulation()
		}
	}

	if p.params.Bypassed() {
		bypass(b)
	} else {
		engine.Process(p.engine, b.Inputs, b.Outputs, b.InChannels, b.OutChannels, b.Frames)
	}

	updateMeter(p, b.Outputs[:b.OutChannels], b.Frames)
}

// pushParams forwards parameter values to the engine. Crusher settings are
// only sent when they change.
func (p *Processor) pushParams() {
	ps := p.params
	p.engine.SetDryMix(ps.DryMix())
	p.engine.SetWetMix(ps.WetMix())

	if bits := ps.ResolutionBits(); bits != p.bits {
		if p.engine.SetResolution(bits) == nil {
			p.bits = bits
		}
	}
	if rate, depth := ps.LFORate(), ps.LFODepth(); rate != p.lfoRate || depth != p.lfoDepth {
		if p.engine.SetLFO(rate, depth) == nil {
			p.lfoRate, p.lfoDepth = rate, depth
		}
	}
}

// bypass copies input to output. copy handles aliased buffers.
func bypass[T core.Sample](b *Block[T]) {
	n := min(b.InChannels, b.OutChannels)
	for ch := 0; ch < n; ch++ {
		copy(b.Outputs[ch][:b.Frames], b.Inputs[ch][:b.Frames])
	}
	for ch := n; ch < b.OutChannels; ch++ {
		core.Zero(b.Outputs[ch][:b.Frames])
	}
}

// updateMeter widens the output block into the meter scratch and feeds
// the peak meter.
func updateMeter[T core.Sample](p *Processor, outputs [][]T, frames int) {
	p.meterBuf = core.EnsureLen(p.meterBuf, frames*len(outputs))
	for ch, out := range outputs {
		core.Convert(p.meterBuf[ch*frames:(ch+1)*frames], out[:frames])
	}
	p.meter.Update(p.meterBuf)
}
