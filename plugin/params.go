package plugin

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-lofi/dsp/core"
)

// ID identifies a parameter. IDs are indices in declaration order.
type ID int

const (
	ParamBypass ID = iota
	ParamResolution
	ParamLFORate
	ParamLFODepth
	ParamWetMix
	ParamDryMix

	numParams
)

const (
	maxResolutionSteps = 15
	maxLFORateHz       = 10
)

// Parameter is one automatable host parameter. Its value is kept in
// normalized [0, 1] form and may be read and written from any goroutine.
type Parameter struct {
	ID      ID
	Name    string
	Unit    string
	Min     float64
	Max     float64
	Default float64 // normalized
	// StepCount is the number of discrete steps; 0 means continuous.
	StepCount int

	format func(p *Parameter, normalized float64) string
	value  atomic.Uint64
}

// Normalized returns the current normalized value.
func (p *Parameter) Normalized() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetNormalized stores v clamped to [0, 1].
func (p *Parameter) SetNormalized(v float64) {
	switch {
	case math.IsNaN(v) || v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	p.value.Store(math.Float64bits(v))
}

// Plain returns the current value in plain units.
func (p *Parameter) Plain() float64 {
	return p.Denormalize(p.Normalized())
}

// SetPlain stores a plain value.
func (p *Parameter) SetPlain(plain float64) {
	p.SetNormalized(p.Normalize(plain))
}

// Normalize converts a plain value to [0, 1].
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	n := (plain - p.Min) / (p.Max - p.Min)
	return core.Clamp(n, 0, 1)
}

// Denormalize converts a normalized value to plain units.
func (p *Parameter) Denormalize(normalized float64) float64 {
	return p.Min + normalized*(p.Max-p.Min)
}

// Format renders a normalized value for display.
func (p *Parameter) Format(normalized float64) string {
	if p.format != nil {
		return p.format(p, normalized)
	}
	return fmt.Sprintf("%.2f", p.Denormalize(normalized))
}

// String renders the current value for display.
func (p *Parameter) String() string {
	return p.Format(p.Normalized())
}

// Reset restores the default value.
func (p *Parameter) Reset() {
	p.SetNormalized(p.Default)
}

func formatOnOff(_ *Parameter, v float64) string {
	if v >= 0.5 {
		return "On"
	}
	return "Off"
}

func formatBits(_ *Parameter, v float64) string {
	return fmt.Sprintf("%d Bits", resolutionBits(v))
}

func formatHz(p *Parameter, v float64) string {
	return fmt.Sprintf("%.2f Hz", p.Denormalize(v))
}

func formatPercent(_ *Parameter, v float64) string {
	return fmt.Sprintf("%02d %%", int(v*100))
}

// resolutionBits maps a normalized resolution to 1..16 whole bits.
func resolutionBits(v float64) int {
	return int(maxResolutionSteps*v) + 1
}

// Params is the ordered parameter set.
type Params struct {
	list [numParams]*Parameter
}

// NewParams returns the parameter set with every value at its default.
func NewParams() *Params {
	ps := &Params{list: [numParams]*Parameter{
		{ID: ParamBypass, Name: "Bypass", Max: 1, StepCount: 1, format: formatOnOff},
		{ID: ParamResolution, Name: "Resolution", Unit: "%", Max: 1, Default: 1, format: formatBits},
		{ID: ParamLFORate, Name: "Bit crush LFO", Unit: "Hz", Max: maxLFORateHz, format: formatHz},
		{ID: ParamLFODepth, Name: "Bit crush LFO depth", Unit: "%", Max: 1, format: formatPercent},
		{ID: ParamWetMix, Name: "Wet mix", Unit: "%", Max: 1, Default: 1, format: formatPercent},
		{ID: ParamDryMix, Name: "Dry mix", Unit: "%", Max: 1, format: formatPercent},
	}}
	ps.Reset()
	return ps
}

// Count returns the number of parameters.
func (ps *Params) Count() int { return len(ps.list) }

// Get returns the parameter with the given ID, or nil.
func (ps *Params) Get(id ID) *Parameter {
	if id < 0 || id >= numParams {
		return nil
	}
	return ps.list[id]
}

// All returns the parameters in declaration order.
func (ps *Params) All() []*Parameter {
	return ps.list[:]
}

// Reset restores every default.
func (ps *Params) Reset() {
	for _, p := range ps.list {
		p.Reset()
	}
}

// Bypassed reports whether the bypass switch is on.
func (ps *Params) Bypassed() bool {
	return ps.list[ParamBypass].Normalized() >= 0.5
}

// ResolutionBits returns the bit crusher resolution in whole bits, 1..16.
func (ps *Params) ResolutionBits() float32 {
	return float32(resolutionBits(ps.list[ParamResolution].Normalized()))
}

// SetResolutionBits sets the resolution to whole bits, clamped to 1..16.
func (ps *Params) SetResolutionBits(bits int) {
	bits = min(max(bits, 1), maxResolutionSteps+1)
	// Aim at the middle of the step so the mapping back is exact.
	ps.list[ParamResolution].SetNormalized((float64(bits) - 0.5) / maxResolutionSteps)
}

// LFORate returns the modulation rate in Hz, 0..10. Rates below 0.1 Hz
// switch modulation off.
func (ps *Params) LFORate() float32 {
	return float32(ps.list[ParamLFORate].Plain())
}

// LFODepth returns the modulation depth in [0, 1].
func (ps *Params) LFODepth() float32 {
	return float32(ps.list[ParamLFODepth].Normalized())
}

// WetMix returns the wet gain.
func (ps *Params) WetMix() float32 {
	return float32(ps.list[ParamWetMix].Normalized())
}

// DryMix returns the dry gain.
func (ps *Params) DryMix() float32 {
	return float32(ps.list[ParamDryMix].Normalized())
}
