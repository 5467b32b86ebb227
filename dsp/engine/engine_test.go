package engine

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-lofi/dsp/effects"
	"github.com/cwbudde/algo-lofi/dsp/tempo"
)

type recordingStage struct {
	resolution float32
	rate       float32
	depth      float32
	sampleRate float64
	crushSets  int
	resets     int
}

func (s *recordingStage) ProcessInPlace([]float32) {}

func (s *recordingStage) SetResolution(bits float32) error {
	s.resolution = bits
	s.crushSets++
	return nil
}

func (s *recordingStage) SetLFO(rateHz, depth float32) error {
	s.rate, s.depth = rateHz, depth
	return nil
}

func (s *recordingStage) Reset() { s.resets++ }

func (s *recordingStage) SetSampleRate(sampleRate float64) error {
	s.sampleRate = sampleRate
	return nil
}

// flakyStage rejects the first reject updates of each kind.
type flakyStage struct {
	recordingStage
	rejectCrush int
	rejectRate  int
}

func (s *flakyStage) SetResolution(bits float32) error {
	if s.rejectCrush > 0 {
		s.rejectCrush--
		return errors.New("busy")
	}
	return s.recordingStage.SetResolution(bits)
}

func (s *flakyStage) SetSampleRate(sampleRate float64) error {
	if s.rejectRate > 0 {
		s.rejectRate--
		return errors.New("busy")
	}
	return s.recordingStage.SetSampleRate(sampleRate)
}

func mustNew(t *testing.T, channels int, opts ...Option) *Engine {
	t.Helper()
	e, err := New(channels, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestNewDefaults(t *testing.T) {
	e := mustNew(t, 2)

	if e.Channels() != 2 {
		t.Fatalf("Channels() = %d, want 2", e.Channels())
	}
	if e.DryMix() != 0.5 || e.WetMix() != 0.5 {
		t.Fatalf("dry/wet = %v/%v, want 0.5/0.5", e.DryMix(), e.WetMix())
	}
	if e.LimiterEnabled() {
		t.Fatal("limiter should be disabled by default")
	}
	if e.Resolution() != 8 {
		t.Fatalf("Resolution() = %v, want 8", e.Resolution())
	}
	if rate, depth := e.LFO(); rate != 0.5 || depth != 0.5 {
		t.Fatalf("LFO() = %v/%v, want 0.5/0.5", rate, depth)
	}
	if e.SampleRate() != 44100 {
		t.Fatalf("SampleRate() = %v, want 44100", e.SampleRate())
	}
	if _, ok := e.Timing(); ok || (e.Windows() != tempo.Windows{}) {
		t.Fatal("timing should be empty before SetTempo")
	}

	bc, ok := e.crusher.(*effects.BitCrusher)
	if !ok {
		t.Fatalf("default crusher is %T, want *effects.BitCrusher", e.crusher)
	}
	if bc.Resolution() != 8 || bc.LFORate() != 0.5 || bc.LFODepth() != 0.5 {
		t.Fatalf("crusher = %v bits, %v Hz, depth %v", bc.Resolution(), bc.LFORate(), bc.LFODepth())
	}
	lim, ok := e.limiter.(*effects.Limiter)
	if !ok {
		t.Fatalf("default limiter is %T, want *effects.Limiter", e.limiter)
	}
	if lim.Attack() != 10 || lim.Release() != 500 || lim.Threshold() != 0.6 {
		t.Fatalf("limiter = %v/%v/%v", lim.Attack(), lim.Release(), lim.Threshold())
	}
}

func TestNewValidation(t *testing.T) {
	for _, ch := range []int{0, -2} {
		if _, err := New(ch); !errors.Is(err, ErrInvalidChannels) {
			t.Fatalf("New(%d) error = %v, want ErrInvalidChannels", ch, err)
		}
	}
	if _, err := New(2, WithSampleRate(0)); err == nil {
		t.Fatal("New with zero sample rate should fail")
	}
	if _, err := New(2, WithBlockSize(-1)); err == nil {
		t.Fatal("New with negative block size should fail")
	}
	if _, err := New(2, nil); err != nil {
		t.Fatalf("nil option should be skipped: %v", err)
	}
}

func TestWithBlockSizePreallocates(t *testing.T) {
	e := mustNew(t, 2, WithBlockSize(256))
	if e.pre.Frames() != 256 || e.post.Frames() != 256 {
		t.Fatalf("scratch frames = %d/%d, want 256", e.pre.Frames(), e.post.Frames())
	}

	lazy := mustNew(t, 2, WithBlockSize(0))
	if lazy.pre.Allocated() || lazy.post.Allocated() {
		t.Fatal("WithBlockSize(0) should defer allocation")
	}
}

func TestMixSettersStoreVerbatim(t *testing.T) {
	e := mustNew(t, 1)
	e.SetDryMix(1.75)
	e.SetWetMix(-0.25)
	if e.DryMix() != 1.75 || e.WetMix() != -0.25 {
		t.Fatalf("dry/wet = %v/%v, want 1.75/-0.25", e.DryMix(), e.WetMix())
	}
}

func TestSetTempoIdempotent(t *testing.T) {
	e := mustNew(t, 2)

	if !e.SetTempo(120, 4, 4) {
		t.Fatal("first SetTempo should report a change")
	}
	first := e.Windows()
	snap, ok := e.Timing()
	if !ok || snap.Tempo != 120 || snap.Signature != (tempo.Signature{Numerator: 4, Denominator: 4}) || snap.SampleRate != 44100 {
		t.Fatalf("Timing() = %+v, %v", snap, ok)
	}

	if e.SetTempo(120, 4, 4) {
		t.Fatal("identical SetTempo should report no change")
	}
	if again, _ := e.Timing(); e.Windows() != first || again != snap {
		t.Fatal("identical SetTempo replaced the windows")
	}

	want := tempo.Windows{MeasureSeconds: 2, Measure: 88200, HalfMeasure: 44100, Beat: 22050, Sixteenth: 5513}
	if first != want {
		t.Fatalf("Windows() = %+v, want %+v", first, want)
	}
}

func TestSetSampleRateRecomputesWindows(t *testing.T) {
	e := mustNew(t, 2)
	if err := e.SetSampleRate(48000); err != nil {
		t.Fatalf("SetSampleRate() error = %v", err)
	}
	if _, ok := e.Timing(); ok {
		t.Fatal("SetSampleRate before SetTempo should not create timing")
	}

	e.SetTempo(120, 4, 4)
	if err := e.SetSampleRate(96000); err != nil {
		t.Fatalf("SetSampleRate() error = %v", err)
	}
	if got := e.Windows().Measure; got != 192000 {
		t.Fatalf("Measure = %d, want 192000", got)
	}
	if e.SetTempo(120, 4, 4) {
		t.Fatal("SetTempo after SetSampleRate should see up-to-date windows")
	}

	for _, bad := range []float64{0, -1} {
		if err := e.SetSampleRate(bad); err == nil {
			t.Fatalf("SetSampleRate(%v) should fail", bad)
		}
	}
}

func TestSetTempoRampDoesNotAllocate(t *testing.T) {
	e := mustNew(t, 2)
	bpm := 90.0
	allocs := testing.AllocsPerRun(100, func() {
		bpm += 0.5
		if !e.SetTempo(bpm, 7, 8) {
			t.Fatal("SetTempo with a new tempo should report a change")
		}
	})
	if allocs != 0 {
		t.Fatalf("SetTempo allocated %.1f times per call", allocs)
	}
	if got, want := e.Windows(), tempo.Calculate(bpm, tempo.Signature{Numerator: 7, Denominator: 8}, 44100); got != want {
		t.Fatalf("Windows() = %+v, want %+v", got, want)
	}
}

func TestSampleRateReachesStagesOnNextCallback(t *testing.T) {
	crusher := &recordingStage{}
	e := mustNew(t, 1, WithBitCrusher(crusher), WithSampleRate(48000))
	if err := e.SetSampleRate(88200); err != nil {
		t.Fatalf("SetSampleRate() error = %v", err)
	}
	if crusher.sampleRate != 0 {
		t.Fatal("stage updated before a callback ran")
	}

	buf := [][]float32{make([]float32, 8)}
	e.Process32(buf, buf, 1, 1, 8)
	if crusher.sampleRate != 88200 {
		t.Fatalf("stage sample rate = %v, want 88200", crusher.sampleRate)
	}
}

func TestCrushParametersAppliedOnNextCallback(t *testing.T) {
	crusher := &recordingStage{}
	e := mustNew(t, 1, WithBitCrusher(crusher))
	buf := [][]float32{make([]float32, 8)}

	e.Process32(buf, buf, 1, 1, 8)
	if crusher.crushSets != 0 {
		t.Fatalf("crusher updated %d times without a change", crusher.crushSets)
	}

	if err := e.SetResolution(4); err != nil {
		t.Fatalf("SetResolution() error = %v", err)
	}
	if err := e.SetLFO(2, 0.25); err != nil {
		t.Fatalf("SetLFO() error = %v", err)
	}
	e.Process32(buf, buf, 1, 1, 8)
	e.Process32(buf, buf, 1, 1, 8)

	if crusher.crushSets != 1 {
		t.Fatalf("crusher updated %d times, want 1", crusher.crushSets)
	}
	if crusher.resolution != 4 || crusher.rate != 2 || crusher.depth != 0.25 {
		t.Fatalf("crusher got %v bits, %v Hz, depth %v", crusher.resolution, crusher.rate, crusher.depth)
	}
}

func TestRejectedStageUpdatesAreRetried(t *testing.T) {
	crusher := &flakyStage{rejectCrush: 1, rejectRate: 1}
	e := mustNew(t, 1, WithBitCrusher(crusher))
	buf := [][]float32{make([]float32, 8)}

	if err := e.SetResolution(3); err != nil {
		t.Fatalf("SetResolution() error = %v", err)
	}
	if err := e.SetSampleRate(48000); err != nil {
		t.Fatalf("SetSampleRate() error = %v", err)
	}

	e.Process32(buf, buf, 1, 1, 8)
	if crusher.crushSets != 0 || crusher.sampleRate != 0 {
		t.Fatalf("rejected updates were recorded: %d sets, %v Hz", crusher.crushSets, crusher.sampleRate)
	}
	if e.crushApplied == e.crushVersion.Load() || e.stageRate == 48000 {
		t.Fatal("rejected updates were marked as applied")
	}

	e.Process32(buf, buf, 1, 1, 8)
	if crusher.resolution != 3 || crusher.sampleRate != 48000 {
		t.Fatalf("retry gave %v bits, %v Hz, want 3 bits, 48000 Hz", crusher.resolution, crusher.sampleRate)
	}
	if e.crushApplied != e.crushVersion.Load() || e.stageRate != 48000 {
		t.Fatal("successful retry was not marked as applied")
	}
}

func TestCrushParameterValidation(t *testing.T) {
	e := mustNew(t, 1)
	if err := e.SetResolution(0); err == nil {
		t.Fatal("SetResolution(0) should fail")
	}
	if err := e.SetResolution(64); err == nil {
		t.Fatal("SetResolution(64) should fail")
	}
	if err := e.SetLFO(12, 0.5); err == nil {
		t.Fatal("SetLFO(12, 0.5) should fail")
	}
	if err := e.SetLFO(1, 2); err == nil {
		t.Fatal("SetLFO(1, 2) should fail")
	}
	if e.Resolution() != 8 {
		t.Fatalf("failed setter changed resolution to %v", e.Resolution())
	}
}

func TestResetModulation(t *testing.T) {
	crusher := &recordingStage{}
	e := mustNew(t, 1, WithBitCrusher(crusher))
	e.ResetModulation()
	if crusher.resets != 1 {
		t.Fatalf("resets = %d, want 1", crusher.resets)
	}

	e.Reset()
	if crusher.resets != 2 {
		t.Fatalf("resets after Reset = %d, want 2", crusher.resets)
	}

	// Stages without Reset are left alone.
	plain := mustNew(t, 1, WithBitCrusher(effects.Identity{}))
	plain.ResetModulation()
}

func TestLimiterToggle(t *testing.T) {
	e := mustNew(t, 1, WithLimiterEnabled(true))
	if !e.LimiterEnabled() {
		t.Fatal("WithLimiterEnabled(true) not applied")
	}
	e.SetLimiterEnabled(false)
	if e.LimiterEnabled() {
		t.Fatal("SetLimiterEnabled(false) not applied")
	}
}

func TestClose(t *testing.T) {
	e := mustNew(t, 2, WithBlockSize(64))
	e.Close()
	if e.pre.Allocated() || e.post.Allocated() {
		t.Fatal("Close should release scratch buffers")
	}
	if e.crusher != nil || e.limiter != nil {
		t.Fatal("Close should drop stages")
	}
}
