package level

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-lofi/internal/testutil"
)

func TestPeak(t *testing.T) {
	if got := Peak([]float64{0.1, -0.8, 0.5}); got != 0.8 {
		t.Fatalf("Peak() = %v, want 0.8", got)
	}
	if got := Peak(nil); got != 0 {
		t.Fatalf("Peak(nil) = %v, want 0", got)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(testutil.DC(-0.5, 64)); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("RMS(DC) = %v, want 0.5", got)
	}
	sine := testutil.DeterministicSine(1000, 48000, 1, 4800)
	if got := RMS(sine); math.Abs(got-1/math.Sqrt2) > 1e-9 {
		t.Fatalf("RMS(sine) = %v, want %v", got, 1/math.Sqrt2)
	}
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}
}

func TestToDB(t *testing.T) {
	if got := ToDB(1); got != 0 {
		t.Fatalf("ToDB(1) = %v, want 0", got)
	}
	if got := ToDB(0.5); math.Abs(got-(-6.0206)) > 1e-4 {
		t.Fatalf("ToDB(0.5) = %v, want -6.02", got)
	}
	if !math.IsInf(ToDB(0), -1) {
		t.Fatal("ToDB(0) should be -Inf")
	}
}

func TestMeterInstantAttack(t *testing.T) {
	m := NewMeter(WithSampleRate(48000))
	if got := m.Update([]float64{0, 0.3, -0.9, 0.2}); got != 0.9 {
		t.Fatalf("Update() = %v, want 0.9", got)
	}
	if m.Value() != 0.9 {
		t.Fatalf("Value() = %v, want 0.9", m.Value())
	}
}

func TestMeterRelease(t *testing.T) {
	m := NewMeter(WithSampleRate(1000), WithRelease(100))
	m.Update([]float64{1})

	// One time constant of silence.
	got := m.Update(make([]float64, 100))
	if math.Abs(got-math.Exp(-1)) > 1e-9 {
		t.Fatalf("after one time constant = %v, want %v", got, math.Exp(-1))
	}

	// A quieter block does not pull the meter below its decayed value.
	if got := m.Update([]float64{0.1}); got < 0.3 {
		t.Fatalf("meter dropped to %v on a quiet block", got)
	}
}

func TestMeterResetAndConfig(t *testing.T) {
	m := NewMeter(WithSampleRate(-1), WithRelease(0))
	if m.SampleRate() != 44100 || m.ReleaseMs() != 1500 {
		t.Fatalf("invalid options should keep defaults, got %v Hz / %v ms", m.SampleRate(), m.ReleaseMs())
	}
	m.Update([]float64{0.5})
	m.Reset()
	if m.Value() != 0 {
		t.Fatalf("Value() after Reset = %v, want 0", m.Value())
	}
}

func TestMeterUpdateDoesNotAllocate(t *testing.T) {
	m := NewMeter()
	block := testutil.DeterministicSine(440, 44100, 0.7, 512)
	allocs := testing.AllocsPerRun(100, func() {
		m.Update(block)
	})
	if allocs != 0 {
		t.Fatalf("allocs = %v, want 0", allocs)
	}
}
