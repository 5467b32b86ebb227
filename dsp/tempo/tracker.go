package tempo

import (
	"math"
	"runtime"
	"sync/atomic"
)

// Snapshot records the timing inputs and the windows derived from them.
type Snapshot struct {
	Tempo      float64
	Signature  Signature
	SampleRate float64
	Windows    Windows
}

// Tracker remembers the last timing inputs and recomputes windows only when
// they change.
//
// Tracker is safe for concurrent use and never allocates. State is kept in
// scalar atomics behind a sequence counter: writers take the counter to an
// odd value while they store, readers retry until they observe the same even
// value before and after loading. The zero value is ready to use with a
// sample rate of zero.
type Tracker struct {
	seq   atomic.Uint64
	valid atomic.Bool

	sampleRate  atomic.Uint64
	tempo       atomic.Uint64
	numerator   atomic.Int64
	denominator atomic.Int64

	measureSeconds atomic.Uint64
	measure        atomic.Int64
	halfMeasure    atomic.Int64
	beat           atomic.Int64
	sixteenth      atomic.Int64
}

// NewTracker returns a Tracker for the given sample rate.
func NewTracker(sampleRate float64) *Tracker {
	t := &Tracker{}
	t.sampleRate.Store(math.Float64bits(sampleRate))
	return t
}

// Update records tempo and signature. It reports false and leaves the
// stored windows untouched when the inputs are identical to the previous
// call (tempo compared bit for bit); otherwise it recomputes and reports
// true.
func (t *Tracker) Update(tempo float64, sig Signature) bool {
	s := t.lock()
	defer t.unlock(s)

	if t.valid.Load() &&
		t.tempo.Load() == math.Float64bits(tempo) &&
		t.numerator.Load() == int64(sig.Numerator) &&
		t.denominator.Load() == int64(sig.Denominator) {
		return false
	}
	t.store(tempo, sig, math.Float64frombits(t.sampleRate.Load()))
	return true
}

// SetSampleRate changes the sample rate and recomputes the windows from the
// last tempo and signature. It reports whether the windows changed.
func (t *Tracker) SetSampleRate(sampleRate float64) bool {
	s := t.lock()
	defer t.unlock(s)

	bits := math.Float64bits(sampleRate)
	if t.sampleRate.Load() == bits {
		return false
	}
	t.sampleRate.Store(bits)
	if !t.valid.Load() {
		return false
	}
	sig := Signature{Numerator: int(t.numerator.Load()), Denominator: int(t.denominator.Load())}
	t.store(math.Float64frombits(t.tempo.Load()), sig, sampleRate)
	return true
}

// Snapshot returns a consistent copy of the current state. The second
// result is false before the first Update.
func (t *Tracker) Snapshot() (Snapshot, bool) {
	for {
		s := t.seq.Load()
		if s&1 != 0 {
			runtime.Gosched()
			continue
		}
		snap := Snapshot{
			Tempo: math.Float64frombits(t.tempo.Load()),
			Signature: Signature{
				Numerator:   int(t.numerator.Load()),
				Denominator: int(t.denominator.Load()),
			},
			SampleRate: math.Float64frombits(t.sampleRate.Load()),
			Windows: Windows{
				MeasureSeconds: math.Float64frombits(t.measureSeconds.Load()),
				Measure:        int(t.measure.Load()),
				HalfMeasure:    int(t.halfMeasure.Load()),
				Beat:           int(t.beat.Load()),
				Sixteenth:      int(t.sixteenth.Load()),
			},
		}
		valid := t.valid.Load()
		if t.seq.Load() == s {
			if !valid {
				return Snapshot{SampleRate: snap.SampleRate}, false
			}
			return snap, true
		}
	}
}

// Windows returns the current windows (zero before the first Update).
func (t *Tracker) Windows() Windows {
	snap, _ := t.Snapshot()
	return snap.Windows
}

// store writes a complete record. Callers hold the write side.
func (t *Tracker) store(tempo float64, sig Signature, sampleRate float64) {
	w := Calculate(tempo, sig, sampleRate)
	t.tempo.Store(math.Float64bits(tempo))
	t.numerator.Store(int64(sig.Numerator))
	t.denominator.Store(int64(sig.Denominator))
	t.measureSeconds.Store(math.Float64bits(w.MeasureSeconds))
	t.measure.Store(int64(w.Measure))
	t.halfMeasure.Store(int64(w.HalfMeasure))
	t.beat.Store(int64(w.Beat))
	t.sixteenth.Store(int64(w.Sixteenth))
	t.valid.Store(true)
}

// lock takes the sequence counter to an odd value and returns the even
// value it started from. Writers hold it only for a handful of stores.
func (t *Tracker) lock() uint64 {
	for {
		s := t.seq.Load()
		if s&1 == 0 && t.seq.CompareAndSwap(s, s+1) {
			return s
		}
		runtime.Gosched()
	}
}

func (t *Tracker) unlock(s uint64) { t.seq.Store(s + 2) }
