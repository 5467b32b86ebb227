package tempo

import (
	"sync"
	"testing"
)

var fourFour = Signature{Numerator: 4, Denominator: 4}

func TestTrackerFirstUpdateReportsChange(t *testing.T) {
	tr := NewTracker(44100)
	if _, ok := tr.Snapshot(); ok {
		t.Fatal("Snapshot() before Update should report no timing")
	}
	if (tr.Windows() != Windows{}) {
		t.Fatal("Windows() before Update should be zero")
	}
	if !tr.Update(120, fourFour) {
		t.Fatal("first Update should report a change")
	}
	if tr.Windows().Measure != 88200 {
		t.Fatalf("Measure = %d, want 88200", tr.Windows().Measure)
	}
}

func TestTrackerIdenticalUpdateIsNoChange(t *testing.T) {
	tr := NewTracker(44100)
	tr.Update(120, fourFour)
	before, _ := tr.Snapshot()

	if tr.Update(120, fourFour) {
		t.Fatal("identical Update should report no change")
	}
	after, ok := tr.Snapshot()
	if !ok || after != before {
		t.Fatalf("Snapshot() = %+v, want %+v", after, before)
	}
}

func TestTrackerDetectsEachInput(t *testing.T) {
	tests := []struct {
		name  string
		tempo float64
		sig   Signature
	}{
		{"tempo", 121, fourFour},
		{"numerator", 120, Signature{3, 4}},
		{"denominator", 120, Signature{4, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(44100)
			tr.Update(120, fourFour)
			if !tr.Update(tt.tempo, tt.sig) {
				t.Fatalf("Update(%v, %v) should report a change", tt.tempo, tt.sig)
			}
			if got, want := tr.Windows(), Calculate(tt.tempo, tt.sig, 44100); got != want {
				t.Fatalf("Windows() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestTrackerSampleRateRecomputes(t *testing.T) {
	tr := NewTracker(44100)
	if tr.SetSampleRate(48000) {
		t.Fatal("SetSampleRate before Update should not report a change")
	}
	tr.Update(120, fourFour)
	if tr.Windows().Measure != 96000 {
		t.Fatalf("Measure = %d, want 96000", tr.Windows().Measure)
	}

	if !tr.SetSampleRate(96000) {
		t.Fatal("SetSampleRate after Update should report a change")
	}
	if tr.SetSampleRate(96000) {
		t.Fatal("repeated SetSampleRate should report no change")
	}
	snap, _ := tr.Snapshot()
	if snap.SampleRate != 96000 || snap.Windows.Measure != 192000 {
		t.Fatalf("Snapshot() = %+v, want 192000 samples at 96 kHz", snap)
	}
	if tr.Update(120, fourFour) {
		t.Fatal("Update after SetSampleRate should see up-to-date windows")
	}
}

func TestTrackerUpdateDoesNotAllocate(t *testing.T) {
	tr := NewTracker(48000)
	bpm := 60.0
	allocs := testing.AllocsPerRun(100, func() {
		bpm++
		tr.Update(bpm, fourFour)
		_, _ = tr.Snapshot()
	})
	if allocs != 0 {
		t.Fatalf("Update allocated %.1f times per call", allocs)
	}
}

func TestTrackerConcurrentReadersSeeConsistentRecords(t *testing.T) {
	tr := NewTracker(44100)
	tr.Update(60, fourFour)

	var wg sync.WaitGroup
	done := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap, ok := tr.Snapshot()
				if !ok {
					t.Error("Snapshot() lost the timing record")
					return
				}
				if want := Calculate(snap.Tempo, snap.Signature, snap.SampleRate); snap.Windows != want {
					t.Errorf("torn snapshot: %+v", snap)
					return
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		tr.Update(60+float64(i%120), Signature{Numerator: 1 + i%7, Denominator: 4})
	}
	close(done)
	wg.Wait()
}
