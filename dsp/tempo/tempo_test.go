package tempo

import (
	"errors"
	"math"
	"testing"
)

func TestCalculate120BPMCommonTime(t *testing.T) {
	w := Calculate(120, Signature{4, 4}, 44100)

	if w.MeasureSeconds != 2.0 {
		t.Fatalf("MeasureSeconds = %v, want 2", w.MeasureSeconds)
	}
	if w.Measure != 88200 {
		t.Fatalf("Measure = %d, want 88200", w.Measure)
	}
	if w.Beat != 22050 {
		t.Fatalf("Beat = %d, want 22050", w.Beat)
	}
	if w.HalfMeasure != 44100 {
		t.Fatalf("HalfMeasure = %d, want 44100", w.HalfMeasure)
	}
	if w.Sixteenth != 5513 {
		t.Fatalf("Sixteenth = %d, want 5513 (ceil of 5512.5)", w.Sixteenth)
	}
}

func TestCalculateRoundsUp(t *testing.T) {
	tests := []struct {
		name       string
		tempo      float64
		sig        Signature
		sampleRate float64
	}{
		{name: "odd tempo", tempo: 133, sig: Signature{4, 4}, sampleRate: 44100},
		{name: "waltz", tempo: 90, sig: Signature{3, 4}, sampleRate: 48000},
		{name: "compound", tempo: 97.3, sig: Signature{6, 8}, sampleRate: 96000},
		{name: "slow", tempo: 41, sig: Signature{5, 4}, sampleRate: 22050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Calculate(tt.tempo, tt.sig, tt.sampleRate)
			exact := w.MeasureSeconds * tt.sampleRate
			if float64(w.Measure) < exact-sampleTolerance {
				t.Fatalf("Measure %d undershoots %v", w.Measure, exact)
			}
			if float64(w.Measure)-exact >= 1 {
				t.Fatalf("Measure %d overshoots %v by a full sample", w.Measure, exact)
			}

			checks := []struct {
				name    string
				got     int
				divisor int
			}{
				{"Beat", w.Beat, tt.sig.Denominator},
				{"HalfMeasure", w.HalfMeasure, 2},
				{"Sixteenth", w.Sixteenth, 16},
			}
			for _, c := range checks {
				if c.got*c.divisor < w.Measure {
					t.Fatalf("%s = %d undershoots %d/%d", c.name, c.got, w.Measure, c.divisor)
				}
				if (c.got-1)*c.divisor >= w.Measure {
					t.Fatalf("%s = %d is not the ceiling of %d/%d", c.name, c.got, w.Measure, c.divisor)
				}
			}
		})
	}
}

func TestCalculateUsesDenominator(t *testing.T) {
	w := Calculate(60, Signature{3, 8}, 1000)
	if w.MeasureSeconds != 8 {
		t.Fatalf("MeasureSeconds = %v, want 8", w.MeasureSeconds)
	}
	if w.Measure != 8000 || w.Beat != 1000 {
		t.Fatalf("Measure/Beat = %d/%d, want 8000/1000", w.Measure, w.Beat)
	}
}

func TestSecondsToSamples(t *testing.T) {
	if got := SecondsToSamples(2, 44100); got != 88200 {
		t.Fatalf("SecondsToSamples(2, 44100) = %d, want 88200", got)
	}
	if got := SecondsToSamples(0.0001, 44100); got != 5 {
		t.Fatalf("SecondsToSamples(0.0001, 44100) = %d, want 5", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(120, Signature{4, 4}, 44100); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	bad := []struct {
		name       string
		tempo      float64
		sig        Signature
		sampleRate float64
	}{
		{"zero tempo", 0, Signature{4, 4}, 44100},
		{"negative tempo", -120, Signature{4, 4}, 44100},
		{"nan tempo", math.NaN(), Signature{4, 4}, 44100},
		{"inf tempo", math.Inf(1), Signature{4, 4}, 44100},
		{"zero numerator", 120, Signature{0, 4}, 44100},
		{"zero denominator", 120, Signature{4, 0}, 44100},
		{"zero sample rate", 120, Signature{4, 4}, 0},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tempo, tt.sig, tt.sampleRate)
			if !errors.Is(err, ErrInvalidTiming) {
				t.Fatalf("Validate() error = %v, want ErrInvalidTiming", err)
			}
		})
	}
}

func TestSignatureString(t *testing.T) {
	if got := (Signature{6, 8}).String(); got != "6/8" {
		t.Fatalf("String() = %q, want 6/8", got)
	}
}

func TestParseSignature(t *testing.T) {
	tests := []struct {
		in      string
		want    Signature
		wantErr bool
	}{
		{in: "4/4", want: Signature{4, 4}},
		{in: " 7/8 ", want: Signature{7, 8}},
		{in: "3", wantErr: true},
		{in: "x/4", wantErr: true},
		{in: "4/y", wantErr: true},
		{in: "4/0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSignature(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSignature(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("ParseSignature(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseSignature("0/4"); !errors.Is(err, ErrInvalidTiming) {
		t.Fatalf("ParseSignature(0/4) error = %v, want ErrInvalidTiming", err)
	}
}
