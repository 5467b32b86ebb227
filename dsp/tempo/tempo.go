package tempo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// sampleTolerance absorbs floating-point noise before ceiling rounding so an
// exact product such as 2 s × 44100 Hz stays 88200 samples.
const sampleTolerance = 1e-9

// ErrInvalidTiming is returned by Validate for non-positive or non-finite
// timing input.
var ErrInvalidTiming = errors.New("tempo: invalid timing")

// Signature is a musical time signature such as 4/4 or 6/8.
type Signature struct {
	Numerator   int
	Denominator int
}

// String formats the signature as "n/d".
func (s Signature) String() string {
	return fmt.Sprintf("%d/%d", s.Numerator, s.Denominator)
}

// ParseSignature parses "n/d". Both parts must be positive integers.
func ParseSignature(s string) (Signature, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Signature{}, fmt.Errorf("tempo: invalid time signature %q (want n/d)", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return Signature{}, fmt.Errorf("tempo: invalid numerator %q: %w", num, err)
	}
	d, err := strconv.Atoi(den)
	if err != nil {
		return Signature{}, fmt.Errorf("tempo: invalid denominator %q: %w", den, err)
	}
	if n < 1 || d < 1 {
		return Signature{}, fmt.Errorf("%w: signature %q", ErrInvalidTiming, s)
	}
	return Signature{Numerator: n, Denominator: d}, nil
}

// Windows holds the derived window lengths for one tempo/signature/sample
// rate combination.
type Windows struct {
	MeasureSeconds float64
	Measure        int
	HalfMeasure    int
	Beat           int
	Sixteenth      int
}

// Validate reports whether tempo, sig and sampleRate can be used with
// Calculate. The processing path does not call it; callers validate at the
// boundary.
func Validate(tempo float64, sig Signature, sampleRate float64) error {
	switch {
	case !(tempo > 0) || math.IsInf(tempo, 0):
		return fmt.Errorf("%w: tempo must be > 0 and finite: %f", ErrInvalidTiming, tempo)
	case sig.Numerator <= 0:
		return fmt.Errorf("%w: time signature numerator must be > 0: %d", ErrInvalidTiming, sig.Numerator)
	case sig.Denominator <= 0:
		return fmt.Errorf("%w: time signature denominator must be > 0: %d", ErrInvalidTiming, sig.Denominator)
	case !(sampleRate > 0) || math.IsInf(sampleRate, 0):
		return fmt.Errorf("%w: sample rate must be > 0 and finite: %f", ErrInvalidTiming, sampleRate)
	}
	return nil
}

// SecondsToSamples converts a duration to a sample count, rounding up.
func SecondsToSamples(seconds, sampleRate float64) int {
	return int(math.Ceil(seconds*sampleRate - sampleTolerance))
}

// Calculate derives the window lengths. The measure lasts
// (60 / tempo) × denominator seconds; beat, half measure and sixteenth
// are ceiling divisions of the measure length in samples.
func Calculate(tempo float64, sig Signature, sampleRate float64) Windows {
	seconds := (60 / tempo) * float64(sig.Denominator)
	measure := SecondsToSamples(seconds, sampleRate)

	return Windows{
		MeasureSeconds: seconds,
		Measure:        measure,
		HalfMeasure:    ceilDiv(measure, 2),
		Beat:           ceilDiv(measure, sig.Denominator),
		Sixteenth:      ceilDiv(measure, 16),
	}
}

func ceilDiv(n, d int) int {
	return int(math.Ceil(float64(n) / float64(d)))
}
