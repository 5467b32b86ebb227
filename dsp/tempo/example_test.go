package tempo_test

import (
	"fmt"

	"github.com/cwbudde/algo-lofi/dsp/tempo"
)

func ExampleCalculate() {
	w := tempo.Calculate(120, tempo.Signature{Numerator: 4, Denominator: 4}, 44100)

	fmt.Printf("measure=%.1fs (%d samples)\n", w.MeasureSeconds, w.Measure)
	fmt.Printf("half=%d beat=%d sixteenth=%d\n", w.HalfMeasure, w.Beat, w.Sixteenth)

	// Output:
	// measure=2.0s (88200 samples)
	// half=44100 beat=22050 sixteenth=5513
}
