package effects

// Stage processes one channel of working-precision samples in place.
// Implementations must not allocate.
type Stage interface {
	ProcessInPlace(buf []float32)
}

// MultiChannelStage is implemented by stages whose state spans all channels
// of a block, such as a modulation source that advances once per frame or
// a limiter with a linked gain envelope. Every channel slice has the same
// length.
type MultiChannelStage interface {
	Stage
	ProcessChannels(channels [][]float32)
}

// Resetter is implemented by stages that hold state between blocks.
type Resetter interface {
	Reset()
}

// SampleRateSetter is implemented by stages whose coefficients depend on
// the sample rate.
type SampleRateSetter interface {
	SetSampleRate(sampleRate float64) error
}

// ProcessChannels runs s over every channel. Stages implementing
// MultiChannelStage process the block as a whole.
func ProcessChannels(s Stage, channels [][]float32) {
	if m, ok := s.(MultiChannelStage); ok {
		m.ProcessChannels(channels)
		return
	}
	for _, ch := range channels {
		s.ProcessInPlace(ch)
	}
}

// Identity is a Stage that leaves samples untouched.
type Identity struct{}

// ProcessInPlace implements Stage.
func (Identity) ProcessInPlace([]float32) {}
