package buffer

// AudioBuffer is multi-channel float32 scratch storage with a fixed
// geometry. All channels are carved out of one backing slice so a callback
// touches a single allocation.
//
// The zero value holds no storage; the first Ensure allocates it.
type AudioBuffer struct {
	channels int
	frames   int
	data     []float32
	views    [][]float32
}

// NewAudioBuffer returns a zero-filled AudioBuffer with the given geometry.
func NewAudioBuffer(channels, frames int) *AudioBuffer {
	b := &AudioBuffer{}
	b.Ensure(channels, frames)
	return b
}

// Ensure makes the buffer hold exactly channels × frames samples. Storage
// is replaced when none exists yet or when either dimension differs from
// the current geometry; otherwise Ensure is a no-op. Replaced storage is
// zeroed and prior contents are discarded. Ensure reports whether it
// allocated.
//
// Non-positive dimensions release the storage.
func (b *AudioBuffer) Ensure(channels, frames int) bool {
	if channels <= 0 || frames <= 0 {
		b.Release()
		return false
	}
	if b.data != nil && b.channels == channels && b.frames == frames {
		return false
	}

	data := make([]float32, channels*frames)
	views := make([][]float32, channels)
	for ch := range views {
		start := ch * frames
		views[ch] = data[start : start+frames : start+frames]
	}

	b.channels = channels
	b.frames = frames
	b.data = data
	b.views = views
	return true
}

// Release drops the storage. The next Ensure allocates again.
func (b *AudioBuffer) Release() {
	b.channels = 0
	b.frames = 0
	b.data = nil
	b.views = nil
}

// Channel returns the samples of channel ch. The slice is valid until the
// next Ensure or Release. ch must be in [0, Channels()); out-of-range
// indices panic.
func (b *AudioBuffer) Channel(ch int) []float32 {
	return b.views[ch]
}

// Views returns all channel slices. The outer slice is owned by the buffer
// and must not be modified; callers may reslice it.
func (b *AudioBuffer) Views() [][]float32 {
	return b.views
}

// Channels returns the channel count.
func (b *AudioBuffer) Channels() int {
	return b.channels
}

// Frames returns the per-channel sample count.
func (b *AudioBuffer) Frames() int {
	return b.frames
}

// Allocated reports whether the buffer currently holds storage.
func (b *AudioBuffer) Allocated() bool {
	return b.data != nil
}
