// Package wavio reads and writes PCM WAV files as deinterleaved float64
// channels scaled to [-1, 1].
package wavio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Audio is deinterleaved PCM audio.
type Audio struct {
	SampleRate int
	// BitDepth is the integer sample width used on disk: 16, 24 or 32.
	BitDepth int
	Channels [][]float64
}

// Frames returns the per-channel sample count.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

func checkBitDepth(bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("wavio: unsupported bit depth %d (want 16, 24 or 32)", bitDepth)
	}
}

// Read decodes an integer PCM WAV file.
func Read(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wavio: invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("wavio: invalid wav buffer: %s", path)
	}
	if err := checkBitDepth(buf.SourceBitDepth); err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}

	nch := buf.Format.NumChannels
	frames := len(buf.Data) / nch
	scale := 1 / fullScale(buf.SourceBitDepth)
	a := &Audio{
		SampleRate: buf.Format.SampleRate,
		BitDepth:   buf.SourceBitDepth,
		Channels:   make([][]float64, nch),
	}
	for ch := range a.Channels {
		samples := make([]float64, frames)
		for i := range samples {
			samples[i] = float64(buf.Data[i*nch+ch]) * scale
		}
		a.Channels[ch] = samples
	}
	return a, nil
}

// Write encodes a as integer PCM at a.BitDepth. Samples outside [-1, 1)
// are clipped.
func Write(path string, a *Audio) error {
	if err := checkBitDepth(a.BitDepth); err != nil {
		return err
	}
	if len(a.Channels) == 0 {
		return fmt.Errorf("wavio: no channels to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	nch := len(a.Channels)
	peak := fullScale(a.BitDepth)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: nch,
			SampleRate:  a.SampleRate,
		},
		Data:           make([]int, a.Frames()*nch),
		SourceBitDepth: a.BitDepth,
	}
	for ch, samples := range a.Channels {
		for i, v := range samples {
			s := math.Round(v * peak)
			s = math.Max(-peak, math.Min(peak-1, s))
			buf.Data[i*nch+ch] = int(s)
		}
	}

	enc := wav.NewEncoder(f, a.SampleRate, a.BitDepth, nch, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: finalize %s: %w", path, err)
	}
	return nil
}
