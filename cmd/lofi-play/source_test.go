package main

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/cwbudde/algo-lofi/internal/wavio"
	"github.com/cwbudde/algo-lofi/plugin"
)

func passThroughProcessor(t *testing.T, channels, block int) *plugin.Processor {
	t.Helper()
	p := plugin.NewProcessor(plugin.NewParams(), plugin.WithMaxBlockSize(block))
	if err := p.Setup(44100, channels); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func rampAudio(channels, frames int) *wavio.Audio {
	a := &wavio.Audio{SampleRate: 44100, BitDepth: 16, Channels: make([][]float64, channels)}
	for ch := range a.Channels {
		a.Channels[ch] = make([]float64, frames)
		for i := range a.Channels[ch] {
			a.Channels[ch][i] = float64(ch+1) * float64(i) / 64
		}
	}
	return a
}

func decodeFrames(t *testing.T, buf []byte, channels int) [][]float32 {
	t.Helper()
	frames := len(buf) / (bytesPerSample * channels)
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := range out {
			off := (i*channels + ch) * bytesPerSample
			out[ch][i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		}
	}
	return out
}

func TestSourceInterleavesFrames(t *testing.T) {
	a := rampAudio(2, 40)
	src := newSource(passThroughProcessor(t, 2, 16), a, 16, false, nil)

	buf := make([]byte, 40*2*bytesPerSample)
	n, err := src.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read() = %d bytes, want %d", n, len(buf))
	}

	got := decodeFrames(t, buf, 2)
	for ch := range got {
		for i, v := range got[ch] {
			if want := float32(a.Channels[ch][i]); v != want {
				t.Fatalf("ch %d frame %d = %v, want %v", ch, i, v, want)
			}
		}
	}
	if src.Played() != 40 {
		t.Fatalf("Played() = %d, want 40", src.Played())
	}
}

func TestSourceEOFWithoutLoop(t *testing.T) {
	src := newSource(passThroughProcessor(t, 1, 8), rampAudio(1, 10), 8, false, nil)
	buf := make([]byte, 16*bytesPerSample)

	n, err := src.Read(buf)
	if err != nil || n != 10*bytesPerSample {
		t.Fatalf("Read() = %d, %v, want %d bytes", n, err, 10*bytesPerSample)
	}
	if _, err := src.Read(buf); !errors.Is(err, io.EOF) {
		t.Fatalf("Read() after end error = %v, want io.EOF", err)
	}
}

func TestSourceLoops(t *testing.T) {
	a := rampAudio(1, 10)
	src := newSource(passThroughProcessor(t, 1, 4), a, 4, true, nil)
	buf := make([]byte, 25*bytesPerSample)

	n, err := src.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	got := decodeFrames(t, buf, 1)[0]
	for i, v := range got {
		if want := float32(a.Channels[0][i%10]); v != want {
			t.Fatalf("frame %d = %v, want %v", i, v, want)
		}
	}
}

func TestSourcePartialFrameRequest(t *testing.T) {
	src := newSource(passThroughProcessor(t, 2, 4), rampAudio(2, 4), 4, false, nil)
	n, err := src.Read(make([]byte, 5))
	if n != 0 || err != nil {
		t.Fatalf("Read(5 bytes) = %d, %v, want 0, nil", n, err)
	}
}

func TestSourceAppliesTransport(t *testing.T) {
	p := passThroughProcessor(t, 1, 32)
	tr := &plugin.Transport{Tempo: 120, Numerator: 4, Denominator: 4}
	src := newSource(p, rampAudio(1, 32), 32, false, tr)
	if _, err := src.Read(make([]byte, 32*bytesPerSample)); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := p.Windows().Beat; got != 22050 {
		t.Fatalf("Windows().Beat = %d, want 22050", got)
	}
}
