package main

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-lofi/internal/wavio"
	"github.com/cwbudde/algo-lofi/plugin"
)

const bytesPerSample = 4

// source is the io.Reader the audio device pulls from. Every Read runs the
// requested frames through the processor in blocks and writes them as
// interleaved little-endian float32.
type source struct {
	proc     *plugin.Processor
	channels [][]float64
	frames   int
	loop     bool

	pos    int
	ins    [][]float32
	outs   [][]float32
	block  *plugin.Block[float32]
	played atomic.Int64
}

func newSource(p *plugin.Processor, a *wavio.Audio, blockSize int, loop bool, transport *plugin.Transport) *source {
	nch := len(a.Channels)
	s := &source{
		proc:     p,
		channels: a.Channels,
		frames:   a.Frames(),
		loop:     loop,
		ins:      make([][]float32, nch),
		outs:     make([][]float32, nch),
	}
	for ch := 0; ch < nch; ch++ {
		s.ins[ch] = make([]float32, blockSize)
		s.outs[ch] = make([]float32, blockSize)
	}
	s.block = &plugin.Block[float32]{
		Inputs:      s.ins,
		Outputs:     s.outs,
		InChannels:  nch,
		OutChannels: nch,
		Transport:   transport,
	}
	return s
}

// Read fills buf with whole frames. Without looping it returns io.EOF once
// the file is exhausted.
func (s *source) Read(buf []byte) (int, error) {
	nch := len(s.channels)
	frameBytes := bytesPerSample * nch
	want := len(buf) / frameBytes
	if want == 0 {
		return 0, nil
	}

	n := 0
	for n < want {
		if s.pos >= s.frames {
			if !s.loop || s.frames == 0 {
				break
			}
			s.pos = 0
		}
		chunk := min(want-n, len(s.ins[0]), s.frames-s.pos)
		for ch, in := range s.ins {
			core.Convert(in[:chunk], s.channels[ch][s.pos:s.pos+chunk])
		}
		s.block.Frames = chunk
		s.proc.Process32(s.block)

		for i := 0; i < chunk; i++ {
			off := (n + i) * frameBytes
			for ch, out := range s.outs {
				binary.LittleEndian.PutUint32(buf[off+ch*bytesPerSample:], math.Float32bits(out[i]))
			}
		}
		n += chunk
		s.pos += chunk
	}

	s.played.Add(int64(n))
	if n == 0 {
		return 0, io.EOF
	}
	return n * frameBytes, nil
}

// Played returns the number of frames delivered so far.
func (s *source) Played() int64 { return s.played.Load() }
