package main

import (
	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-lofi/internal/wavio"
	"github.com/cwbudde/algo-lofi/plugin"
)

// renderBlocks runs a through process in fixed blocks of host precision T
// and returns the processed channels. The last block may be shorter.
func renderBlocks[T core.Sample](a *wavio.Audio, blockSize int, transport *plugin.Transport, process func(*plugin.Block[T])) [][]float64 {
	nch := len(a.Channels)
	frames := a.Frames()

	out := make([][]float64, nch)
	ins := make([][]T, nch)
	outs := make([][]T, nch)
	for ch := range out {
		out[ch] = make([]float64, frames)
		ins[ch] = make([]T, blockSize)
		outs[ch] = make([]T, blockSize)
	}

	b := &plugin.Block[T]{
		Inputs:      ins,
		Outputs:     outs,
		InChannels:  nch,
		OutChannels: nch,
		Transport:   transport,
	}
	for pos := 0; pos < frames; pos += blockSize {
		n := min(blockSize, frames-pos)
		for ch := range ins {
			core.Convert(ins[ch][:n], a.Channels[ch][pos:pos+n])
		}
		b.Frames = n
		process(b)
		for ch := range outs {
			core.Convert(out[ch][pos:pos+n], outs[ch][:n])
		}
	}
	return out
}

func render(p *plugin.Processor, a *wavio.Audio, blockSize, precision int, transport *plugin.Transport) [][]float64 {
	if precision == 64 {
		return renderBlocks(a, blockSize, transport, p.Process64)
	}
	return renderBlocks(a, blockSize, transport, p.Process32)
}
