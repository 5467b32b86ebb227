package engine

import (
	"github.com/cwbudde/algo-lofi/dsp/core"
	"github.com/cwbudde/algo-lofi/dsp/effects"
)

// Process32 runs one callback on 32-bit host buffers.
func (e *Engine) Process32(inputs, outputs [][]float32, inChannels, outChannels, frames int) {
	Process(e, inputs, outputs, inChannels, outChannels, frames)
}

// Process64 runs one callback on 64-bit host buffers.
func (e *Engine) Process64(inputs, outputs [][]float64, inChannels, outChannels, frames int) {
	Process(e, inputs, outputs, inChannels, outChannels, frames)
}

// Process runs one callback. inputs[ch] and outputs[ch] hold at least frames
// samples; an input and an output channel of the same index may share
// memory. Output channels without a matching input channel are zeroed.
//
// inChannels and outChannels must not exceed e.Channels(); larger counts
// panic.
func Process[T core.Sample](e *Engine, inputs, outputs [][]T, inChannels, outChannels, frames int) {
	if frames <= 0 {
		return
	}
	e.syncStages()

	e.pre.Ensure(e.channels, frames)
	e.post.Ensure(e.channels, frames)
	pre := e.pre.Views()[:inChannels]
	post := e.post.Views()[:outChannels]
	mixed := min(inChannels, outChannels)

	for ch, dst := range pre {
		core.Convert(dst, inputs[ch][:frames])
	}

	effects.ProcessChannels(e.crusher, pre)

	for ch := 0; ch < mixed; ch++ {
		copy(post[ch], pre[ch])
	}

	dry, wet := e.DryMix(), e.WetMix()
	if e.limiterEnabled.Load() && e.limiter != nil {
		mixLimited(e, inputs, outputs, post[:mixed], dry, wet, frames)
	} else {
		mixDirect(inputs, outputs, post[:mixed], dry, wet, frames)
	}

	for ch := mixed; ch < outChannels; ch++ {
		core.Zero(outputs[ch][:frames])
	}
}

// mixDirect blends in host precision so a dry-only mix reproduces the
// input exactly.
func mixDirect[T core.Sample](inputs, outputs [][]T, post [][]float32, dry, wet float32, frames int) {
	dryT := T(dry)
	for ch, wetBuf := range post {
		in := inputs[ch][:frames]
		out := outputs[ch][:frames]
		for i, w := range wetBuf {
			// in and out may alias: read the input sample before writing.
			x := in[i]
			v := T(w * wet)
			if dry != 0 {
				v += x * dryT
			}
			out[i] = v
		}
	}
}

// mixLimited blends in working precision, limits the mix and writes it
// back.
func mixLimited[T core.Sample](e *Engine, inputs, outputs [][]T, post [][]float32, dry, wet float32, frames int) {
	for ch, wetBuf := range post {
		in := inputs[ch][:frames]
		for i, w := range wetBuf {
			v := w * wet
			if dry != 0 {
				v += float32(in[i]) * dry
			}
			wetBuf[i] = v
		}
	}

	effects.ProcessChannels(e.limiter, post)

	// All inputs have been read; outputs can be written.
	for ch, mix := range post {
		core.Convert(outputs[ch][:frames], mix)
	}
}
