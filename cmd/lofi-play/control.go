package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cwbudde/algo-lofi/measure/level"
	"github.com/cwbudde/algo-lofi/plugin"
)

const mixStep = 0.05

// errStopped ends the control goroutines without reporting a failure.
var errStopped = errors.New("playback stopped")

// controller maps key presses to parameter changes. It runs on the control
// goroutine; the processor picks the values up on its next block.
type controller struct {
	proc    *plugin.Processor
	limiter bool
}

func nudge(p *plugin.Parameter, delta float64) {
	p.SetNormalized(p.Normalized() + delta)
}

// handleKey applies one key and reports whether playback should stop.
func (c *controller) handleKey(k byte) bool {
	ps := c.proc.Params()
	switch k {
	case 'w':
		nudge(ps.Get(plugin.ParamWetMix), -mixStep)
	case 'W':
		nudge(ps.Get(plugin.ParamWetMix), mixStep)
	case 'd':
		nudge(ps.Get(plugin.ParamDryMix), -mixStep)
	case 'D':
		nudge(ps.Get(plugin.ParamDryMix), mixStep)
	case '[':
		ps.SetResolutionBits(int(ps.ResolutionBits()) - 1)
	case ']':
		ps.SetResolutionBits(int(ps.ResolutionBits()) + 1)
	case 'b':
		bypass := ps.Get(plugin.ParamBypass)
		bypass.SetNormalized(1 - bypass.Normalized())
	case 'l':
		c.limiter = !c.limiter
		c.proc.SetLimiterEnabled(c.limiter)
	case 'q', 'Q', 3, 27: // q, Ctrl-C, Esc
		return true
	}
	return false
}

func (c *controller) status() string {
	ps := c.proc.Params()
	limiter := "off"
	if c.limiter {
		limiter = "on"
	}
	return fmt.Sprintf("%s | LFO %s @ %s | wet %s | dry %s | bypass %s | limiter %s | VU %6.1f dB",
		ps.Get(plugin.ParamResolution),
		ps.Get(plugin.ParamLFORate),
		ps.Get(plugin.ParamLFODepth),
		ps.Get(plugin.ParamWetMix),
		ps.Get(plugin.ParamDryMix),
		ps.Get(plugin.ParamBypass),
		limiter,
		level.ToDB(c.proc.VU()),
	)
}

// controlLoop applies keys and redraws the status line until a quit key,
// a closed key channel or cancellation.
func controlLoop(ctx context.Context, c *controller, keys <-chan byte, w io.Writer, refresh time.Duration) error {
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	draw := func() { fmt.Fprintf(w, "\r\033[K%s", c.status()) }
	draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok || c.handleKey(k) {
				fmt.Fprint(w, "\r\n")
				return errStopped
			}
			draw()
		case <-ticker.C:
			draw()
		}
	}
}

// readKeys forwards bytes from r until it fails. It blocks in Read and is
// left running when playback ends.
func readKeys(r io.Reader, keys chan<- byte) {
	defer close(keys)
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			keys <- buf[0]
		}
		if err != nil {
			return
		}
	}
}
