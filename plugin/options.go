package plugin

import "log/slog"

const defaultMaxBlockSize = 1024

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for setup and state events. Processing
// never logs.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxBlockSize sets the largest expected callback length. Scratch and
// metering buffers are sized for it during Setup.
func WithMaxBlockSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxBlock = n
		}
	}
}

// WithLimiterEnabled sets the initial state of the output limiter.
func WithLimiterEnabled(enabled bool) Option {
	return func(p *Processor) {
		p.limiter = enabled
	}
}
