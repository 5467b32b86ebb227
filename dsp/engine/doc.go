// Package engine implements the lo-fi mix engine: a per-callback pipeline
// that snapshots host input into working-precision scratch, bit-crushes it,
// blends the wet result with the dry host signal and optionally limits the
// mix before writing it back in host precision.
//
// One real-time goroutine calls Process32, Process64 or Process. Parameter
// setters are lock-free and may be called concurrently from a control
// goroutine; changes are picked up at the start of the next callback.
//
// Once the callback geometry (channel count and frame count) is stable,
// processing performs no heap allocations.
package engine
