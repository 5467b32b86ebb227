// Package effects provides the working-precision (float32) effect stages of
// the lo-fi pipeline.
//
// Stages:
//   - BitCrusher: amplitude resolution reduction with an optional sine LFO
//     sweeping the resolution.
//   - Limiter: peak limiter with attack/release envelope and a linear ceiling.
//   - LFO: 128-entry wavetable sine oscillator (0.1 to 10 Hz).
//
// Every stage implements Stage, processing one channel buffer in place.
// Stages whose state spans channels also implement MultiChannelStage.
// All hot paths are allocation-free.
//
// Building with the fastmath tag replaces the per-sample 2^x used by the
// modulated bit crusher with an algo-approx approximation.
package effects
