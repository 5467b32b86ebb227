// Package buffer provides the multi-channel scratch storage used by the
// processing engine. An AudioBuffer keeps one float32 slice per channel and
// is reallocated only when its geometry (channel count or frame count)
// changes, so steady-state audio callbacks never allocate.
package buffer
