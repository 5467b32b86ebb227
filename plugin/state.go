package plugin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrShortState is returned when a state stream ends before every
// parameter has been read.
var ErrShortState = errors.New("plugin: short state stream")

// stateRecord is the persisted component state: bypass as a 32-bit integer
// followed by the remaining normalized values in declaration order, all
// little-endian.
type stateRecord struct {
	Bypass int32
	Values [numParams - 1]float32
}

// StateSize is the encoded state length in bytes.
const StateSize = 4 + 4*(int(numParams)-1)

// WriteState writes the current parameter values to w.
func WriteState(w io.Writer, ps *Params) error {
	var rec stateRecord
	if ps.Bypassed() {
		rec.Bypass = 1
	}
	for i := range rec.Values {
		rec.Values[i] = float32(ps.list[i+1].Normalized())
	}

	if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
		return fmt.Errorf("plugin: write state: %w", err)
	}
	return nil
}

// ReadState reads a state written by WriteState and applies it. The stream
// is decoded completely before any parameter changes, so a truncated or
// failing stream leaves ps untouched.
func ReadState(r io.Reader, ps *Params) error {
	var rec stateRecord
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %w", ErrShortState, err)
		}
		return fmt.Errorf("plugin: read state: %w", err)
	}

	bypass := 0.0
	if rec.Bypass != 0 {
		bypass = 1
	}
	ps.list[ParamBypass].SetNormalized(bypass)
	for i, v := range rec.Values {
		ps.list[i+1].SetNormalized(float64(v))
	}
	return nil
}
