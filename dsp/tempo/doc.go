// Package tempo derives sample-accurate musical window lengths (measure,
// half measure, beat, sixteenth note) from host tempo and time signature.
//
// All window lengths are rounded up: they mark boundaries that must never
// be reached early.
package tempo
