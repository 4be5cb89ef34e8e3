// Package lut builds the synth's two read-only lookup tables: one
// cycle of a sine wave quantized to Q1.15, and a MIDI-note-to-phase-
// increment table. A Synth builds its own tables once at construction
// time and never mutates them afterward, the "lazily-initialized
// immutable resource" shape the design notes call for.
package lut

import (
	"math"

	"github.com/cbegin/mcksynth/internal/fixedpoint"
)

// Res is the LUT resolution: the sine table holds 2^Res entries and a
// phase's top Res bits select an entry directly, with no interpolation.
const Res = 10

// Size is the number of entries in the sine table.
const Size = 1 << Res

// Tables holds the two immutable lookup tables shared by every voice.
type Tables struct {
	Sine [Size]fixedpoint.Q15
	Note [128]uint32
}

// Build constructs a set of tables for the given sample rate. Every
// Synth calls this once at construction and shares the result across
// its own voices; two Synths at different sample rates each get their
// own tables.
func Build(sampleRate float64) *Tables {
	t := &Tables{}
	fillSine(&t.Sine)
	fillNoteTable(&t.Note, sampleRate)
	return t
}

func fillSine(sine *[Size]fixedpoint.Q15) {
	for i := 0; i < Size; i++ {
		phase := float64(i) / float64(Size)
		sine[i] = fixedpoint.Q15(math.Round(math.Sin(2*math.Pi*phase) * math.MaxInt16))
	}
}

// fillNoteTable computes entry[n] = ((440 * 2^((n-69)/12)) / sampleRate) * 2^32
// in double precision, then truncates to uint32 — entry 69 is exactly A4.
func fillNoteTable(table *[128]uint32, sampleRate float64) {
	for n := 0; n < 128; n++ {
		freq := 440.0 * math.Pow(2, float64(n-69)/12.0)
		dPhase := (freq / sampleRate) * float64(uint64(1)<<32)
		table[n] = uint32(dPhase)
	}
}

// LookupSine reads the sine table using the top Res bits of phase.
func (t *Tables) LookupSine(phase uint32) fixedpoint.Q15 {
	return t.Sine[phase>>(32-Res)]
}

// DPhaseForNote returns the phase increment for a MIDI note number,
// clamping out-of-range note numbers into [0, 127].
func (t *Tables) DPhaseForNote(note int) uint32 {
	if note < 0 {
		note = 0
	}
	if note > 127 {
		note = 127
	}
	return t.Note[note]
}
