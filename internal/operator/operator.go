// Package operator implements one FM/additive operator: a phase
// accumulator reading a shared sine table, combined through a
// per-sample ADSR envelope. An operator never looks back up to its
// owning voice or synth — sample rate and timebase are baked in at
// construction time instead of chased through a back-pointer, per the
// spec's re-architecture notes.
package operator

import (
	"github.com/cbegin/mcksynth/internal/fixedpoint"
	"github.com/cbegin/mcksynth/internal/lut"
)

// Mode selects how an operator's sample combines with the previous
// operator's output in the same voice.
type Mode int

const (
	// Additive sums this operator's sample into the running draft.
	Additive Mode = iota
	// FM uses the previous operator's sample as a phase-modulation
	// input instead of mixing it in.
	FM
)

// Config is the static shape of an operator: how it relates to the
// voice's fundamental, how loud it is, how it combines, and its ADSR.
type Config struct {
	FreqMult int
	Level    fixedpoint.Q15
	Mode     Mode
	Envelope EnvelopeConfig
}

// DefaultConfig matches the original firmware's operator default: unit
// multiplier, silent, additive, instant envelope.
func DefaultConfig() Config {
	return Config{
		FreqMult: 1,
		Level:    fixedpoint.Q15Zero,
		Mode:     Additive,
		Envelope: DefaultEnvelopeConfig(),
	}
}

// Operator is one oscillator plus one envelope generator.
type Operator struct {
	tables    *lut.Tables
	dTimebase uint32
	cfg       Config
	phase     uint32
	dPhase    uint32
	level     fixedpoint.Q15 // effective level: cfg.Level * velocity/127
	env       envelope
}

// New builds an operator sharing the given lookup tables, with
// dTimebase samples-per-timebase-unit baked in for envelope duration
// math.
func New(tables *lut.Tables, dTimebase uint32) *Operator {
	op := &Operator{
		tables:    tables,
		dTimebase: dTimebase,
		cfg:       DefaultConfig(),
	}
	op.env.configure(op.cfg.Envelope, dTimebase)
	op.env.stage = StageOff
	return op
}

// SetConfig applies a new configuration. Per the spec, this is safe to
// call concurrently with the audio worker's block processing in the
// sense that it won't corrupt state, but it is meant to be applied at
// a block boundary; an in-flight envelope stage's duration/target is
// rebuilt immediately, which may produce an audible click.
func (op *Operator) SetConfig(cfg Config) {
	op.cfg = cfg
	op.env.configure(cfg.Envelope, op.dTimebase)
}

// Config returns the operator's current configuration.
func (op *Operator) Config() Config {
	return op.cfg
}

// NoteOn resets phase and envelope and computes this operator's phase
// increment from the voice's base increment (already looked up from
// the note table) times this operator's frequency multiplier.
func (op *Operator) NoteOn(baseDPhase uint32, velocity uint8) {
	op.phase = 0
	op.dPhase = baseDPhase * uint32(op.cfg.FreqMult)
	op.level = fixedpoint.NewQ15(op.cfg.Level.Float64() * float64(velocity) / 127.0)
	op.env.noteOn()
}

// NoteOff releases the note. The envelope observes this on its next
// Sustain tick (or immediately if already past Sustain's entry).
func (op *Operator) NoteOff() {
	op.env.noteOff()
}

// Panic silences the operator immediately, bypassing release.
func (op *Operator) Panic() {
	op.level = fixedpoint.Q15Zero
	op.env.panic()
}

// Idle reports whether this operator's envelope has fully completed
// its release (or was panicked) and is producing silence with nothing
// left to do.
func (op *Operator) Idle() bool {
	return op.env.stage == StageOff && !op.env.active
}

// Tick advances the operator by one sample. prev is the sample
// produced by the previous operator in the voice's chain (zero for the
// first operator each block). The return value becomes "prev" for the
// next operator, or — for the last operator in a voice — the voice's
// contribution to the mix for this sample.
func (op *Operator) Tick(prev fixedpoint.Q15) fixedpoint.Q15 {
	envLevel := op.env.tick().ToQ15()
	sample := op.tables.LookupSine(op.phase)
	scaled := sample.Mul(op.level).Mul(envLevel)

	switch op.cfg.Mode {
	case FM:
		op.phase += op.dPhase + uint32(int32(prev)<<16)
		return scaled
	default: // Additive
		op.phase += op.dPhase
		return prev.Add(scaled)
	}
}
