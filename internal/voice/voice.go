// Package voice implements one polyphonic voice: a fixed, ordered chain
// of operators sharing a single note. A voice owns no back-pointer to
// its synth; it is handed the lookup tables and timebase it needs at
// construction time, per the spec's re-architecture notes.
package voice

import (
	"github.com/cbegin/mcksynth/internal/fixedpoint"
	"github.com/cbegin/mcksynth/internal/lut"
	"github.com/cbegin/mcksynth/internal/operator"
)

// OperatorCount is the number of operators in every voice's chain,
// matching the original firmware's fixed operator count.
const OperatorCount = 4

// Config is a voice's static shape: the per-operator configuration for
// every slot in the chain.
type Config struct {
	Operators [OperatorCount]operator.Config
}

// DefaultConfig builds a silent chain of default operators.
func DefaultConfig() Config {
	var cfg Config
	for i := range cfg.Operators {
		cfg.Operators[i] = operator.DefaultConfig()
	}
	return cfg
}

// Voice is a fixed chain of operators producing one polyphonic voice's
// contribution to the mix.
type Voice struct {
	tables    *lut.Tables
	operators [OperatorCount]*operator.Operator

	note   uint16
	active bool
}

// New builds a voice sharing the given lookup tables, with dTimebase
// samples-per-timebase-unit baked into every operator's envelope.
func New(tables *lut.Tables, dTimebase uint32) *Voice {
	v := &Voice{tables: tables}
	for i := range v.operators {
		v.operators[i] = operator.New(tables, dTimebase)
	}
	return v
}

// SetConfig applies per-operator configuration across the whole chain.
func (v *Voice) SetConfig(cfg Config) {
	for i, opCfg := range cfg.Operators {
		v.operators[i].SetConfig(opCfg)
	}
}

// SetOperatorConfig reconfigures a single operator slot, leaving the
// rest of the chain untouched. opIndex outside [0, OperatorCount) is a
// caller bug and panics via the slice index, matching how the rest of
// this package addresses operator slots.
func (v *Voice) SetOperatorConfig(opIndex int, cfg operator.Config) {
	v.operators[opIndex].SetConfig(cfg)
}

// Held reports whether this voice's note is still down — false as
// soon as NoteOff or Panic is called, even if its operators are still
// ringing out through release.
func (v *Voice) Held() bool {
	return v.active
}

// Free reports whether this voice can be handed a new note: its key
// is up and every operator has finished releasing into silence. The
// synth itself does no allocation; it exposes this through
// Synth.VoiceFree for a caller-side allocator.
func (v *Voice) Free() bool {
	if v.active {
		return false
	}
	for _, op := range v.operators {
		if !op.Idle() {
			return false
		}
	}
	return true
}

// Note returns the MIDI note number this voice last received, valid
// only while Held.
func (v *Voice) Note() uint16 {
	return v.note
}

// NoteOn starts a new note on every operator in the chain. Each
// operator derives its own phase increment from the voice's base
// increment times its own frequency multiplier.
func (v *Voice) NoteOn(note uint16, velocity uint8) {
	v.note = note
	v.active = true
	baseDPhase := v.tables.DPhaseForNote(int(note))
	for _, op := range v.operators {
		op.NoteOn(baseDPhase, velocity)
	}
}

// NoteOff releases the voice's note. Each operator's envelope runs its
// own release independently; Held reports false at once, while Free
// stays false until every operator's envelope has finished.
func (v *Voice) NoteOff() {
	v.active = false
	for _, op := range v.operators {
		op.NoteOff()
	}
}

// Panic silences the voice immediately, bypassing release.
func (v *Voice) Panic() {
	v.active = false
	for _, op := range v.operators {
		op.Panic()
	}
}

// FillBlock renders len(draft) samples of this voice's contribution
// into draft, overwriting it. Operators run in index order, each
// feeding the previous operator's sample forward as its "prev" input;
// the last operator's output is the voice's contribution for that
// sample.
func (v *Voice) FillBlock(draft []fixedpoint.Q15) {
	for i := range draft {
		var sample fixedpoint.Q15
		for _, op := range v.operators {
			sample = op.Tick(sample)
		}
		draft[i] = sample
	}
}
