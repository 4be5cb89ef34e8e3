package operator

import "github.com/cbegin/mcksynth/internal/fixedpoint"

// Stage identifies where an envelope is in its ADSR cycle.
type Stage int

const (
	StageAttack Stage = iota
	StageDecay
	StageSustain
	StageRelease
	StageOff
)

// EnvelopeConfig is the per-operator ADSR shape. Attack, Decay, and
// Release are durations in timebase units (milliseconds by default);
// Sustain is the held level in [0,1].
type EnvelopeConfig struct {
	Attack  uint32
	Decay   uint32
	Sustain fixedpoint.Q31
	Release uint32
}

// DefaultEnvelopeConfig is an instant pluck: no attack, no decay, full
// sustain, no release — matching the original firmware's default.
func DefaultEnvelopeConfig() EnvelopeConfig {
	return EnvelopeConfig{
		Attack:  0,
		Decay:   0,
		Sustain: fixedpoint.Q31One,
		Release: 0,
	}
}

// envelope is the per-sample ADSR state machine described in the
// spec's single source-of-truth table: each stage ramps linearly from
// whatever level it started at toward a target, over a duration in
// samples; a zero duration is an instantaneous jump that cascades into
// the next stage within the same sample.
type envelope struct {
	cfg    EnvelopeConfig
	durA   uint32
	durD   uint32
	durR   uint32
	active bool

	stage            Stage
	level            fixedpoint.Q31
	dLevel           fixedpoint.Q31
	samplesIntoStage uint32
}

// configure installs a new ADSR shape and recomputes stage durations
// in samples. It does not touch the running level or stage — a config
// change applied mid-note takes effect from the next stage transition,
// which may produce an audible click (allowed by the spec).
func (e *envelope) configure(cfg EnvelopeConfig, dTimebase uint32) {
	e.cfg = cfg
	e.durA = cfg.Attack * dTimebase
	e.durD = cfg.Decay * dTimebase
	e.durR = cfg.Release * dTimebase
}

// noteOn resets the envelope to a fresh Attack from zero.
func (e *envelope) noteOn() {
	e.active = true
	e.level = fixedpoint.Q31Zero
	e.enterStage(StageAttack)
}

// noteOff marks the note released. The Sustain stage observes this on
// its next tick and transitions to Release; Attack/Decay stages keep
// running to completion first; see tick().
func (e *envelope) noteOff() {
	e.active = false
}

// panic silences the envelope immediately, bypassing Release.
func (e *envelope) panic() {
	e.active = false
	e.level = fixedpoint.Q31Zero
	e.stage = StageOff
}

// tick advances the envelope by one sample and returns the current
// level.
func (e *envelope) tick() fixedpoint.Q31 {
	switch e.stage {
	case StageAttack:
		e.level = e.level.Add(e.dLevel)
		e.samplesIntoStage++
		if e.samplesIntoStage >= e.durA {
			if e.active {
				e.enterStage(StageDecay)
			} else {
				e.enterStage(StageRelease)
			}
		}
	case StageDecay:
		e.level = e.level.Add(e.dLevel)
		e.samplesIntoStage++
		if e.samplesIntoStage >= e.durD {
			e.enterStage(StageSustain)
		}
	case StageSustain:
		if !e.active {
			e.enterStage(StageRelease)
		}
	case StageRelease:
		e.level = e.level.Add(e.dLevel)
		e.samplesIntoStage++
		if e.samplesIntoStage >= e.durR {
			e.enterStage(StageOff)
		}
	case StageOff:
		e.level = fixedpoint.Q31Zero
		if e.active {
			e.enterStage(StageAttack)
		}
	}
	return e.level
}

// enterStage transitions into a new stage, computing the per-sample
// delta toward that stage's target from whatever level the envelope
// currently holds. A zero-duration stage jumps straight to its target
// and cascades into the next stage within the same sample, so a chain
// of a=0,d=0 note can reach Sustain (or even Off, for a fully instant
// envelope) without waiting a sample per stage.
func (e *envelope) enterStage(stage Stage) {
	e.stage = stage
	e.samplesIntoStage = 0

	target := e.targetFor(stage)
	duration := e.durationFor(stage)

	if duration == 0 {
		e.level = target
		switch stage {
		case StageAttack:
			e.enterStage(StageDecay)
		case StageDecay:
			e.enterStage(StageSustain)
		case StageRelease:
			e.enterStage(StageOff)
		case StageSustain:
			if !e.active {
				e.enterStage(StageRelease)
			}
		}
		return
	}

	e.dLevel = fixedpoint.Q31((int64(target) - int64(e.level)) / int64(duration))
}

func (e *envelope) targetFor(stage Stage) fixedpoint.Q31 {
	switch stage {
	case StageAttack:
		return fixedpoint.Q31One
	case StageDecay, StageSustain:
		return e.cfg.Sustain
	default: // Release, Off
		return fixedpoint.Q31Zero
	}
}

func (e *envelope) durationFor(stage Stage) uint32 {
	switch stage {
	case StageAttack:
		return e.durA
	case StageDecay:
		return e.durD
	case StageRelease:
		return e.durR
	default: // Sustain has no duration-driven exit, Off none either
		return 0
	}
}
