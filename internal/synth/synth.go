// Package synth ties the voice bank, lookup tables, and message queue
// together into the engine's single external surface: post a control
// message, then fill a buffer of output frames. Everything off the hot
// path — allocation, table construction — happens in New.
package synth

import (
	"github.com/cbegin/mcksynth/internal/bufferpool"
	"github.com/cbegin/mcksynth/internal/fixedpoint"
	"github.com/cbegin/mcksynth/internal/lut"
	"github.com/cbegin/mcksynth/internal/msgqueue"
	"github.com/cbegin/mcksynth/internal/operator"
	"github.com/cbegin/mcksynth/internal/voice"
)

// VoiceCount is the number of simultaneously sounding voices, matching
// the original firmware's AUDIO_SYNTH_VOICE_COUNT.
const VoiceCount = 8

// Timebase is the number of timebase units per second that envelope
// durations (Attack/Decay/Release) are expressed in — 1000 means
// durations are in milliseconds.
const Timebase = 1000

// Config is everything needed to construct a Synth.
type Config struct {
	SampleRate    float64
	MasterLevel   fixedpoint.Q15
	QueueCapacity int
	Voice         voice.Config
}

// DefaultConfig is a 48kHz engine at unity master level with every
// voice silent until configured.
func DefaultConfig() Config {
	return Config{
		SampleRate:    48000,
		MasterLevel:   fixedpoint.Q15One,
		QueueCapacity: msgqueue.DefaultCapacity,
		Voice:         voice.DefaultConfig(),
	}
}

// Synth is the top-level engine: a bank of voices mixed down to a
// single mono signal, driven by a control queue drained once per
// buffer.
type Synth struct {
	tables      *lut.Tables
	voices      [VoiceCount]*voice.Voice
	queue       *msgqueue.Queue
	masterLevel fixedpoint.Q15

	draftA []fixedpoint.Q15
	draftB []fixedpoint.Q15
}

// New builds a Synth. All allocation — voices, LUTs, draft buffers,
// the control queue — happens here; FillBuffer never allocates.
func New(cfg Config) *Synth {
	dTimebase := uint32(cfg.SampleRate / Timebase)
	if dTimebase == 0 {
		dTimebase = 1
	}
	tables := lut.Build(cfg.SampleRate)

	s := &Synth{
		tables:      tables,
		queue:       msgqueue.New(cfg.QueueCapacity),
		masterLevel: cfg.MasterLevel,
	}
	for i := range s.voices {
		s.voices[i] = voice.New(tables, dTimebase)
		s.voices[i].SetConfig(cfg.Voice)
	}
	return s
}

// Post enqueues a control message for the next FillBuffer call to
// apply. Safe to call from any number of goroutines; drops silently if
// the queue is full.
func (s *Synth) Post(msg msgqueue.Message) bool {
	return s.queue.Post(msg)
}

// Dropped returns how many posted messages were dropped for a full
// queue.
func (s *Synth) Dropped() uint64 {
	return s.queue.Dropped()
}

// SetVoiceOperatorConfig reconfigures a single operator slot on a
// single voice, leaving every other voice and operator untouched.
// Out-of-range voice indices clamp, matching apply's policy.
func (s *Synth) SetVoiceOperatorConfig(voiceIdx, opIndex int, cfg operator.Config) {
	s.voices[clampVoice(voiceIdx)].SetOperatorConfig(opIndex, cfg)
}

// VoiceHeld reports whether the voice at idx currently has its key
// down. Out-of-range indices clamp rather than panic, matching apply's
// policy. Exposed so a caller doing its own voice allocation can find
// a free slot.
func (s *Synth) VoiceHeld(idx int) bool {
	return s.voices[clampVoice(idx)].Held()
}

// VoiceFree reports whether the voice at idx can be handed a new note:
// its key is up and any release tail has fully rung out.
func (s *Synth) VoiceFree(idx int) bool {
	return s.voices[clampVoice(idx)].Free()
}

// FillBuffer drains the control queue, then renders len(out) frames
// into out: voice 0 runs directly into the accumulator, every
// subsequent voice runs into a scratch buffer and saturating-adds into
// it, and the result is scaled by the master level before encoding
// each sample as a mono frame.
func (s *Synth) FillBuffer(out []uint32) {
	s.queue.Drain(s.apply)

	n := len(out)
	if cap(s.draftA) < n {
		s.draftA = make([]fixedpoint.Q15, n)
		s.draftB = make([]fixedpoint.Q15, n)
	}
	draftA := s.draftA[:n]
	draftB := s.draftB[:n]

	s.voices[0].FillBlock(draftA)
	for _, v := range s.voices[1:] {
		v.FillBlock(draftB)
		for i := range draftA {
			draftA[i] = draftA[i].Add(draftB[i])
		}
	}

	for i, sample := range draftA {
		out[i] = bufferpool.FrameFromMono(int16(sample.Mul(s.masterLevel)))
	}
}

// apply applies one drained control message to the voice bank. The
// caller supplies the voice index directly — this engine has no
// dynamic voice allocation or stealing; an out-of-range index is
// clamped into bounds rather than crashing.
func (s *Synth) apply(msg msgqueue.Message) {
	switch msg.Type {
	case msgqueue.NoteOn:
		s.voices[clampVoice(msg.Voice)].NoteOn(msg.Note, msg.Velocity)
	case msgqueue.NoteOff:
		s.voices[clampVoice(msg.Voice)].NoteOff()
	case msgqueue.Panic:
		for _, v := range s.voices {
			v.Panic()
		}
	}
}

func clampVoice(idx int) int {
	if idx < 0 {
		return 0
	}
	if idx >= VoiceCount {
		return VoiceCount - 1
	}
	return idx
}
