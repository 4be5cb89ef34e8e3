// Package mcksynth is the engine's top-level facade: construct a
// Player, trigger notes on it, and it handles the producer goroutine,
// ring buffer, and audio sink underneath.
package mcksynth

import (
	"sync"
	"time"

	"github.com/cbegin/mcksynth/internal/audiosink"
	"github.com/cbegin/mcksynth/internal/bufferpool"
	"github.com/cbegin/mcksynth/internal/fixedpoint"
	"github.com/cbegin/mcksynth/internal/msgqueue"
	"github.com/cbegin/mcksynth/internal/operator"
	"github.com/cbegin/mcksynth/internal/synth"
	"github.com/cbegin/mcksynth/internal/voice"
)

// EventKind identifies what a PlaybackEvent reports.
type EventKind int

const (
	// EventMessageDropped fires when the control queue was full and a
	// posted message was discarded.
	EventMessageDropped EventKind = iota
	// EventUnderrun fires when the audio sink pulled from an empty
	// ring buffer and substituted silence.
	EventUnderrun
)

// PlaybackEvent is delivered over the channel returned by Watch.
type PlaybackEvent struct {
	Kind EventKind
}

type playerConfig struct {
	sampleRate      int
	poolBuffers     int
	framesPerBuffer int
	voice           voice.Config
	masterVolume    float64
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		sampleRate:      48000,
		poolBuffers:     bufferpool.DefaultPoolSize,
		framesPerBuffer: bufferpool.DefaultFramesPerBuffer,
		voice:           voice.DefaultConfig(),
		masterVolume:    1,
	}
}

// PlayerOption configures a Player at construction time.
type PlayerOption func(*playerConfig)

// WithVoiceConfig sets the per-operator configuration shared by every
// voice the Player allocates notes onto.
func WithVoiceConfig(cfg voice.Config) PlayerOption {
	return func(pc *playerConfig) { pc.voice = cfg }
}

// WithPoolBuffers sets the ring buffer depth between the audio worker
// and the sink.
func WithPoolBuffers(n int) PlayerOption {
	return func(pc *playerConfig) { pc.poolBuffers = n }
}

// WithFramesPerBuffer sets how many frames each ring buffer slot holds.
func WithFramesPerBuffer(n int) PlayerOption {
	return func(pc *playerConfig) { pc.framesPerBuffer = n }
}

// WithMasterVolume sets the initial master volume scalar, 0-1.
func WithMasterVolume(v float64) PlayerOption {
	return func(pc *playerConfig) { pc.masterVolume = v }
}

// Player wires a Synth, a buffer pool, and an audio sink into a single
// playable unit, running the producer loop on its own goroutine.
type Player struct {
	mu     sync.Mutex
	engine *synth.Synth
	pool   *bufferpool.Pool
	sink   *audiosink.Sink

	volume float64

	quit    chan struct{}
	wg      sync.WaitGroup
	eventCh chan PlaybackEvent
}

// NewPlayer builds and wires a Player at sampleRate but does not start
// the producer loop or playback — call Play for that.
func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	cfg.sampleRate = sampleRate
	for _, opt := range opts {
		opt(&cfg)
	}

	scfg := synth.DefaultConfig()
	scfg.SampleRate = float64(cfg.sampleRate)
	scfg.MasterLevel = fixedpoint.NewQ15(cfg.masterVolume)
	scfg.Voice = cfg.voice
	eng := synth.New(scfg)

	pool := bufferpool.New(cfg.poolBuffers, cfg.framesPerBuffer)
	sink, err := audiosink.New(cfg.sampleRate, pool)
	if err != nil {
		return nil, err
	}

	return &Player{
		engine: eng,
		pool:   pool,
		sink:   sink,
		volume: cfg.masterVolume,
		quit:   make(chan struct{}),
	}, nil
}

// Play starts the producer goroutine and the audio sink.
func (p *Player) Play() {
	p.wg.Add(1)
	go p.produce()
	p.sink.Play()
}

// producePollInterval is how long produce sleeps between retries when
// the pool is full, re-checking quit each time so Stop always returns
// promptly even if nothing is draining the pool (e.g. after Pause).
const producePollInterval = 200 * time.Microsecond

// produce runs on its own goroutine, continuously filling ring buffers
// from the engine until Stop closes quit.
func (p *Player) produce() {
	defer p.wg.Done()
	var lastDropped, lastUnderruns uint64
	for {
		select {
		case <-p.quit:
			return
		default:
		}
		buf, ok := p.pool.AcquireWrite(false)
		if !ok {
			select {
			case <-p.quit:
				return
			case <-time.After(producePollInterval):
			}
			continue
		}
		p.engine.FillBuffer(buf.Frames)
		p.pool.CommitWrite()
		if dropped := p.engine.Dropped(); dropped > lastDropped {
			lastDropped = dropped
			p.sendEvent(PlaybackEvent{Kind: EventMessageDropped})
		}
		if underruns := p.pool.Underruns(); underruns > lastUnderruns {
			lastUnderruns = underruns
			p.sendEvent(PlaybackEvent{Kind: EventUnderrun})
		}
	}
}

// Pause stops audio output without tearing down the pipeline.
func (p *Player) Pause() { p.sink.Pause() }

// Resume resumes audio output after Pause.
func (p *Player) Resume() { p.sink.Play() }

// Stop halts the producer goroutine, closes the audio sink, and closes
// the current Watch channel (if any) so a range loop over it
// terminates. The Player cannot be restarted after Stop; build a new
// one instead.
func (p *Player) Stop() error {
	close(p.quit)
	p.wg.Wait()
	p.mu.Lock()
	ch := p.eventCh
	p.eventCh = nil
	p.mu.Unlock()
	if ch != nil {
		close(ch)
	}
	return p.sink.Close()
}

// NoteOn posts a note-on message for the engine to apply at the start
// of its next buffer. voice selects which of the engine's voices
// sounds the note — this engine has no automatic voice allocation, so
// picking a free voice (see AllocateVoice) is the caller's job.
func (p *Player) NoteOn(voiceIdx int, note uint16, velocity uint8) bool {
	return p.engine.Post(msgqueue.Message{Type: msgqueue.NoteOn, Voice: voiceIdx, Note: note, Velocity: velocity})
}

// NoteOff posts a note-off for the given voice.
func (p *Player) NoteOff(voiceIdx int) bool {
	return p.engine.Post(msgqueue.Message{Type: msgqueue.NoteOff, Voice: voiceIdx})
}

// SetVoiceOperatorConfig reconfigures a single operator slot on a
// single voice, leaving every other voice untouched. Useful for giving
// individual voices distinct timbres (e.g. a bass voice with a longer
// release than a lead voice) instead of the uniform WithVoiceConfig
// applied to every voice at construction.
func (p *Player) SetVoiceOperatorConfig(voiceIdx, opIndex int, cfg operator.Config) {
	p.engine.SetVoiceOperatorConfig(voiceIdx, opIndex, cfg)
}

// VoiceCount is the number of voices a Player's engine exposes.
const VoiceCount = synth.VoiceCount

// AllocateVoice picks a voice index for a new note: the first fully
// free voice if one exists, otherwise the first voice whose key is up
// (even if still releasing), otherwise voice 0. This is the caller's
// own allocation policy, built on VoiceHeld/VoiceFree — the engine
// itself has no such policy built in.
func (p *Player) AllocateVoice() int {
	for i := 0; i < VoiceCount; i++ {
		if p.engine.VoiceFree(i) {
			return i
		}
	}
	for i := 0; i < VoiceCount; i++ {
		if !p.engine.VoiceHeld(i) {
			return i
		}
	}
	return 0
}

// Panic silences every voice immediately, bypassing release.
func (p *Player) Panic() bool {
	return p.engine.Post(msgqueue.Message{Type: msgqueue.Panic})
}

// MasterVolume returns the volume scalar the Player was constructed
// with (see WithMasterVolume). The engine's master level is fixed at
// construction and not adjustable live.
func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Underruns returns how many times the audio sink found the ring
// buffer empty and substituted silence.
func (p *Player) Underruns() uint64 {
	return p.pool.Underruns()
}

// Dropped returns how many control messages were dropped because the
// engine's queue was full when posted.
func (p *Player) Dropped() uint64 {
	return p.engine.Dropped()
}

// Watch returns a channel of PlaybackEvents. Only the most recently
// returned channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 16)
	p.mu.Lock()
	p.eventCh = ch
	p.mu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.mu.Lock()
	ch := p.eventCh
	p.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
