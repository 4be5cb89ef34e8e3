// Package audiosink adapts a bufferpool.Pool into a playable audio
// stream. It is the pull-side consumer described in the spec's design
// notes: "give me up to F frames, or nothing" — here realized as
// ebitengine/v2's audio.Context pulling float32 samples through a
// io.Reader, the same StreamReader shape the donor engine uses to
// bridge its own sample sources to the same library.
package audiosink

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/mcksynth/internal/bufferpool"
)

// reader pulls committed frames out of a bufferpool.Pool and converts
// them to interleaved float32 stereo samples for ebiten's audio
// context. It never blocks: an empty pool yields silence via the
// pool's own underrun handling.
type reader struct {
	pool *bufferpool.Pool
	// pos is how far into the current (uncommitted) pool buffer the
	// last Read call consumed — a pool buffer is only committed back
	// to the producer once every one of its frames has been read.
	pos int
}

func newReader(pool *bufferpool.Pool) *reader {
	return &reader{pool: pool}
}

// Read fills p with float32LE stereo frames, pulling whole pool
// buffers at a time and leaving any partial tail buffered for the next
// call.
func (r *reader) Read(p []byte) (int, error) {
	frames := len(p) / 8
	written := 0
	for written < frames {
		buf, ok := r.pool.AcquireRead(false)
		n := len(buf.Frames) - r.pos
		if !ok && r.pos == 0 {
			for i := written * 8; i < frames*8; i++ {
				p[i] = 0
			}
			written = frames
			break
		}
		if n > frames-written {
			n = frames - written
		}
		for i := 0; i < n; i++ {
			left, right := bufferpool.ToStereo(buf.Frames[r.pos+i])
			off := (written + i) * 8
			binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32(left)/32768.0))
			binary.LittleEndian.PutUint32(p[off+4:], math.Float32bits(float32(right)/32768.0))
		}
		written += n
		r.pos += n
		if r.pos >= len(buf.Frames) {
			r.pos = 0
			if ok {
				r.pool.CommitRead()
			}
		}
		if n == 0 {
			break
		}
	}
	return written * 8, nil
}

func (r *reader) Close() error { return nil }

// Sink plays a Pool's frames through the host audio device.
type Sink struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", contextRate, sampleRate)
	}
	return context, nil
}

// New builds a Sink pulling from pool at sampleRate. Only one sample
// rate may be used per process, matching ebiten's single shared audio
// context.
func New(sampleRate int, pool *bufferpool.Pool) (*Sink, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	rd := newReader(pool)
	pl, err := ctx.NewPlayerF32(rd)
	if err != nil {
		return nil, err
	}
	return &Sink{player: pl, reader: rd}, nil
}

// Play starts (or resumes) playback.
func (s *Sink) Play() { s.player.Play() }

// Pause stops playback without releasing resources.
func (s *Sink) Pause() { s.player.Pause() }

// IsPlaying reports whether the sink is currently playing.
func (s *Sink) IsPlaying() bool { return s.player.IsPlaying() }

// Close stops playback for good and releases the underlying player.
func (s *Sink) Close() error {
	s.player.Pause()
	s.player.Close()
	return s.reader.Close()
}
