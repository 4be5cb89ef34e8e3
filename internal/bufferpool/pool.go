// Package bufferpool implements the fixed-size ring of output frame
// buffers handed between the audio worker (producer) and the audio
// sink (consumer). It is single-producer/single-consumer: the producer
// only ever touches writeHead, the consumer only ever touches
// readHead, and the shared count is the sole cross-context variable,
// updated through atomic.Uint32 so the Go memory model gives the
// acquire/release pairing the design calls for without an explicit
// barrier instruction.
package bufferpool

import (
	"sync/atomic"
	"time"
)

// pollInterval is how long a blocking acquire sleeps between checks.
// Short enough to keep latency low, long enough not to burn a core
// spinning on an otherwise idle pool.
const pollInterval = 100 * time.Microsecond

// DefaultPoolSize is the compile-time AUDIO_BUFFER_POOL_SIZE default:
// a double-buffer, one slot filled by the producer while the other
// drains to the sink.
const DefaultPoolSize = 2

// DefaultFramesPerBuffer is the compile-time AUDIO_BUFFER_SIZE default,
// the larger of the two host-configurable sizes.
const DefaultFramesPerBuffer = 512

// Buffer is one ring slot: a fixed number of 32-bit stereo frames,
// each encoding (left<<16)|right as signed 16-bit halves.
type Buffer struct {
	Frames []uint32
}

// Pool is a bounded SPSC ring of N frame buffers.
type Pool struct {
	buffers []Buffer
	n       uint32

	writeHead uint32 // producer-owned
	readHead  uint32 // consumer-owned
	count     atomic.Uint32

	underruns atomic.Uint64

	// silent is a shared, never-mutated zero buffer substituted on a
	// non-blocking read against an empty pool.
	silent Buffer
}

// New allocates a pool of n buffers, each framesPerBuffer frames wide.
// All allocation happens here, at construction time; the hot path
// never allocates afterward. n must be at least 2.
func New(n int, framesPerBuffer int) *Pool {
	if n < 2 {
		n = 2
	}
	if framesPerBuffer < 1 {
		framesPerBuffer = 1
	}
	p := &Pool{
		buffers: make([]Buffer, n),
		n:       uint32(n),
		silent:  Buffer{Frames: make([]uint32, framesPerBuffer)},
	}
	for i := range p.buffers {
		p.buffers[i] = Buffer{Frames: make([]uint32, framesPerBuffer)}
	}
	return p
}

// FramesPerBuffer returns the frame capacity of each slot.
func (p *Pool) FramesPerBuffer() int {
	return len(p.silent.Frames)
}

// Size returns the number of slots in the ring.
func (p *Pool) Size() int {
	return int(p.n)
}

// AcquireWrite returns the slot at writeHead for the producer to fill.
// If blocking is true and the pool is full, it sleep-polls until a
// slot frees. If blocking is false and the pool is full, it returns
// (nil, false) immediately.
func (p *Pool) AcquireWrite(blocking bool) (*Buffer, bool) {
	for {
		if p.count.Load() < p.n {
			return &p.buffers[p.writeHead], true
		}
		if !blocking {
			return nil, false
		}
		time.Sleep(pollInterval)
	}
}

// CommitWrite advances writeHead and publishes the new slot to the
// consumer by incrementing count.
func (p *Pool) CommitWrite() {
	p.writeHead = (p.writeHead + 1) % p.n
	p.count.Add(1)
}

// AcquireRead returns the slot at readHead for the consumer to drain.
// If blocking is true and the pool is empty, it sleep-polls until a
// slot is available. If blocking is false and the pool is empty, it
// returns the shared silent buffer and increments the underrun counter
// — playback never stalls, it just emits silence for that callback.
func (p *Pool) AcquireRead(blocking bool) (*Buffer, bool) {
	for {
		if p.count.Load() > 0 {
			return &p.buffers[p.readHead], true
		}
		if !blocking {
			p.underruns.Add(1)
			return &p.silent, false
		}
		time.Sleep(pollInterval)
	}
}

// CommitRead advances readHead and releases the slot back to the
// producer by decrementing count. It does not check whether a slot was
// acquired: called after AcquireRead returned the silent buffer, it
// still advances readHead and decrements count. Only call it when
// AcquireRead's second return value was true.
func (p *Pool) CommitRead() {
	p.readHead = (p.readHead + 1) % p.n
	p.count.Add(^uint32(0)) // atomic decrement
}

// Count returns the current number of filled slots. Exposed for tests
// and diagnostics; the hot path never needs more than the acquire/
// commit pair above.
func (p *Pool) Count() int {
	return int(p.count.Load())
}

// Underruns returns how many times a non-blocking read found the pool
// empty and substituted silence.
func (p *Pool) Underruns() uint64 {
	return p.underruns.Load()
}
