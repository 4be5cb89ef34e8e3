package bufferpool

import (
	"sync"
	"testing"
)

func TestFrameEncoding(t *testing.T) {
	f := FrameFromStereo(1, -1)
	if left := int16(f >> 16); left != 1 {
		t.Errorf("left = %d, want 1", left)
	}
	if right := int16(f & 0xFFFF); right != -1 {
		t.Errorf("right = %d, want -1", right)
	}
	if mono := FrameFromMono(42); mono != FrameFromStereo(42, 42) {
		t.Errorf("FrameFromMono should duplicate into both channels")
	}
}

func TestAcquireWriteCommitReadRoundTrip(t *testing.T) {
	p := New(2, 8)
	buf, ok := p.AcquireWrite(false)
	if !ok {
		t.Fatalf("expected write slot available")
	}
	buf.Frames[0] = 0xAAAABBBB
	p.CommitWrite()

	rbuf, ok := p.AcquireRead(false)
	if !ok {
		t.Fatalf("expected a committed buffer")
	}
	if rbuf.Frames[0] != 0xAAAABBBB {
		t.Fatalf("read back %x, want AAAABBBB", rbuf.Frames[0])
	}
	p.CommitRead()
	if p.Count() != 0 {
		t.Fatalf("count = %d, want 0", p.Count())
	}
}

func TestNonBlockingReadOnEmptyReturnsSilence(t *testing.T) {
	p := New(2, 4)
	buf, ok := p.AcquireRead(false)
	if ok {
		t.Fatalf("expected underrun on empty pool")
	}
	for _, f := range buf.Frames {
		if f != 0 {
			t.Fatalf("silent buffer should be all zero, got %x", f)
		}
	}
	if p.Underruns() != 1 {
		t.Fatalf("Underruns() = %d, want 1", p.Underruns())
	}
}

func TestNonBlockingWriteOnFullFails(t *testing.T) {
	p := New(2, 4)
	for i := 0; i < 2; i++ {
		_, ok := p.AcquireWrite(false)
		if !ok {
			t.Fatalf("write %d should have a free slot", i)
		}
		p.CommitWrite()
	}
	if _, ok := p.AcquireWrite(false); ok {
		t.Fatalf("expected pool full")
	}
}

func TestCountStaysWithinBounds(t *testing.T) {
	p := New(2, 4)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			buf, ok := p.AcquireWrite(true)
			if !ok {
				t.Errorf("blocking acquire should never fail")
				return
			}
			buf.Frames[0] = uint32(i)
			p.CommitWrite()
			if c := p.Count(); c < 0 || c > p.Size() {
				t.Errorf("count %d out of bounds", c)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, ok := p.AcquireRead(true)
			if !ok {
				t.Errorf("blocking acquire should never fail")
				return
			}
			p.CommitRead()
			if c := p.Count(); c < 0 || c > p.Size() {
				t.Errorf("count %d out of bounds", c)
			}
		}
	}()
	wg.Wait()
}

func TestBlockProducerFasterThanConsumer(t *testing.T) {
	// E6: N=2; a producer racing ahead of a slower consumer must never
	// observe count outside [0,2], and the pool saturates at 2 rather
	// than overflowing once the consumer falls behind.
	p := New(2, 4)
	for i := 0; i < 2; i++ {
		_, ok := p.AcquireWrite(false)
		if !ok {
			t.Fatalf("write %d should succeed before pool fills", i)
		}
		p.CommitWrite()
	}
	if p.Count() != 2 {
		t.Fatalf("count = %d, want 2", p.Count())
	}
	if _, ok := p.AcquireWrite(false); ok {
		t.Fatalf("expected pool full after 2 writes into a 2-slot ring")
	}
	for i := 0; i < 2; i++ {
		_, ok := p.AcquireRead(false)
		if !ok {
			t.Fatalf("read %d should succeed", i)
		}
		p.CommitRead()
	}
	if p.Count() != 0 {
		t.Fatalf("final count = %d, want 0", p.Count())
	}
}
