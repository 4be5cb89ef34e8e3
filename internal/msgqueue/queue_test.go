package msgqueue

import (
	"sync"
	"testing"
)

func TestPostThenDrainPreservesOrder(t *testing.T) {
	q := New(8)
	for i := 0; i < 5; i++ {
		q.Post(Message{Type: NoteOn, Voice: i})
	}
	var got []int
	q.Drain(func(m Message) { got = append(got, m.Voice) })
	for i, v := range got {
		if v != i {
			t.Fatalf("order mismatch at %d: got %d", i, v)
		}
	}
	if len(got) != 5 {
		t.Fatalf("drained %d messages, want 5", len(got))
	}
}

func TestPostDropsOnFull(t *testing.T) {
	q := New(4)
	for i := 0; i < 4; i++ {
		if !q.Post(Message{Voice: i}) {
			t.Fatalf("post %d should have succeeded", i)
		}
	}
	if q.Post(Message{Voice: 99}) {
		t.Fatalf("post into full queue should fail")
	}
	if q.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", q.Dropped())
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	q := New(8)
	q.Post(Message{Type: Panic})
	q.Drain(func(Message) {})
	if q.Len() != 0 {
		t.Fatalf("Len() = %d after drain, want 0", q.Len())
	}
	drained := false
	q.Drain(func(Message) { drained = true })
	if drained {
		t.Fatalf("second drain should see nothing")
	}
}

func TestSingleProducerOrderingUnderConcurrentDrain(t *testing.T) {
	// A single producer's messages must be observed by the consumer in
	// the order posted, even with concurrent Post/Drain calls.
	q := New(64)
	const n = 1000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Post(Message{Voice: i}) {
				// capacity is large enough relative to drain cadence below
			}
		}
	}()

	var got []int
	for len(got) < n {
		q.Drain(func(m Message) { got = append(got, m.Voice) })
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: got %d", i, v)
		}
	}
}

func TestMultipleProducersCapacityRespected(t *testing.T) {
	q := New(32)
	var wg sync.WaitGroup
	successes := make([]int, 4)
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if q.Post(Message{Voice: idx}) {
					successes[idx]++
				}
			}
		}(p)
	}
	wg.Wait()
	total := 0
	for _, s := range successes {
		total += s
	}
	if total > 32 {
		t.Fatalf("accepted %d messages, capacity is 32", total)
	}
	if uint64(80-total) != q.Dropped() {
		t.Fatalf("dropped count mismatch: accepted=%d dropped=%d", total, q.Dropped())
	}
}
