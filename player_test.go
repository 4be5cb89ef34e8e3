package mcksynth

import (
	"testing"
	"time"

	"github.com/cbegin/mcksynth/internal/msgqueue"
)

func TestNewPlayerDefaults(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	if pl.Dropped() != 0 {
		t.Fatalf("fresh player should report zero dropped messages")
	}
	if pl.Underruns() != 0 {
		t.Fatalf("fresh player should report zero underruns")
	}
}

func TestWithMasterVolumeOption(t *testing.T) {
	pl, err := NewPlayer(48000, WithMasterVolume(0.35))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
}

func TestNoteOnNoteOffPostWithoutDropping(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if !pl.NoteOn(0, 69, 100) {
		t.Fatalf("NoteOn should succeed against a fresh queue")
	}
	if !pl.NoteOff(0) {
		t.Fatalf("NoteOff should succeed against a fresh queue")
	}
	if !pl.Panic() {
		t.Fatalf("Panic should succeed against a fresh queue")
	}
}

func TestAllocateVoicePicksDistinctFreeVoices(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	seen := make(map[int]bool)
	for i := 0; i < VoiceCount; i++ {
		v := pl.AllocateVoice()
		if seen[v] {
			t.Fatalf("AllocateVoice returned %d twice before any note finished", v)
		}
		seen[v] = true
		pl.NoteOn(v, uint16(60+i), 100)
		// NoteOn only posts; render one frame so the engine applies it.
		pl.engine.FillBuffer(make([]uint32, 1))
	}
}

func TestPostFloodEventuallyDropsAndIsCounted(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	sawDrop := false
	for i := 0; i < msgqueue.DefaultCapacity+10; i++ {
		if !pl.NoteOn(0, 60, 100) {
			sawDrop = true
		}
	}
	if !sawDrop {
		t.Fatalf("expected some posts to be dropped once the queue filled")
	}
	if pl.Dropped() == 0 {
		t.Fatalf("Dropped() should report the dropped posts")
	}
}

// TestStopReturnsPromptlyAfterPause covers the case where nothing is
// draining the pool: Pause leaves produce() filling a small pool that
// never empties, and Stop must still return instead of hanging forever
// inside a blocking acquire.
func TestStopReturnsPromptlyAfterPause(t *testing.T) {
	pl, err := NewPlayer(48000, WithPoolBuffers(2), WithFramesPerBuffer(64))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	pl.Play()
	pl.Pause()
	time.Sleep(20 * time.Millisecond) // let produce() fill the small pool

	done := make(chan error, 1)
	go func() { done <- pl.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop() did not return within 2s after Pause filled the pool")
	}
}

func TestWatchReturnsAFreshChannelEachCall(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	first := pl.Watch()
	second := pl.Watch()
	if first == second {
		t.Fatalf("Watch should return a new channel each call")
	}
}
