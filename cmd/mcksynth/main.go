// Command mcksynth plays a short sequence of notes through the fixed-
// point FM/additive engine, driving the real buffer-pool/audio-sink
// pipeline through the root Player facade rather than an offline
// render.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	mcksynth "github.com/cbegin/mcksynth"
	"github.com/cbegin/mcksynth/internal/bufferpool"
	"github.com/cbegin/mcksynth/internal/fixedpoint"
	"github.com/cbegin/mcksynth/internal/notename"
	"github.com/cbegin/mcksynth/internal/operator"
	"github.com/cbegin/mcksynth/internal/voice"
)

const defaultNotes = "C4 E4 G4 C5"

func main() {
	var (
		sampleRate   = flag.Int("sample-rate", 48000, "output sample rate")
		notesFlag    = flag.String("notes", defaultNotes, "space-separated note names, e.g. \"C4 E4 G4\"")
		noteMS       = flag.Int("note-ms", 400, "milliseconds each note is held before note-off")
		gapMS        = flag.Int("gap-ms", 50, "milliseconds of silence between notes")
		velocity     = flag.Int("velocity", 110, "MIDI velocity 0-127")
		volume       = flag.Float64("volume", 0.8, "master volume scalar, 0-1")
		attackMS     = flag.Int("attack-ms", 5, "operator attack in milliseconds")
		decayMS      = flag.Int("decay-ms", 30, "operator decay in milliseconds")
		releaseMS    = flag.Int("release-ms", 80, "operator release in milliseconds")
		sustain      = flag.Float64("sustain", 0.7, "operator sustain level, 0-1")
		poolBuffers  = flag.Int("pool-buffers", bufferpool.DefaultPoolSize, "number of ring buffers between the audio worker and the sink")
		framesPerBuf = flag.Int("frames-per-buffer", bufferpool.DefaultFramesPerBuffer, "frames per ring buffer")
	)
	flag.Parse()

	notes, err := parseNotes(*notesFlag)
	if err != nil {
		log.Fatal(err)
	}

	voiceCfg := voice.DefaultConfig()
	voiceCfg.Operators[0] = operator.Config{
		FreqMult: 1,
		Level:    fixedpoint.Q15One,
		Mode:     operator.Additive,
		Envelope: operator.EnvelopeConfig{
			Attack:  uint32(*attackMS),
			Decay:   uint32(*decayMS),
			Sustain: fixedpoint.NewQ31(clamp01(*sustain)),
			Release: uint32(*releaseMS),
		},
	}

	pl, err := mcksynth.NewPlayer(*sampleRate,
		mcksynth.WithVoiceConfig(voiceCfg),
		mcksynth.WithMasterVolume(clamp01(*volume)),
		mcksynth.WithPoolBuffers(*poolBuffers),
		mcksynth.WithFramesPerBuffer(*framesPerBuf),
	)
	if err != nil {
		log.Fatal(err)
	}

	var group errgroup.Group
	events := pl.Watch()
	group.Go(func() error {
		for ev := range events {
			if ev.Kind == mcksynth.EventMessageDropped {
				fmt.Println("warning: a control message was dropped")
			}
		}
		return nil
	})

	pl.Play()
	for _, note := range notes {
		v := pl.AllocateVoice()
		pl.NoteOn(v, note, uint8(*velocity))
		fmt.Printf("note on  voice=%d note=%d\n", v, note)
		time.Sleep(time.Duration(*noteMS) * time.Millisecond)
		pl.NoteOff(v)
		fmt.Printf("note off voice=%d note=%d\n", v, note)
		time.Sleep(time.Duration(*gapMS) * time.Millisecond)
	}
	// let release tails ring out before tearing down the pipeline
	time.Sleep(time.Duration(*releaseMS+50) * time.Millisecond)

	if err := pl.Stop(); err != nil {
		log.Fatal(err)
	}
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
	if d := pl.Dropped(); d > 0 {
		fmt.Printf("dropped %d control messages\n", d)
	}
	if u := pl.Underruns(); u > 0 {
		fmt.Printf("%d buffer underruns\n", u)
	}
}

// parseNotes splits a space-separated note list and parses each
// through notename.Parse. Malformed names silently fall back to
// Parse's sentinel note rather than erroring, matching that package's
// panic-free contract.
func parseNotes(s string) ([]uint16, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	notes := make([]uint16, 0, len(fields))
	for _, f := range fields {
		notes = append(notes, notename.Parse(f))
	}
	return notes, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
