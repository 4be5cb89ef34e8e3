package mcksynth

import (
	"encoding/binary"
	"math"

	"github.com/cbegin/mcksynth/internal/bufferpool"
	"github.com/cbegin/mcksynth/internal/msgqueue"
	"github.com/cbegin/mcksynth/internal/synth"
)

// Event is a scripted control message fired at an offset into an
// offline render, in samples.
type Event struct {
	AtSample int
	Message  msgqueue.Message
}

// RenderFrames runs cfg's engine for the given number of samples,
// applying script's events at their scheduled sample offsets, and
// returns the raw (left<<16)|right-encoded mono frames — no pool, no
// sink, just the synth's own mixdown. Useful for tests and for
// rendering a score to a WAV file without touching an audio device.
func RenderFrames(cfg synth.Config, script []Event, samples int) []uint32 {
	eng := synth.New(cfg)
	out := make([]uint32, samples)

	byOffset := make(map[int][]msgqueue.Message, len(script))
	for _, ev := range script {
		byOffset[ev.AtSample] = append(byOffset[ev.AtSample], ev.Message)
	}

	const blockSize = 256
	for start := 0; start < samples; start += blockSize {
		end := start + blockSize
		if end > samples {
			end = samples
		}
		for s := start; s < end; s++ {
			for _, msg := range byOffset[s] {
				eng.Post(msg)
			}
		}
		eng.FillBuffer(out[start:end])
	}
	return out
}

// FramesToFloat32Stereo expands mono frames into interleaved stereo
// float32 samples in [-1, 1], matching EncodeWAVFloat32LE's expected
// input shape.
func FramesToFloat32Stereo(frames []uint32) []float32 {
	out := make([]float32, len(frames)*2)
	for i, f := range frames {
		left, right := bufferpool.ToStereo(f)
		out[i*2] = float32(left) / 32768.0
		out[i*2+1] = float32(right) / 32768.0
	}
	return out
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a minimal
// 32-bit IEEE-float WAV container.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
