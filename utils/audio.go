package utils

import "encoding/binary"

// TargetSampleRate is the rate the inference service expects for realtime
// audio input.
const TargetSampleRate = 16000

// BytesToSamples reinterprets little-endian 16-bit PCM bytes as samples.
// A trailing odd byte is dropped.
func BytesToSamples(b []byte) []int16 {
	n := len(b) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian 16-bit PCM.
func SamplesToBytes(samples []int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

// Decimate resamples PCM from fromRate down to TargetSampleRate by
// nearest-sample selection. Precision loss is acceptable for this path;
// the input is returned unchanged when no conversion is needed.
func Decimate(samples []int16, fromRate int) []int16 {
	if fromRate <= TargetSampleRate || len(samples) == 0 {
		return samples
	}
	n := len(samples) * TargetSampleRate / fromRate
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		src := i * fromRate / TargetSampleRate
		if src >= len(samples) {
			src = len(samples) - 1
		}
		out[i] = samples[src]
	}
	return out
}

// ChunkAssembler slices a continuous sample stream into fixed-size chunks.
// Residue below one chunk is carried until more samples arrive.
type ChunkAssembler struct {
	Size    int
	pending []int16
}

// Push appends samples and returns every completed chunk, in order.
func (a *ChunkAssembler) Push(samples []int16) [][]int16 {
	a.pending = append(a.pending, samples...)

	var chunks [][]int16
	for len(a.pending) >= a.Size {
		chunk := make([]int16, a.Size)
		copy(chunk, a.pending[:a.Size])
		chunks = append(chunks, chunk)
		a.pending = a.pending[a.Size:]
	}
	return chunks
}
