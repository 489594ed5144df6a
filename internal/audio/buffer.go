// Package audio provides the decoded sample buffer and the codecs that move
// audio files in and out of it.
package audio

// Buffer is a decoded audio signal.
//
// Samples are interleaved when Channels > 1 and normalized to [-1, 1].
// A Buffer is treated as immutable once decoded: transforms build a new
// Buffer instead of writing into Samples.
type Buffer struct {
	// Samples holds the interleaved sample values.
	Samples []float64
	// SampleRate is the number of frames per second.
	SampleRate int
	// Channels is the number of interleaved channels. Zero is treated as mono.
	Channels int
	// BitDepth is the sample width of the source container, used to encode
	// the buffer back in the same format family. Zero for compressed sources.
	BitDepth int
	// Float is set when the source stored IEEE float samples.
	Float bool
}

// NumChannels returns the channel count, treating an unset value as mono.
func (b Buffer) NumChannels() int {
	if b.Channels <= 0 {
		return 1
	}
	return b.Channels
}

// Frames returns the number of frames (one sample per channel).
func (b Buffer) Frames() int {
	return len(b.Samples) / b.NumChannels()
}

// Seconds returns the buffer duration in seconds, or 0 when the sample rate
// is unknown.
func (b Buffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Mono returns one value per frame, averaging the channels.
// For mono buffers the returned slice shares the backing array of Samples.
func (b Buffer) Mono() []float64 {
	ch := b.NumChannels()
	if ch == 1 {
		return b.Samples
	}

	frames := b.Frames()
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += b.Samples[i*ch+c]
		}
		mono[i] = sum / float64(ch)
	}
	return mono
}
