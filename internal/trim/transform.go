// Package trim removes detected leading silence from a buffer and prepends a
// fixed silence pad.
package trim

import (
	"errors"
	"fmt"
	"math"

	"github.com/maauso/trimsilence/internal/audio"
)

// ErrInvalidTrimOffset is returned when a trim offset lies outside the buffer.
var ErrInvalidTrimOffset = errors.New("invalid trim offset")

// PadSeconds is the duration of silence prepended to every output.
const PadSeconds = 1.0

// PadFrames returns the number of silent frames prepended at sampleRate.
func PadFrames(sampleRate int) int {
	return int(math.Round(float64(sampleRate) * PadSeconds))
}

// Apply drops the first offset frames of buf and prepends PadFrames of
// silence in the same channel layout. The input buffer is not modified.
//
// An offset equal to the frame count is accepted and yields a buffer that
// holds only the pad.
func Apply(buf audio.Buffer, offset int) (audio.Buffer, error) {
	frames := buf.Frames()
	if offset < 0 || offset > frames {
		return audio.Buffer{}, fmt.Errorf("%w: %d outside [0, %d]", ErrInvalidTrimOffset, offset, frames)
	}

	ch := buf.NumChannels()
	pad := PadFrames(buf.SampleRate) * ch
	kept := buf.Samples[offset*ch : frames*ch]

	samples := make([]float64, pad+len(kept))
	copy(samples[pad:], kept)

	return audio.Buffer{
		Samples:    samples,
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		BitDepth:   buf.BitDepth,
		Float:      buf.Float,
	}, nil
}
