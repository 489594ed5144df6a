// Package silence locates the boundaries of non-silent content in a decoded
// audio buffer using short-time energy.
//
// Each analysis frame is compared against the loudest frame of the buffer:
// frames whose power lies more than |threshold| decibels below that peak are
// classified as silence. Multi-channel buffers are analysed on the average of
// their channels, and boundaries are reported in frames so that callers can
// trim every channel at the same position.
package silence

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/maauso/trimsilence/internal/audio"
)

// Static errors for detector parameters.
var (
	// ErrInvalidFrameLength is returned when the analysis window is not positive.
	ErrInvalidFrameLength = errors.New("frame length must be positive")
	// ErrInvalidHopLength is returned when the window stride is not positive.
	ErrInvalidHopLength = errors.New("hop length must be positive")
)

// amin is the power floor applied before taking logarithms.
const amin = 1e-10

// Detector finds where leading silence ends.
type Detector interface {
	// LeadingSilenceEnd returns the frame index at which non-silent content
	// begins, or 0 when no leading silence is found.
	LeadingSilenceEnd(buf audio.Buffer, thresholdDB float64, frameLength, hopLength int) (int, error)
}

// EnergyDetector implements Detector with centred, hop-strided RMS frames.
type EnergyDetector struct{}

// NewEnergyDetector creates a new EnergyDetector.
func NewEnergyDetector() *EnergyDetector {
	return &EnergyDetector{}
}

// LeadingSilenceEnd implements Detector.
func (d *EnergyDetector) LeadingSilenceEnd(buf audio.Buffer, thresholdDB float64, frameLength, hopLength int) (int, error) {
	start, _, err := d.Bounds(buf, thresholdDB, frameLength, hopLength)
	return start, err
}

// Bounds returns the [start, end) frame range holding non-silent content.
// Both are 0 when the buffer is empty or no frame rises above the threshold.
func (d *EnergyDetector) Bounds(buf audio.Buffer, thresholdDB float64, frameLength, hopLength int) (start, end int, err error) {
	if frameLength <= 0 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidFrameLength, frameLength)
	}
	if hopLength <= 0 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidHopLength, hopLength)
	}

	mono := buf.Mono()
	n := len(mono)
	if n == 0 {
		return 0, 0, nil
	}

	power := framePower(mono, frameLength, hopLength)
	ref := math.Max(amin, floats.Max(power))

	first, last := -1, -1
	for i, p := range power {
		db := 10*math.Log10(math.Max(amin, p)) - 10*math.Log10(ref)
		if db > thresholdDB {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, nil
	}

	start = min(first*hopLength, n)
	end = min((last+1)*hopLength, n)
	return start, end, nil
}

// framePower returns the mean square of every analysis frame. The signal is
// padded with frameLength/2 zeros on both sides so frame t is centred on
// sample t*hopLength.
func framePower(x []float64, frameLength, hopLength int) []float64 {
	pad := frameLength / 2
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)

	if len(padded) < frameLength {
		frame := make([]float64, frameLength)
		copy(frame, padded)
		return []float64{floats.Dot(frame, frame) / float64(frameLength)}
	}

	count := 1 + (len(padded)-frameLength)/hopLength
	power := make([]float64, count)
	for t := 0; t < count; t++ {
		frame := padded[t*hopLength : t*hopLength+frameLength]
		power[t] = floats.Dot(frame, frame) / float64(frameLength)
	}
	return power
}

// Verify interface implementation at compile time.
var _ Detector = (*EnergyDetector)(nil)
