// Package batch runs the trim pipeline over every discovered file.
// Each file is a Task that moves through a fixed stage machine; failures are
// recorded on the Task and never stop the run.
package batch

import (
	"errors"
	"fmt"
	"time"
)

// Stage represents the current pipeline stage of a Task.
type Stage string

const (
	// StageDiscovered indicates the file was found and is waiting to be processed.
	StageDiscovered Stage = "DISCOVERED"
	// StageDecoding indicates the file is being read into a sample buffer.
	StageDecoding Stage = "DECODING"
	// StageDetecting indicates the silence detector is running.
	StageDetecting Stage = "DETECTING"
	// StageTransforming indicates leading silence is being replaced by the pad.
	StageTransforming Stage = "TRANSFORMING"
	// StageEncoding indicates the output is being written.
	StageEncoding Stage = "ENCODING"
	// StageSuccess indicates the output was written.
	StageSuccess Stage = "SUCCESS"
	// StageError indicates the file failed at some stage.
	StageError Stage = "ERROR"
)

// Per-file error classes.
var (
	// ErrDecode is returned when a file cannot be decoded.
	ErrDecode = errors.New("decode error")
	// ErrDetection is returned when the silence detector fails.
	ErrDetection = errors.New("detection error")
	// ErrEncode is returned when the output cannot be written.
	ErrEncode = errors.New("encode error")
)

// ErrInvalidTransition is returned when an invalid stage transition is attempted.
var ErrInvalidTransition = errors.New("invalid stage transition")

// validTransitions defines which stage transitions are allowed.
var validTransitions = map[Stage][]Stage{
	StageDiscovered:   {StageDecoding, StageError},
	StageDecoding:     {StageDetecting, StageError},
	StageDetecting:    {StageTransforming, StageError},
	StageTransforming: {StageEncoding, StageError},
	StageEncoding:     {StageSuccess, StageError},
	StageSuccess:      {},
	StageError:        {},
}

// canTransition checks if a transition from one stage to another is valid.
func canTransition(from, to Stage) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// FileError records the stage at which a file failed.
type FileError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Task is one input file processed with the shared trim parameters.
type Task struct {
	// InputPath is the discovered audio file.
	InputPath string
	// OutputPath is where the trimmed file is written.
	OutputPath string
	// Location is where the output ended up; an S3 URL when mirroring.
	Location string
	// Stage is the current pipeline stage.
	Stage Stage
	// Err is set when Stage is StageError.
	Err *FileError
	// SampleRate is the decoded sample rate.
	SampleRate int
	// InputFrames is the decoded length in frames.
	InputFrames int
	// OutputFrames is the written length in frames, pad included.
	OutputFrames int
	// TrimOffset is the detected start of non-silent content, in frames.
	TrimOffset int
	// TrimmedSeconds is TrimOffset expressed in seconds.
	TrimmedSeconds float64
	// StartedAt is when processing of the file started.
	StartedAt time.Time
	// CompletedAt is when the file reached a terminal stage.
	CompletedAt time.Time
}

// NewTask creates a Task in the DISCOVERED stage.
func NewTask(inputPath, outputPath string) *Task {
	return &Task{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Stage:      StageDiscovered,
	}
}

// TransitionTo moves the task to the given stage.
// Returns ErrInvalidTransition if the transition is not allowed.
func (t *Task) TransitionTo(stage Stage) error {
	if !canTransition(t.Stage, stage) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Stage, stage)
	}

	now := time.Now()
	if t.Stage == StageDiscovered {
		t.StartedAt = now
	}
	t.Stage = stage
	if t.IsTerminal() {
		t.CompletedAt = now
	}
	return nil
}

// Fail records err against the current stage and moves the task to ERROR.
func (t *Task) Fail(err error) error {
	failed := &FileError{Path: t.InputPath, Stage: t.Stage, Err: err}
	if trErr := t.TransitionTo(StageError); trErr != nil {
		return trErr
	}
	t.Err = failed
	return nil
}

// IsTerminal returns true if the task reached SUCCESS or ERROR.
func (t *Task) IsTerminal() bool {
	return t.Stage == StageSuccess || t.Stage == StageError
}

// Succeeded returns true if the output was written.
func (t *Task) Succeeded() bool {
	return t.Stage == StageSuccess
}
