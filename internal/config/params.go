package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Default trim parameters.
const (
	DefaultDirectory    = "audio_folder"
	DefaultOutputSuffix = "_trimmed"
	DefaultThresholdDB  = -20.0
	DefaultFrameLength  = 2048
	DefaultHopLength    = 512
)

// ErrInvalidParams is returned when trim parameters fail validation.
var ErrInvalidParams = errors.New("invalid parameters")

// Params are the trim parameters applied to every file of a batch run.
type Params struct {
	// ThresholdDB is the silence cutoff in decibels below the loudest frame.
	// More negative values classify quieter audio as content.
	ThresholdDB float64 `validate:"lt=0"`
	// FrameLength is the analysis window in samples.
	FrameLength int `validate:"gt=0"`
	// HopLength is the stride between analysis windows in samples.
	HopLength int `validate:"gt=0"`
	// OutputSuffix is appended to the file stem when not overwriting.
	OutputSuffix string `validate:"required_unless=Overwrite true,excludes=/"`
	// Overwrite replaces the original files in place.
	Overwrite bool
	// Recursive descends into subdirectories.
	Recursive bool
}

// DefaultParams returns the default trim parameters.
func DefaultParams() Params {
	return Params{
		ThresholdDB:  DefaultThresholdDB,
		FrameLength:  DefaultFrameLength,
		HopLength:    DefaultHopLength,
		OutputSuffix: DefaultOutputSuffix,
	}
}

var validate = validator.New()

// Validate checks the parameters. An empty suffix is only accepted together
// with Overwrite, since it would otherwise write over the input anyway.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}
