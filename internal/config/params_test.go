package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t, -20.0, p.ThresholdDB)
	assert.Equal(t, 2048, p.FrameLength)
	assert.Equal(t, 512, p.HopLength)
	assert.Equal(t, "_trimmed", p.OutputSuffix)
	assert.False(t, p.Overwrite)
	assert.False(t, p.Recursive)
	assert.NoError(t, p.Validate())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Params)
		wantErr bool
	}{
		{"defaults", func(*Params) {}, false},
		{"strict threshold", func(p *Params) { p.ThresholdDB = -60 }, false},
		{"zero threshold", func(p *Params) { p.ThresholdDB = 0 }, true},
		{"positive threshold", func(p *Params) { p.ThresholdDB = 20 }, true},
		{"zero frame length", func(p *Params) { p.FrameLength = 0 }, true},
		{"negative hop length", func(p *Params) { p.HopLength = -512 }, true},
		{"empty suffix", func(p *Params) { p.OutputSuffix = "" }, true},
		{"empty suffix with overwrite", func(p *Params) { p.OutputSuffix = ""; p.Overwrite = true }, false},
		{"suffix with separator", func(p *Params) { p.OutputSuffix = "/x" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)

			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
