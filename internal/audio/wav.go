package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// Static errors for WAV decoding.
var (
	// ErrInvalidWAV is returned when a file does not carry a readable RIFF/WAVE header.
	ErrInvalidWAV = errors.New("invalid WAV file")
	// ErrUnsupportedEncoding is returned for WAV payloads that are neither
	// integer PCM nor IEEE float.
	ErrUnsupportedEncoding = errors.New("unsupported WAV encoding")
)

// WAV format tags.
const (
	wavFormatPCM        = 0x0001
	wavFormatFloat      = 0x0003
	wavFormatExtensible = 0xFFFE
)

const (
	defaultBitDepth = 16
	floatBitDepth   = 32
)

// extensibleGUIDSuffix is the shared tail of the KSDATAFORMAT_SUBTYPE GUIDs;
// the first two bytes carry the plain format tag.
var extensibleGUIDSuffix = []byte{
	0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
}

// WAVCodec implements Codec for uncompressed WAV files using go-audio/wav.
// Integer PCM, IEEE float and their WAVE_FORMAT_EXTENSIBLE variants are read;
// outputs are written in the sample format family of the source.
type WAVCodec struct{}

// NewWAVCodec creates a new WAVCodec.
func NewWAVCodec() *WAVCodec {
	return &WAVCodec{}
}

// Decode reads a WAV file and normalizes its samples to [-1, 1].
func (c *WAVCodec) Decode(ctx context.Context, path string) (Buffer, error) {
	select {
	case <-ctx.Done():
		return Buffer{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path comes from directory discovery
	if err != nil {
		return Buffer{}, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	tag, err := readFormatTag(f)
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %s: %w", ErrInvalidWAV, path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Buffer{}, fmt.Errorf("rewind wav: %w", err)
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Buffer{}, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	var samples []float64
	switch tag {
	case wavFormatPCM:
		samples, err = decodeIntPCM(d)
	case wavFormatFloat:
		samples, err = decodeFloatPCM(d)
	default:
		return Buffer{}, fmt.Errorf("%w: format tag %#04x", ErrUnsupportedEncoding, tag)
	}
	if err != nil {
		return Buffer{}, err
	}

	return Buffer{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Float:      tag == wavFormatFloat,
	}, nil
}

// Encode writes buf as integer PCM at buf.BitDepth (16-bit when unset), or
// as 32-bit IEEE float when buf.Float is set.
func (c *WAVCodec) Encode(ctx context.Context, path string, buf Buffer) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	depth, format := buf.BitDepth, wavFormatPCM
	if depth == 0 {
		depth = defaultBitDepth
	}
	data := func() []int { return quantize(buf.Samples, depth) }
	if buf.Float {
		depth, format = floatBitDepth, wavFormatFloat
		data = func() []int { return floatBits(buf.Samples) }
	}

	f, err := os.Create(path) // #nosec G304 - path is built by the batch service
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, depth, buf.NumChannels(), format)
	pcm := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buf.NumChannels(),
			SampleRate:  buf.SampleRate,
		},
		Data:           data(),
		SourceBitDepth: depth,
	}

	if err := enc.Write(pcm); err != nil {
		_ = f.Close()
		return fmt.Errorf("write PCM data: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// readFormatTag walks the RIFF chunks up to "fmt " and returns the format
// tag, resolved to the subformat for WAVE_FORMAT_EXTENSIBLE files.
func readFormatTag(r io.Reader) (uint16, error) {
	p := riff.New(r)
	id, _, err := p.IDnSize()
	if err != nil {
		return 0, err
	}
	if id != riff.RiffID {
		return 0, riff.ErrFmtNotSupported
	}
	var form [4]byte
	if err := binary.Read(r, binary.BigEndian, &form); err != nil {
		return 0, err
	}
	if form != riff.WavFormatID {
		return 0, riff.ErrFmtNotSupported
	}

	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("fmt chunk not found: %w", err)
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}

		var tag uint16
		if err := ch.ReadLE(&tag); err != nil {
			return 0, err
		}
		if tag != wavFormatExtensible {
			return tag, nil
		}

		// channels, rate, byte rate, block align, bits, cbSize, valid bits, channel mask
		var skip [22]byte
		var guid [16]byte
		if err := ch.ReadLE(&skip); err != nil {
			return 0, fmt.Errorf("extensible fmt chunk: %w", err)
		}
		if err := ch.ReadLE(&guid); err != nil {
			return 0, fmt.Errorf("extensible fmt chunk: %w", err)
		}
		if !bytes.Equal(guid[2:], extensibleGUIDSuffix) {
			return wavFormatExtensible, nil
		}
		return binary.LittleEndian.Uint16(guid[:2]), nil
	}
}

func decodeIntPCM(d *wav.Decoder) ([]float64, error) {
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM data: %w", err)
	}

	depth := int(d.BitDepth)
	scale := fullScale(depth)
	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		// 8-bit WAV is stored unsigned.
		if depth == 8 {
			v -= 128
		}
		samples[i] = float64(v) / scale
	}
	return samples, nil
}

func decodeFloatPCM(d *wav.Decoder) ([]float64, error) {
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("read float data: %w", err)
	}
	if d.PCMChunk == nil {
		return nil, fmt.Errorf("read float data: %w", wav.ErrPCMChunkNotFound)
	}

	raw, err := io.ReadAll(io.LimitReader(d.PCMChunk, int64(d.PCMSize)))
	if err != nil {
		return nil, fmt.Errorf("read float data: %w", err)
	}

	switch d.BitDepth {
	case 32:
		samples := make([]float64, len(raw)/4)
		for i := range samples {
			samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
		return samples, nil
	case 64:
		samples := make([]float64, len(raw)/8)
		for i := range samples {
			samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedEncoding, d.BitDepth)
	}
}

// fullScale returns the magnitude of the most negative value at depth bits.
func fullScale(depth int) float64 {
	if depth <= 0 {
		depth = defaultBitDepth
	}
	return float64(int64(1) << (depth - 1))
}

// quantize converts normalized samples back to integers, clipping at full scale.
func quantize(samples []float64, depth int) []int {
	scale := fullScale(depth)
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(s * scale)
		if v > scale-1 {
			v = scale - 1
		} else if v < -scale {
			v = -scale
		}
		iv := int(v)
		if depth == 8 {
			iv += 128
		}
		out[i] = iv
	}
	return out
}

// floatBits packs samples as 32-bit float bit patterns; the encoder writes
// them unchanged as little-endian 32-bit words.
func floatBits(samples []float64) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = int(int32(math.Float32bits(float32(s))))
	}
	return out
}

// Verify interface implementation at compile time.
var _ Codec = (*WAVCodec)(nil)
