package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Static errors for ffmpeg-backed codecs.
var (
	// ErrFFprobeExecution is returned when the ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrNoAudioStream is returned when ffprobe finds no usable audio stream.
	ErrNoAudioStream = errors.New("no audio stream found")
)

// DefaultMP3Quality is the libmp3lame VBR quality used when none is configured.
const DefaultMP3Quality = 2

// FFmpegCodec implements Codec for compressed formats by piping raw
// 32-bit float PCM through the ffmpeg CLI.
type FFmpegCodec struct {
	ffmpegPath  string
	ffprobePath string
	encodeArgs  []string
}

// FFmpegOption configures an FFmpegCodec.
type FFmpegOption func(*FFmpegCodec)

// WithMP3Quality sets the libmp3lame VBR quality (0 best, 9 worst).
// Out of range values are ignored.
func WithMP3Quality(q int) FFmpegOption {
	return func(c *FFmpegCodec) {
		if q >= 0 && q <= 9 {
			c.encodeArgs = []string{"-codec:a", "libmp3lame", "-q:a", strconv.Itoa(q)}
		}
	}
}

// NewFFmpegCodec creates a new FFmpegCodec that encodes MP3.
// Empty paths default to "ffmpeg" and "ffprobe" (found in PATH).
func NewFFmpegCodec(ffmpegPath, ffprobePath string, opts ...FFmpegOption) *FFmpegCodec {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	c := &FFmpegCodec{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		encodeArgs:  []string{"-codec:a", "libmp3lame", "-q:a", strconv.Itoa(DefaultMP3Quality)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// streamInfo is the layout of the first audio stream reported by ffprobe.
type streamInfo struct {
	sampleRate int
	channels   int
}

// Decode inspects the stream layout and decodes it at the native sample rate.
func (c *FFmpegCodec) Decode(ctx context.Context, path string) (Buffer, error) {
	info, err := c.inspect(ctx, path)
	if err != nil {
		return Buffer{}, fmt.Errorf("inspect stream: %w", err)
	}

	var stdout bytes.Buffer
	args := []string{
		"-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	}
	if err := c.runFFmpeg(ctx, args, nil, &stdout); err != nil {
		return Buffer{}, err
	}

	samples, err := decodeFloat32LE(stdout.Bytes())
	if err != nil {
		return Buffer{}, err
	}

	return Buffer{
		Samples:    samples,
		SampleRate: info.sampleRate,
		Channels:   info.channels,
	}, nil
}

// Encode pipes buf into ffmpeg as raw float PCM and lets it write path.
// The output container follows the extension of path.
func (c *FFmpegCodec) Encode(ctx context.Context, path string, buf Buffer) error {
	if buf.SampleRate <= 0 {
		return fmt.Errorf("encode: sample rate must be positive, got %d", buf.SampleRate)
	}

	args := []string{
		"-y", // Overwrite output
		"-v", "error",
		"-f", "f32le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.NumChannels()),
		"-i", "pipe:0",
	}
	args = append(args, c.encodeArgs...)
	args = append(args, path)

	return c.runFFmpeg(ctx, args, bytes.NewReader(encodeFloat32LE(buf.Samples)), nil)
}

// inspect reads sample rate and channel count of the first audio stream.
func (c *FFmpegCodec) inspect(ctx context.Context, path string) (streamInfo, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels",
		"-of", "default=noprint_wrappers=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return streamInfo{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return streamInfo{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseProbeOutput(stdout.String())
}

// parseProbeOutput parses "key=value" lines printed by ffprobe.
func parseProbeOutput(output string) (streamInfo, error) {
	var info streamInfo
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case "sample_rate":
			info.sampleRate = n
		case "channels":
			info.channels = n
		}
	}
	if err := scanner.Err(); err != nil {
		return streamInfo{}, err
	}

	if info.sampleRate <= 0 || info.channels <= 0 {
		return streamInfo{}, ErrNoAudioStream
	}
	return info, nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (c *FFmpegCodec) runFFmpeg(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

func decodeFloat32LE(data []byte) ([]float64, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("truncated f32le stream: %d bytes", len(data))
	}
	samples := make([]float64, len(data)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return samples, nil
}

func encodeFloat32LE(samples []float64) []byte {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(s)))
	}
	return data
}

// Verify interface implementation at compile time.
var _ Codec = (*FFmpegCodec)(nil)
