package cli

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/config"
)

// isolateEnv runs the test from an empty directory with no S3 or metrics
// settings in the environment.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"S3_BUCKET", "S3_REGION", "METRICS_FILE", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeTone(t *testing.T, path string, leadSec float64) {
	t.Helper()
	const rate = 8000
	lead := int(leadSec * rate)
	samples := make([]float64, lead+rate)
	for i := 0; i < rate; i++ {
		samples[lead+i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/rate)
	}
	buf := audio.Buffer{Samples: samples, SampleRate: rate, Channels: 1, BitDepth: 16}
	require.NoError(t, audio.NewWAVCodec().Encode(context.Background(), path, buf))
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestNewRootCommand_Defaults(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	f := cmd.Flags()

	tests := []struct {
		flag string
		want string
	}{
		{"directory", config.DefaultDirectory},
		{"output-suffix", "_trimmed"},
		{"overwrite", "false"},
		{"recursive", "false"},
		{"threshold", "-20"},
		{"frame-length", "2048"},
		{"hop-length", "512"},
		{"metrics-file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			fl := f.Lookup(tt.flag)
			require.NotNil(t, fl)
			assert.Equal(t, tt.want, fl.DefValue)
		})
	}
}

func TestExecute_ProcessesDirectory(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 0.5)
	writeTone(t, filepath.Join(dir, "b.wav"), 0)

	code, stdout, _ := execute(t, "--directory", dir)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Found 2 audio files to process...\n")
	assert.Contains(t, stdout, "[1/2] "+filepath.Join(dir, "a.wav")+"\n")
	assert.Contains(t, stdout, "✓ a.wav: Trimmed ")
	assert.Contains(t, stdout, "✓ b.wav: No silence detected at start, added 1.0s silence\n")
	assert.Contains(t, stdout, "PROCESSING SUMMARY\n")
	assert.Contains(t, stdout, "Total files found: 2\n")
	assert.Contains(t, stdout, "Successfully processed: 2\n")
	assert.Contains(t, stdout, "Errors: 0\n")
	assert.FileExists(t, filepath.Join(dir, "a_trimmed.wav"))
	assert.FileExists(t, filepath.Join(dir, "b_trimmed.wav"))
}

func TestExecute_PerFileErrorsExitZero(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("junk"), 0o644))

	code, stdout, _ := execute(t, "-d", dir)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "✗ Error processing "+filepath.Join(dir, "broken.wav")+": ")
	assert.Contains(t, stdout, "Errors: 1\n")
	assert.Contains(t, stdout, "Average silence per file: 0.000 seconds\n")
}

func TestExecute_DirectoryNotFound(t *testing.T) {
	isolateEnv(t)
	missing := filepath.Join(t.TempDir(), "nope")

	code, stdout, _ := execute(t, "--directory", missing)

	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: Directory '"+missing+"' does not exist.\n", stdout)
}

func TestExecute_RootIsFile(t *testing.T) {
	isolateEnv(t)
	file := filepath.Join(t.TempDir(), "a.wav")
	writeTone(t, file, 0)

	code, stdout, _ := execute(t, "--directory", file)

	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: '"+file+"' is not a directory.\n", stdout)
}

func TestExecute_IgnoresLeftoverTempOutputs(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 0)
	writeTone(t, filepath.Join(dir, ".a_trimmed_123456.wav"), 0)

	code, stdout, _ := execute(t, "--directory", dir)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Found 1 audio files to process...\n")
	assert.NoFileExists(t, filepath.Join(dir, ".a_trimmed_123456_trimmed.wav"))
}

func TestExecute_NoFiles(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	code, stdout, _ := execute(t, "--directory", dir)

	assert.Equal(t, 0, code)
	assert.Equal(t, "No audio files found in '"+dir+"'\n", stdout)
}

func TestExecute_InvalidParams(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 0)

	tests := []struct {
		name string
		args []string
	}{
		{"positive threshold", []string{"--threshold", "5"}},
		{"zero hop", []string{"--hop-length", "0"}},
		{"negative frame", []string{"--frame-length", "-1"}},
		{"empty suffix", []string{"--output-suffix", ""}},
		{"unknown flag", []string{"--bogus"}},
		{"positional arg", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, append([]string{"--directory", dir}, tt.args...)...)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, "Error: ")
			assert.NoFileExists(t, filepath.Join(dir, "a_trimmed.wav"))
		})
	}
}

func TestExecute_Overwrite(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	writeTone(t, path, 0.5)

	code, _, _ := execute(t, "--directory", dir, "--overwrite", "--output-suffix", "")
	require.Equal(t, 0, code)

	buf, err := audio.NewWAVCodec().Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Greater(t, buf.Frames(), 8000)
	assert.Less(t, buf.Frames(), 8000+4000+8000)
	assert.NoFileExists(t, filepath.Join(dir, "a_trimmed.wav"))
}

func TestExecute_MetricsFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 0)
	metricsPath := filepath.Join(t.TempDir(), "trimsilence.prom")

	code, _, _ := execute(t, "--directory", dir, "--metrics-file", metricsPath)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trimsilence_files_processed_total 1")
}

func TestExecute_JSONLogsToStderr(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 0)

	code, stdout, stderr := execute(t, "--directory", dir, "--log-level", "info", "--log-format", "json")

	require.Equal(t, 0, code)
	assert.Contains(t, stderr, `"msg":"batch finished"`)
	assert.NotContains(t, stdout, `"msg"`)
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := Execute(ctx, []string{"--directory", dir}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Successfully processed: 0\n")
	assert.Contains(t, stderr.String(), "Interrupted: 1 of 1 files were not processed.")
	assert.NoFileExists(t, filepath.Join(dir, "a_trimmed.wav"))
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{LogLevel: "warn", LogFormat: "text", MetricsFile: "env.prom"}

	applyOverrides(cfg, &options{})
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "env.prom", cfg.MetricsFile)

	applyOverrides(cfg, &options{logLevel: "debug", logFormat: "json", metricsFile: "flag.prom"})
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "flag.prom", cfg.MetricsFile)
}
