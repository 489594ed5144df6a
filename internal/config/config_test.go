package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"FFMPEG_PATH",
	"FFPROBE_PATH",
	"MP3_QUALITY",
	"METRICS_FILE",
	"S3_BUCKET",
	"S3_REGION",
	"S3_ENDPOINT",
	"S3_PREFIX",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"LOG_FORMAT",
	"LOG_LEVEL",
}

// isolateEnv clears the variables Load reads and runs the test from an empty
// directory so no stray .env file is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, 2, cfg.MP3Quality)
	assert.Empty(t, cfg.MetricsFile)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	isolateEnv(t)
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg")
	t.Setenv("FFPROBE_PATH", "/opt/ffprobe")
	t.Setenv("MP3_QUALITY", "4")
	t.Setenv("METRICS_FILE", "/var/lib/node_exporter/trimsilence.prom")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_PREFIX", "trimmed/")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/opt/ffprobe", cfg.FFprobePath)
	assert.Equal(t, 4, cfg.MP3Quality)
	assert.Equal(t, "/var/lib/node_exporter/trimsilence.prom", cfg.MetricsFile)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "trimmed/", cfg.S3Prefix)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolateEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("LOG_LEVEL=error\nS3_BUCKET=from-dotenv\n"), 0600))
	t.Cleanup(func() {
		for _, name := range []string{"LOG_LEVEL", "S3_BUCKET"} {
			_ = os.Unsetenv(name)
		}
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "from-dotenv", cfg.S3Bucket)
}

func TestLoad_InvalidInteger(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MP3_QUALITY", "not-a-number")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		FFmpegPath:         "ffmpeg",
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "access-key",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "bucket")
	assert.Contains(t, str, "region")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "access-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	require.NotNil(t, logger)

	logger.Info("test message")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), `"msg":"test message"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Debug("visible")

	assert.Contains(t, buf.String(), "msg=visible")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
