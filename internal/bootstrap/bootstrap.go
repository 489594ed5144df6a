// Package bootstrap provides dependency initialization for trimsilence.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/batch"
	"github.com/maauso/trimsilence/internal/config"
	"github.com/maauso/trimsilence/internal/metrics"
	"github.com/maauso/trimsilence/internal/silence"
	"github.com/maauso/trimsilence/internal/storage"
)

// Dependencies holds all initialized dependencies for a batch run.
type Dependencies struct {
	Service *batch.Service
	Codecs  *audio.Registry
	Metrics *metrics.Metrics
}

// NewDependencies creates and initializes all dependencies for the application.
// opts are passed through to the batch service.
func NewDependencies(cfg *config.Config, logger *slog.Logger, opts ...batch.Option) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	codecs := initCodecs(cfg)
	logger.Debug("codecs registered",
		slog.Any("extensions", codecs.Extensions()),
		slog.String("ffmpeg_path", cfg.FFmpegPath),
		slog.Int("mp3_quality", cfg.MP3Quality),
	)

	m := metrics.New()

	svc := batch.NewService(
		codecs,
		silence.NewEnergyDetector(),
		store,
		logger,
		append([]batch.Option{batch.WithMetrics(m)}, opts...)...,
	)

	return &Dependencies{
		Service: svc,
		Codecs:  codecs,
		Metrics: m,
	}, nil
}

// initCodecs maps every supported extension to its codec.
func initCodecs(cfg *config.Config) *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register(".wav", audio.NewWAVCodec())
	reg.Register(".mp3", audio.NewFFmpegCodec(
		cfg.FFmpegPath,
		cfg.FFprobePath,
		audio.WithMP3Quality(cfg.MP3Quality),
	))
	return reg
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 mirror configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	logger.Debug("local storage configured")
	return storage.NewLocalStorage(), nil
}
