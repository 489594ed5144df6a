package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/batch/id"
	"github.com/maauso/trimsilence/internal/config"
	"github.com/maauso/trimsilence/internal/discovery"
	"github.com/maauso/trimsilence/internal/metrics"
	"github.com/maauso/trimsilence/internal/silence"
	"github.com/maauso/trimsilence/internal/storage"
	"github.com/maauso/trimsilence/internal/trim"
)

// ErrNoFilesFound is returned when the root holds no recognized audio files.
// The run did no work but is not a failure.
var ErrNoFilesFound = errors.New("no audio files found")

// CodecResolver picks the codec for a file.
type CodecResolver interface {
	ForPath(path string) (audio.Codec, error)
}

// Service orchestrates the decode, detect, transform and encode pipeline
// over every file of a directory, one file at a time.
type Service struct {
	codecs   CodecResolver
	detector silence.Detector
	store    storage.Storage
	logger   *slog.Logger
	observer Observer
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets the receiver of progress events.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMetrics records run statistics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new Service.
// If logger is nil, slog.Default() is used.
func NewService(
	codecs CodecResolver,
	detector silence.Detector,
	store storage.Storage,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		codecs:   codecs,
		detector: detector,
		store:    store,
		logger:   logger,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every recognized audio file under root.
//
// It returns discovery.ErrDirectoryNotFound or discovery.ErrNotDirectory (and
// a nil Result) when root is not an existing directory, and ErrNoFilesFound together with an empty Result when nothing
// matched. Per-file failures are recorded in the Result and never returned.
//
// ctx is only consulted between files; a file that has started is finished.
func (s *Service) Run(ctx context.Context, root string, params config.Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	res := &Result{
		ID:        id.New(root, started),
		Root:      root,
		StartedAt: started,
	}
	logger := s.logger.With(slog.String("run_id", res.ID))

	files, err := discovery.Discover(root, params.Recursive)
	if err != nil {
		logger.Error("discovery failed",
			slog.String("root", root),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	res.Found = len(files)
	if s.metrics != nil {
		s.metrics.FilesFound.Set(float64(res.Found))
	}
	if len(files) == 0 {
		res.FinishedAt = time.Now()
		logger.Info("no audio files found", slog.String("root", root))
		return res, ErrNoFilesFound
	}

	logger.Info("starting batch",
		slog.String("root", root),
		slog.Int("files", len(files)),
		slog.Bool("recursive", params.Recursive),
		slog.Bool("overwrite", params.Overwrite),
		slog.Float64("threshold_db", params.ThresholdDB),
		slog.Int("frame_length", params.FrameLength),
		slog.Int("hop_length", params.HopLength),
	)
	s.observer.OnStart(res)

	// Files already started are never interrupted.
	fileCtx := context.WithoutCancel(ctx)

	for i, path := range files {
		if ctx.Err() != nil {
			res.Cancelled = true
			logger.Warn("batch cancelled",
				slog.Int("remaining", len(files)-i),
				slog.String("reason", ctx.Err().Error()),
			)
			break
		}

		s.observer.OnFileStart(i+1, len(files), path)
		task := s.processFile(fileCtx, logger, root, path, params)
		res.record(task)
		s.observer.OnFileDone(i+1, len(files), task)
	}

	res.FinishedAt = time.Now()
	if s.metrics != nil {
		s.metrics.LastRunSeconds.Set(res.FinishedAt.Sub(res.StartedAt).Seconds())
		s.metrics.LastRunUnixTime.Set(float64(res.FinishedAt.Unix()))
	}

	logger.Info("batch finished",
		slog.Int("found", res.Found),
		slog.Int("processed", res.Processed),
		slog.Int("errors", res.Errors),
		slog.Float64("trimmed_seconds", res.TotalTrimmedSeconds),
		slog.Bool("cancelled", res.Cancelled),
	)
	return res, nil
}

// processFile runs one file to a terminal stage.
func (s *Service) processFile(ctx context.Context, logger *slog.Logger, root, path string, params config.Params) *Task {
	task := NewTask(path, OutputPath(path, params))
	started := time.Now()

	if err := s.runStages(ctx, root, task, params); err != nil {
		if failErr := task.Fail(err); failErr != nil {
			logger.Error("failed to record task failure",
				slog.String("path", path),
				slog.String("error", failErr.Error()),
			)
		}
		logger.Error("file failed",
			slog.String("path", path),
			slog.String("stage", string(task.Err.Stage)),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("file trimmed",
			slog.String("path", path),
			slog.String("output", task.Location),
			slog.Int("trim_offset", task.TrimOffset),
			slog.Int("input_frames", task.InputFrames),
			slog.Int("output_frames", task.OutputFrames),
			slog.Float64("trimmed_seconds", task.TrimmedSeconds),
		)
	}

	if s.metrics != nil {
		s.metrics.FileDuration.Observe(time.Since(started).Seconds())
		if task.Succeeded() {
			s.metrics.FilesProcessed.Inc()
			s.metrics.TrimmedSeconds.Add(task.TrimmedSeconds)
			s.metrics.TrimmedPerFile.Observe(task.TrimmedSeconds)
		} else if task.Err != nil {
			s.metrics.FilesFailed.WithLabelValues(strings.ToLower(string(task.Err.Stage))).Inc()
		}
	}
	return task
}

// runStages walks the task through every stage up to SUCCESS. The returned
// error is classified with ErrDecode, ErrDetection, trim.ErrInvalidTrimOffset
// or ErrEncode.
func (s *Service) runStages(ctx context.Context, root string, task *Task, params config.Params) error {
	if err := task.TransitionTo(StageDecoding); err != nil {
		return err
	}
	codec, err := s.codecs.ForPath(task.InputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	buf, err := codec.Decode(ctx, task.InputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	task.SampleRate = buf.SampleRate
	task.InputFrames = buf.Frames()

	if err := task.TransitionTo(StageDetecting); err != nil {
		return err
	}
	offset, err := s.detector.LeadingSilenceEnd(buf, params.ThresholdDB, params.FrameLength, params.HopLength)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDetection, err)
	}
	task.TrimOffset = offset

	if err := task.TransitionTo(StageTransforming); err != nil {
		return err
	}
	out, err := trim.Apply(buf, offset)
	if err != nil {
		return err
	}
	task.TrimmedSeconds = TrimmedSeconds(offset, buf.SampleRate)
	task.OutputFrames = out.Frames()

	if err := task.TransitionTo(StageEncoding); err != nil {
		return err
	}
	location, err := s.write(ctx, codec, root, task.OutputPath, out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	task.Location = location

	return task.TransitionTo(StageSuccess)
}

// write encodes buf into a temporary file and commits it over dst.
func (s *Service) write(ctx context.Context, codec audio.Codec, root, dst string, buf audio.Buffer) (string, error) {
	tmp, err := s.store.CreateTemp(ctx, dst)
	if err != nil {
		return "", err
	}

	if err := codec.Encode(ctx, tmp, buf); err != nil {
		_ = s.store.CleanupTemp(ctx, []string{tmp})
		return "", err
	}

	location, err := s.store.Commit(ctx, tmp, dst, outputKey(root, dst))
	if err != nil {
		_ = s.store.CleanupTemp(ctx, []string{tmp})
		return "", err
	}
	return location, nil
}

// OutputPath returns where the trimmed version of path is written:
// path itself when overwriting, otherwise stem + suffix + extension in the
// same directory.
func OutputPath(path string, params config.Params) string {
	if params.Overwrite {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), stem+params.OutputSuffix+ext)
}

// TrimmedSeconds converts a frame offset to seconds, returning 0 for an
// unknown sample rate.
func TrimmedSeconds(offset, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(offset) / float64(sampleRate)
}

// outputKey names dst relative to root with forward slashes.
func outputKey(root, dst string) string {
	rel, err := filepath.Rel(root, dst)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(dst)
	}
	return filepath.ToSlash(rel)
}
