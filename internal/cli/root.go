// Package cli implements the trimsilence command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maauso/trimsilence/internal/batch"
	"github.com/maauso/trimsilence/internal/bootstrap"
	"github.com/maauso/trimsilence/internal/config"
	"github.com/maauso/trimsilence/internal/discovery"
)

// options collects the flag values of one invocation.
type options struct {
	directory   string
	params      config.Params
	metricsFile string
	logLevel    string
	logFormat   string
}

// Execute runs the root command with args and returns the process exit code.
// ctx is expected to be cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, discovery.ErrDirectoryNotFound) && !errors.Is(err, discovery.ErrNotDirectory) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// NewRootCommand builds the trimsilence command. Per-file progress and the
// summary go to stdout; structured logs go to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{params: config.DefaultParams()}

	cmd := &cobra.Command{
		Use:   "trimsilence",
		Short: "Trim leading silence from audio files and add a fixed 1s pad.",
		Long: `trimsilence scans a directory for .wav and .mp3 files, removes the silence
at the start of each file and prepends exactly one second of silence.

Outputs are written next to the input with a suffix, or over the input with
--overwrite. A failing file is reported and skipped; the remaining files are
still processed.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.directory, "directory", "d", config.DefaultDirectory, "directory containing audio files")
	f.StringVarP(&opts.params.OutputSuffix, "output-suffix", "s", config.DefaultOutputSuffix, "suffix appended to output file names")
	f.BoolVar(&opts.params.Overwrite, "overwrite", false, "overwrite the original files instead of writing new ones")
	f.BoolVarP(&opts.params.Recursive, "recursive", "r", false, "process subdirectories as well")
	f.Float64VarP(&opts.params.ThresholdDB, "threshold", "t", config.DefaultThresholdDB, "silence threshold in dB below the loudest frame")
	f.IntVar(&opts.params.FrameLength, "frame-length", config.DefaultFrameLength, "analysis frame length in samples")
	f.IntVar(&opts.params.HopLength, "hop-length", config.DefaultHopLength, "hop between analysis frames in samples")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format to this path")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")

	return cmd
}

func run(cmd *cobra.Command, opts *options, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, opts)

	logger := cfg.NewLogger(stderr)
	slog.SetDefault(logger)

	logger.Info("starting trimsilence",
		slog.String("directory", opts.directory),
		slog.String("config", cfg.String()),
	)

	deps, err := bootstrap.NewDependencies(cfg, logger,
		batch.WithObserver(batch.NewConsoleObserver(stdout)),
	)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	res, err := deps.Service.Run(cmd.Context(), opts.directory, opts.params)
	switch {
	case errors.Is(err, discovery.ErrDirectoryNotFound):
		fmt.Fprintf(stdout, "Error: Directory '%s' does not exist.\n", opts.directory)
		return err
	case errors.Is(err, discovery.ErrNotDirectory):
		fmt.Fprintf(stdout, "Error: '%s' is not a directory.\n", opts.directory)
		return err
	case errors.Is(err, batch.ErrNoFilesFound):
		fmt.Fprintf(stdout, "No audio files found in '%s'\n", opts.directory)
		return nil
	case err != nil:
		return err
	}

	if err := batch.WriteSummary(stdout, res); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if res.Cancelled {
		fmt.Fprintf(stderr, "Interrupted: %d of %d files were not processed.\n",
			res.Found-len(res.Tasks), res.Found)
	}

	if cfg.MetricsFile != "" {
		if err := deps.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics",
				slog.String("path", cfg.MetricsFile),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// applyOverrides lets explicit flags take precedence over the environment.
func applyOverrides(cfg *config.Config, opts *options) {
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if opts.metricsFile != "" {
		cfg.MetricsFile = opts.metricsFile
	}
}
