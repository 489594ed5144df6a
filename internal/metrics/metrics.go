// Package metrics records batch run statistics with Prometheus collectors and
// exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for one batch run.
type Metrics struct {
	registry *prometheus.Registry

	FilesFound      prometheus.Gauge
	FilesProcessed  prometheus.Counter
	FilesFailed     *prometheus.CounterVec
	TrimmedSeconds  prometheus.Counter
	TrimmedPerFile  prometheus.Histogram
	FileDuration    prometheus.Histogram
	LastRunSeconds  prometheus.Gauge
	LastRunUnixTime prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesFound: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trimsilence_files_found",
			Help: "Number of audio files discovered by the last run",
		}),
		FilesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "trimsilence_files_processed_total",
			Help: "Total number of files trimmed and written successfully",
		}),
		FilesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trimsilence_files_failed_total",
			Help: "Total number of files that failed, by pipeline stage",
		}, []string{"stage"}),
		TrimmedSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "trimsilence_trimmed_seconds_total",
			Help: "Total leading silence removed, in seconds",
		}),
		TrimmedPerFile: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trimsilence_trimmed_seconds",
			Help:    "Leading silence removed per file, in seconds",
			Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		FileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trimsilence_file_processing_seconds",
			Help:    "Wall time spent decoding, trimming and encoding one file",
			Buckets: prometheus.DefBuckets,
		}),
		LastRunSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trimsilence_last_run_duration_seconds",
			Help: "Wall time of the last batch run",
		}),
		LastRunUnixTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trimsilence_last_run_timestamp_seconds",
			Help: "Unix time at which the last batch run finished",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all collectors to path atomically, in the format read
// by the node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
