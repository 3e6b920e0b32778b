// Package telemetry collects run statistics as Prometheus metrics on a
// private registry. Batch runs export them once, in text exposition format,
// for a node_exporter textfile collector.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hydroeval"

// Stats holds the collectors of one run.
type Stats struct {
	registry *prometheus.Registry

	catchments    *prometheus.CounterVec
	files         *prometheus.CounterVec
	undefined     *prometheus.CounterVec
	stageSeconds  *prometheus.HistogramVec
	alignedRows   prometheus.Counter
	droppedRows   prometheus.Counter
	artifactBytes prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewStats registers a fresh set of collectors.
func NewStats() *Stats {
	s := &Stats{
		registry: prometheus.NewRegistry(),
		catchments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catchments_total",
			Help:      "Catchments processed, by outcome.",
		}, []string{"status"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_files_total",
			Help:      "Input files seen during discovery and alignment, by outcome.",
		}, []string{"status"}),
		undefined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undefined_metrics_total",
			Help:      "Metrics left undefined because of a zero denominator.",
		}, []string{"metric"}),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		alignedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aligned_rows_total",
			Help:      "Rows in all aligned series.",
		}),
		droppedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_rows_total",
			Help:      "Joined rows dropped for a missing observed or simulated value.",
		}),
		artifactBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Length of the encoded dataset artifact.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	s.registry.MustRegister(
		s.catchments, s.files, s.undefined, s.stageSeconds,
		s.alignedRows, s.droppedRows, s.artifactBytes, s.lastSuccess,
	)
	return s
}

// Registry exposes the underlying registry.
func (s *Stats) Registry() *prometheus.Registry { return s.registry }

// Catchment counts one catchment outcome.
func (s *Stats) Catchment(status string) { s.catchments.WithLabelValues(status).Inc() }

// File counts one input file outcome.
func (s *Stats) File(status string) { s.files.WithLabelValues(status).Inc() }

// Undefined counts one undefined metric.
func (s *Stats) Undefined(metric string) { s.undefined.WithLabelValues(metric).Inc() }

// Rows adds aligned and dropped row counts.
func (s *Stats) Rows(aligned, dropped int) {
	s.alignedRows.Add(float64(aligned))
	s.droppedRows.Add(float64(dropped))
}

// Stage records the duration of a pipeline stage.
func (s *Stats) Stage(stage string, d time.Duration) {
	s.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// ArtifactSize records the encoded artifact length.
func (s *Stats) ArtifactSize(n int) { s.artifactBytes.Set(float64(n)) }

// Succeeded stamps the run as successful at t.
func (s *Stats) Succeeded(t time.Time) { s.lastSuccess.Set(float64(t.Unix())) }

// WriteTextfile writes all metrics to path atomically.
func (s *Stats) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
