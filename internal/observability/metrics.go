package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics collected during a single run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal         *prometheus.CounterVec
	PackageDownloads   *prometheus.GaugeVec
	PublishTotal       *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge
	RunDurationSeconds prometheus.Gauge
}

// NewMetrics creates and registers the run metrics on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pepy_stats_fetch_total",
				Help: "Download statistics fetches by package and outcome",
			},
			[]string{"package", "outcome"},
		),
		PackageDownloads: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pepy_stats_package_downloads",
				Help: "Downloads reported for a package in the selected mode",
			},
			[]string{"package", "mode"},
		),
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pepy_stats_publish_total",
				Help: "Gist publish attempts by outcome",
			},
			[]string{"outcome"},
		),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pepy_stats_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		RunDurationSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pepy_stats_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}

	registry.MustRegister(
		m.FetchTotal,
		m.PackageDownloads,
		m.PublishTotal,
		m.LastRunTimestamp,
		m.RunDurationSeconds,
	)
	return m
}

// RecordFetch counts one fetch and, on success, stores the downloads.
func (m *Metrics) RecordFetch(pkg, mode string, downloads uint64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FetchTotal.WithLabelValues(pkg, "failure").Inc()
		return
	}
	m.FetchTotal.WithLabelValues(pkg, "success").Inc()
	m.PackageDownloads.WithLabelValues(pkg, mode).Set(float64(downloads))
}

// RecordPublish counts one publish attempt. Skipped publishes use the "skipped" outcome.
func (m *Metrics) RecordPublish(outcome string) {
	if m == nil {
		return
	}
	m.PublishTotal.WithLabelValues(outcome).Inc()
}

// RecordRun stores when the run finished and how long it took.
func (m *Metrics) RecordRun(started, finished time.Time) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.Set(float64(finished.Unix()))
	m.RunDurationSeconds.Set(finished.Sub(started).Seconds())
}

// WriteTextfile writes the metrics in the text exposition format for the
// node_exporter textfile collector. The write goes through a temp file and rename.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
