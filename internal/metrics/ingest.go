package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest Prometheus metrics.
var (
	ItemsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crossref",
			Name:      "items_processed_total",
			Help:      "Total number of items processed by ingest workers",
		},
		[]string{"status"}, // "ok" / "error"
	)

	AttributesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crossref",
			Name:      "attributes_total",
			Help:      "Correlation attributes seen by ingest workers",
		},
		[]string{"type", "result"}, // result: "claimed" / "duplicate" / "invalid"
	)

	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crossref",
			Name:      "outcomes_total",
			Help:      "Classification outcomes by kind and score",
		},
		[]string{"kind", "score"},
	)

	PublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crossref",
			Name:      "publish_total",
			Help:      "Analysis result publish attempts by status",
		},
		[]string{"status"}, // "published" / "exists" / "error"
	)

	LookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crossref",
			Name:      "lookup_duration_seconds",
			Help:      "Occurrence lookup duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"status"},
	)

	BulkFlushSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crossref",
			Name:      "bulk_flush_size",
			Help:      "Number of instances written per job flush",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	BulkFlushErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crossref",
			Name:      "bulk_flush_errors_total",
			Help:      "Total number of failed job flushes",
		},
	)

	JobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crossref",
			Name:      "jobs_active",
			Help:      "Number of jobs with at least one running worker",
		},
	)

	WorkersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crossref",
			Name:      "workers_active",
			Help:      "Number of started ingest workers",
		},
	)
)

var registerIngestOnce sync.Once

// RegisterIngestMetrics registers Prometheus ingest metrics. Safe to call
// more than once.
func RegisterIngestMetrics() {
	registerIngestOnce.Do(func() {
		prometheus.MustRegister(
			ItemsProcessedTotal,
			AttributesTotal,
			OutcomesTotal,
			PublishTotal,
			LookupDuration,
			BulkFlushSize,
			BulkFlushErrorsTotal,
			JobsActive,
			WorkersActive,
		)
	})
}
