// Package metrics provides Prometheus metrics for the ingest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestRunsTotal counts ingest cycles by outcome.
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ethnews",
			Name:      "ingest_runs_total",
			Help:      "Total number of ingest cycles",
		},
		[]string{"status"},
	)

	// IngestDuration measures ingest cycle duration.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ethnews",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of ingest cycles in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// EntriesTotal counts feed entries by source and fate.
	EntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ethnews",
			Name:      "entries_total",
			Help:      "Feed entries seen, by source and result",
		},
		[]string{"source", "result"},
	)

	// SourceFailuresTotal counts feeds that could not be read.
	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ethnews",
			Name:      "source_failures_total",
			Help:      "Total number of failed feed fetches",
		},
		[]string{"source"},
	)

	// EvictedTotal counts rows removed by retention.
	EvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ethnews",
			Name:      "evicted_total",
			Help:      "Articles removed by the retention ceiling",
		},
	)

	// StoredArticles tracks the article count after the last cycle.
	StoredArticles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ethnews",
			Name:      "stored_articles",
			Help:      "Number of stored articles after the last ingest",
		},
	)
)

// RecordRun records a finished ingest cycle.
func RecordRun(status string, seconds float64) {
	IngestRunsTotal.WithLabelValues(status).Inc()
	IngestDuration.Observe(seconds)
}

// RecordEntries adds per-source entry counts.
func RecordEntries(source string, added, duplicate, rejected int) {
	EntriesTotal.WithLabelValues(source, "added").Add(float64(added))
	EntriesTotal.WithLabelValues(source, "duplicate").Add(float64(duplicate))
	EntriesTotal.WithLabelValues(source, "rejected").Add(float64(rejected))
}

// RecordSourceFailure records a failed feed fetch.
func RecordSourceFailure(source string) {
	SourceFailuresTotal.WithLabelValues(source).Inc()
}

// RecordEviction records a retention pass.
func RecordEviction(removed int64) {
	EvictedTotal.Add(float64(removed))
}

// SetStored sets the stored article gauge.
func SetStored(n int64) {
	StoredArticles.Set(float64(n))
}
