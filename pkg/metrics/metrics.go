// Package metrics provides Prometheus metrics for the customer lookup service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal tracks searches by query kind and mode
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salesearch",
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Total number of searches by query kind and mode",
		},
		[]string{"kind", "mode"},
	)

	// SearchDuration tracks search latency in seconds
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salesearch",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Duration of searches in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	// SearchResults tracks how many candidates searches return
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "salesearch",
			Subsystem: "search",
			Name:      "results",
			Help:      "Number of ranked candidates returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// SearchFailures tracks searches aborted because candidates could not be loaded
	SearchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salesearch",
			Subsystem: "search",
			Name:      "failures_total",
			Help:      "Total number of searches that failed to load candidates",
		},
	)

	// SearchCacheLookups tracks search cache hits and misses
	SearchCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salesearch",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of search cache lookups by result",
		},
		[]string{"result"},
	)

	// ImportsTotal tracks CSV imports by platform and status
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salesearch",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total number of CSV imports by platform and status",
		},
		[]string{"platform", "status"},
	)

	// ImportedRows tracks rows written by imports
	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salesearch",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Total number of rows processed by imports",
		},
		[]string{"platform", "outcome"},
	)

	// ImportDuration tracks import duration in seconds
	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salesearch",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Duration of CSV imports in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"platform"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salesearch",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salesearch",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// RecordSearch records a completed search
func RecordSearch(kind, mode string, results int, durationSeconds float64) {
	SearchesTotal.WithLabelValues(kind, mode).Inc()
	SearchDuration.WithLabelValues(kind).Observe(durationSeconds)
	SearchResults.Observe(float64(results))
}

// RecordSearchFailure records a search that could not load candidates
func RecordSearchFailure() {
	SearchFailures.Inc()
}

// RecordCacheLookup records a search cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SearchCacheLookups.WithLabelValues(result).Inc()
}

// RecordImport records a finished import
func RecordImport(platform, status string, written, skipped int, durationSeconds float64) {
	ImportsTotal.WithLabelValues(platform, status).Inc()
	ImportedRows.WithLabelValues(platform, "written").Add(float64(written))
	ImportedRows.WithLabelValues(platform, "skipped").Add(float64(skipped))
	ImportDuration.WithLabelValues(platform).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish attempt
func RecordKafkaPublish(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordQuery records a database query duration
func RecordQuery(operation string, durationSeconds float64) {
	DatabaseQueryDuration.WithLabelValues(operation).Observe(durationSeconds)
}
