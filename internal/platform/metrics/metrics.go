// Package metrics exposes the Prometheus collectors shared by every
// component (ingestion, search, voting) behind the ambient /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectorFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Subsystem: "ingest",
			Name:      "connector_fetches_total",
			Help:      "Total connector fetch attempts by outcome.",
		},
		[]string{"source", "status"},
	)

	ConnectorFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trustscore",
			Subsystem: "ingest",
			Name:      "connector_fetch_duration_seconds",
			Help:      "Duration of a single connector fetch.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"source"},
	)

	ConnectorRecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Subsystem: "ingest",
			Name:      "connector_records_fetched_total",
			Help:      "Total raw records returned by a connector across all runs.",
		},
		[]string{"source"},
	)

	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Subsystem: "ingest",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions per connector.",
		},
		[]string{"source", "from", "to"},
	)

	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Subsystem: "ingest",
			Name:      "refreshes_total",
			Help:      "Total ingestion refreshes by outcome.",
		},
		[]string{"outcome"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trustscore",
			Subsystem: "ingest",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full ingestion refresh.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SearchRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trustscore",
			Subsystem: "search",
			Name:      "request_duration_seconds",
			Help:      "Duration of a search request against the repository.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"sort"},
	)

	VoteOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Subsystem: "vote",
			Name:      "outcomes_total",
			Help:      "Vote attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

// RecordConnectorFetch records one connector fetch outcome.
func RecordConnectorFetch(source, status string, durationSeconds float64, recordCount int) {
	ConnectorFetchesTotal.WithLabelValues(source, status).Inc()
	ConnectorFetchDuration.WithLabelValues(source).Observe(durationSeconds)
	ConnectorRecordsFetched.WithLabelValues(source).Add(float64(recordCount))
}

// RecordCircuitBreakerTransition records a breaker state change.
func RecordCircuitBreakerTransition(source, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(source, from, to).Inc()
}

// RecordRefresh records a completed refresh's outcome and duration.
func RecordRefresh(outcome string, durationSeconds float64) {
	RefreshesTotal.WithLabelValues(outcome).Inc()
	RefreshDuration.Observe(durationSeconds)
}

// RecordSearch records a search request's latency.
func RecordSearch(sort string, durationSeconds float64) {
	SearchRequestDuration.WithLabelValues(sort).Observe(durationSeconds)
}

// RecordVote records a vote attempt's outcome.
func RecordVote(kind, outcome string) {
	VoteOutcomesTotal.WithLabelValues(kind, outcome).Inc()
}
