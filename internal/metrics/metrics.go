// Package metrics exposes Prometheus instrumentation for the ranking engine
// and its HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ranking Metrics
	ComparisonsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediarank_comparisons_total",
			Help: "Total number of committed pairwise comparisons",
		},
	)

	ComparisonDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediarank_comparison_duration_seconds",
			Help:    "Time to apply a comparison including lock wait and commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	PairsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediarank_pairs_served_total",
			Help: "Pair selection outcomes",
		},
		[]string{"outcome"}, // "pair", "insufficient"
	)

	RatingDelta = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediarank_rating_delta",
			Help:    "Absolute rating change applied to a comparison winner",
			Buckets: []float64{1, 2, 4, 8, 12, 16, 20, 24, 32, 40},
		},
	)

	// Library Metrics
	LibraryChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediarank_library_changes_total",
			Help: "Library mutations by action",
		},
		[]string{"action"}, // "add", "remove", "update", "reset", "clear"
	)

	// Lock Metrics
	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediarank_user_lock_wait_seconds",
			Help:    "Time spent waiting for a per-user lock",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		},
	)

	LockFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediarank_user_lock_failures_total",
			Help: "Per-user lock acquisitions that failed or timed out",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediarank_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediarank_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediarank_api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// RecordComparison records a committed comparison
func RecordComparison(duration time.Duration, winnerDelta float64) {
	ComparisonsTotal.Inc()
	ComparisonDuration.Observe(duration.Seconds())
	if winnerDelta < 0 {
		winnerDelta = -winnerDelta
	}
	RatingDelta.Observe(winnerDelta)
}

// RecordPairServed records whether a pair could be offered
func RecordPairServed(found bool) {
	if found {
		PairsServed.WithLabelValues("pair").Inc()
		return
	}
	PairsServed.WithLabelValues("insufficient").Inc()
}

// RecordLibraryChange counts a library mutation
func RecordLibraryChange(action string) {
	LibraryChanges.WithLabelValues(action).Inc()
}

// RecordLockWait records how long a lock acquisition took and whether it failed
func RecordLockWait(duration time.Duration, err error) {
	LockWaitDuration.Observe(duration.Seconds())
	if err != nil {
		LockFailures.Inc()
	}
}

// RecordAPIRequest records one served request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
