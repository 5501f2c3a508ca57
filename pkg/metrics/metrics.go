// Package metrics provides Prometheus instrumentation for the proxy.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchLatency tracks end-to-end latency of logical fetches in seconds.
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_latency_seconds",
			Help:    "End-to-end latency of logical upstream fetches in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"family", "cache_status"}, // cache_status: "hit" or "miss"
	)

	// UpstreamAttemptsTotal counts individual upstream HTTP attempts by outcome.
	UpstreamAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_attempts_total",
			Help: "Total upstream HTTP attempts by outcome.",
		},
		[]string{"family", "outcome"}, // outcome: "success", "retryable", "fatal"
	)

	// KeyRotationsTotal counts credential rotations triggered by retryable failures.
	KeyRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "key_rotations_total",
			Help: "Total API key rotations triggered by retryable failures.",
		},
		[]string{"family"},
	)

	// CacheHitsTotal tracks the total number of response cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of response cache hits.",
		},
	)

	// CacheLookupsTotal tracks the total number of response cache lookups.
	CacheLookupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of response cache lookups.",
		},
	)

	// CacheHitRatio is a derived gauge: cache_hits_total / cache_lookups_total.
	// Prometheus can compute this in queries, but we also expose it as a gauge
	// for convenience.
	CacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Current cache hit ratio (hits / lookups). Computed per-update.",
		},
	)

	// ActiveRequests tracks the number of currently in-flight API requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_requests",
			Help: "Number of currently in-flight API requests.",
		},
	)

	// HTTPRequestsTotal tracks served API requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total API requests served, by route and status.",
		},
		[]string{"route", "status"},
	)

	totalHits    atomic.Int64
	totalLookups atomic.Int64
)

// RecordCacheLookup records a cache lookup and updates the hit ratio.
// Lookups arrive from concurrent request handlers, so the bookkeeping
// uses atomics.
func RecordCacheLookup(hit bool) {
	CacheLookupsTotal.Inc()
	lookups := totalLookups.Add(1)

	if hit {
		CacheHitsTotal.Inc()
		totalHits.Add(1)
	}

	CacheHitRatio.Set(float64(totalHits.Load()) / float64(lookups))
}
