// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package metrics defines the Prometheus instrumentation for the
// orchestrator: HTTP surface, orchestration copies, origin reads, and the
// tracker cache. Collectors are registered through promauto at init and
// exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_http_requests_total",
			Help: "Total HTTP requests by method, route family and status code",
		},
		[]string{"method", "family", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "family"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_http_active_requests",
			Help: "Requests currently in flight",
		},
	)

	// Orchestration

	OrchestrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_orchestration_attempts_total",
			Help: "Orchestration attempts by outcome (copied, already_warm, race_lost, lock_timeout, failed)",
		},
		[]string{"outcome"},
	)

	OrchestrationBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_orchestration_bytes_total",
			Help: "Total bytes copied from origin into fast storage",
		},
	)

	OrchestrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchestrator_orchestration_duration_seconds",
			Help:    "Duration of slow-to-fast storage copies in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Origin reads

	OriginRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_origin_requests_total",
			Help: "Origin read attempts by result (success, failure, rejected)",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestrator_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Tracker cache

	TrackerCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_tracker_cache_hits_total",
			Help: "Tracked-asset cache hits",
		},
	)

	TrackerCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_tracker_cache_misses_total",
			Help: "Tracked-asset cache misses (repository round trips)",
		},
	)

	// Access validation

	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_access_decisions_total",
			Help: "Access validation outcomes by mechanism (open, authorized, unauthorized)",
		},
		[]string{"mechanism", "result"},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, family, statusCode string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, family, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, family).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordOrchestration records a completed copy with its size and duration.
func RecordOrchestration(bytes int64, duration time.Duration) {
	OrchestrationAttempts.WithLabelValues("copied").Inc()
	OrchestrationBytes.Add(float64(bytes))
	OrchestrationDuration.Observe(duration.Seconds())
}

// RecordOrchestrationOutcome records a non-copy orchestration outcome.
func RecordOrchestrationOutcome(outcome string) {
	OrchestrationAttempts.WithLabelValues(outcome).Inc()
}
