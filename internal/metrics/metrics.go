// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

// Package metrics holds the Prometheus instrumentation for flexsync.
// All collectors register on the default registry through promauto and are
// exposed by the status API at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote API Metrics
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexsync_remote_requests_total",
			Help: "Total number of requests sent to the remote API",
		},
		[]string{"operation", "status"}, // operation: page, list, record, ping
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flexsync_remote_request_duration_seconds",
			Help:    "Remote API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexsync_retry_attempts_total",
			Help: "Total number of retried remote calls",
		},
		[]string{"reason"}, // throttled, transient
	)

	// Sync Metrics
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexsync_records_total",
			Help: "Records reconciled per collection and outcome",
		},
		[]string{"collection", "outcome"}, // inserted, updated, failed, not_found
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexsync_runs_total",
			Help: "Completed sync runs per collection and terminal status",
		},
		[]string{"collection", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flexsync_run_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"collection"},
	)

	LastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flexsync_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per collection",
		},
		[]string{"collection"},
	)

	DetailPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flexsync_detail_pending",
			Help: "Entities still waiting for a detail fetch",
		},
		[]string{"collection"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flexsync_db_query_duration_seconds",
			Help:    "Duration of local store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexsync_db_query_errors_total",
			Help: "Total number of local store query errors",
		},
		[]string{"operation", "table"},
	)

	// Status API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of status API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Status API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRemoteRequest records one remote API call. status is the HTTP status
// code, or 0 when the request never got a response.
func RecordRemoteRequest(operation string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	RemoteRequestsTotal.WithLabelValues(operation, label).Inc()
	RemoteRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRetry counts a retry about to happen.
func RecordRetry(throttled bool) {
	if throttled {
		RetryAttempts.WithLabelValues("throttled").Inc()
		return
	}
	RetryAttempts.WithLabelValues("transient").Inc()
}

// RecordOutcome counts one reconciled record.
func RecordOutcome(collection, outcome string) {
	RecordsTotal.WithLabelValues(collection, outcome).Inc()
}

// RecordRun records a finished run. Successful runs also move the
// last-success timestamp.
func RecordRun(collection, status string, duration time.Duration, finishedAt time.Time) {
	RunsTotal.WithLabelValues(collection, status).Inc()
	RunDuration.WithLabelValues(collection).Observe(duration.Seconds())
	if status == "success" {
		LastSuccess.WithLabelValues(collection).Set(float64(finishedAt.Unix()))
	}
}

// SetDetailPending publishes the size of a collection's detail backlog.
func SetDetailPending(collection string, pending int64) {
	DetailPending.WithLabelValues(collection).Set(float64(pending))
}

// RecordDBQuery records a local store query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records a status API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
