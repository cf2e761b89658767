// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

// Package metrics holds the Prometheus collectors for CSVIngest. Collectors
// are registered on the default registry at init via promauto and exposed on
// /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Ingestion Metrics (uploads and scheduled runs share these, split by trigger)
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csv_ingestions_total",
			Help: "Total number of CSV ingestion attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	IngestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "csv_ingestion_duration_seconds",
			Help:    "Duration of CSV parse-and-persist in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"trigger"},
	)

	RecordsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csv_records_persisted_total",
			Help: "Total number of CSV rows persisted as users",
		},
		[]string{"trigger"},
	)

	// Scheduler Metrics
	SchedulerEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "csv_scheduler_enabled",
			Help: "Whether the scheduled ingestion is enabled (1) or permanently disabled (0)",
		},
	)

	SchedulerConsecutiveFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "csv_scheduler_consecutive_failures",
			Help: "Consecutive scheduled runs that found no source file",
		},
	)

	SchedulerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csv_scheduler_runs_total",
			Help: "Total number of scheduler ticks by outcome",
		},
		[]string{"outcome"}, // disabled, skipped, source_missing, succeeded, failed
	)

	// Event Publishing Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csv_events_published_total",
			Help: "Total number of ingestion events published",
		},
		[]string{"topic", "result"}, // result: success, failure
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
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current consecutive failures seen by the circuit breaker",
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
)

// RecordDBQuery records a database query metric. Error labels are truncated
// to 50 characters to bound cardinality.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIngestion records one parse-and-persist attempt.
func RecordIngestion(trigger, outcome string, duration time.Duration, persisted int) {
	IngestionsTotal.WithLabelValues(trigger, outcome).Inc()
	IngestionDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	if persisted > 0 {
		RecordsPersisted.WithLabelValues(trigger).Add(float64(persisted))
	}
}

// RecordSchedulerRun records one scheduler tick and the health it left behind.
func RecordSchedulerRun(outcome string, enabled bool, consecutiveFailures int) {
	SchedulerRunsTotal.WithLabelValues(outcome).Inc()
	SetSchedulerHealth(enabled, consecutiveFailures)
}

// SetSchedulerHealth updates the scheduler health gauges.
func SetSchedulerHealth(enabled bool, consecutiveFailures int) {
	if enabled {
		SchedulerEnabled.Set(1)
	} else {
		SchedulerEnabled.Set(0)
	}
	SchedulerConsecutiveFailures.Set(float64(consecutiveFailures))
}

// RecordEventPublish records an ingestion event publish attempt.
func RecordEventPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}
