// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package metrics holds the Prometheus collectors for every pipeline stage.
// Collectors register with the default registry through promauto and are
// served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection Metrics
	PacketsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "packets_processed_total",
			Help: "Total number of packet records passed through the detector",
		},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomalies_detected_total",
			Help: "Total number of anomaly events emitted by kind",
		},
		[]string{"kind"}, // "large_packet", "port_scan", "traffic_burst", "high_entropy_payload"
	)

	EntropyDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "entropy_decode_errors_total",
			Help: "Payload samples skipped because they were not valid hex",
		},
	)

	WindowSourcesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "window_sources_tracked",
			Help: "Number of source addresses with sliding window state",
		},
	)

	// Alert Metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_created_total",
			Help: "Total number of alerts created by type and severity",
		},
		[]string{"type", "severity"},
	)

	AlertPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_persist_failures_total",
			Help: "Alerts that were cached but could not be written to the store",
		},
	)

	// Threat Intelligence Metrics
	LookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_failures_total",
			Help: "Failed threat intelligence lookups by provider",
		},
		[]string{"provider"}, // "virustotal", "abuseipdb", "geo", "isp"
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookup_duration_seconds",
			Help:    "Duration of threat intelligence lookups in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 4, 5},
		},
		[]string{"provider"},
	)

	GeoCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geo_cache_hits_total",
			Help: "Geolocation lookups served from the per-IP cache",
		},
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
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Pipeline Metrics
	PipelineEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_events_dropped_total",
			Help: "Anomaly events dropped because the enrichment queue was full",
		},
	)

	PipelineQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_queue_depth",
			Help: "Anomaly events waiting for enrichment",
		},
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Alert notifications by channel and outcome",
		},
		[]string{"channel", "status"}, // status: "success", "error"
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of connected websocket dashboard clients",
		},
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)
)

// ObserveLookup records the latency of a provider request.
func ObserveLookup(provider string, duration time.Duration) {
	LookupDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLookupFailure counts a lookup that fell back to a neutral value.
func RecordLookupFailure(provider string) {
	LookupFailures.WithLabelValues(provider).Inc()
}

// RecordNotification records a notifier send.
func RecordNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsSent.WithLabelValues(channel, status).Inc()
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration.Seconds())
}
