// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package metrics exposes Prometheus instrumentation for the annotation
// platform: realtime room activity, store commits and API throughput.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Realtime metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_rooms",
			Help: "Current number of rooms with at least one member",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received from clients",
		},
	)

	WSMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped",
		},
		[]string{"reason"}, // slow_client, rate_limited, channel_full
	)

	// Store metrics
	StoreCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_store_commits_total",
			Help: "Total number of canvas document commits",
		},
		[]string{"operation"}, // create, version, thread, comment, task
	)

	StoreCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "canvas_store_commit_duration_seconds",
			Help:    "Duration of canvas document commits in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_store_errors_total",
			Help: "Total number of canvas store errors",
		},
		[]string{"operation"},
	)

	// Relay metrics
	RelayEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_events_published_total",
			Help: "Total number of events published after persistence",
		},
	)

	RelayEventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_events_delivered_total",
			Help: "Total number of relayed events delivered to rooms",
		},
	)

	// API metrics
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
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreCommit records a canvas commit and its outcome.
func RecordStoreCommit(operation string, duration time.Duration, err error) {
	if err != nil {
		StoreErrors.WithLabelValues(operation).Inc()
		return
	}
	StoreCommits.WithLabelValues(operation).Inc()
	StoreCommitDuration.Observe(duration.Seconds())
}
