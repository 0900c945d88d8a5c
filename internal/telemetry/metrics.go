/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibedeck_api_requests_total",
		Help: "Total number of API requests",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes request latency by method, endpoint and status.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vibedeck_api_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibedeck_api_active_connections",
		Help: "Number of in-flight API requests",
	})

	// DatabaseQueryDuration observes gorm operation latency.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vibedeck_database_query_duration_seconds",
		Help:    "Database query duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts gorm operation errors.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibedeck_database_errors_total",
		Help: "Total number of database errors",
	}, []string{"operation", "reason"})

	// DatabaseConnectionsActive tracks open database connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibedeck_database_connections_active",
		Help: "Number of open database connections",
	})

	// RecommendationsTotal counts recommendation requests by outcome.
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibedeck_recommendations_total",
		Help: "Total number of recommendation computations",
	}, []string{"outcome"})

	// SpeakerCommandsTotal counts vendor control API commands by command and result.
	SpeakerCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibedeck_speaker_commands_total",
		Help: "Total number of vendor speaker commands",
	}, []string{"command", "result"})

	// TokenRefreshesTotal counts OAuth token refresh attempts by result.
	TokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibedeck_token_refreshes_total",
		Help: "Total number of OAuth token refresh attempts",
	}, []string{"result"})

	// CacheOperationsTotal counts Redis cache hits and misses by key class.
	CacheOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibedeck_cache_operations_total",
		Help: "Total number of cache operations",
	}, []string{"key_class", "result"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
