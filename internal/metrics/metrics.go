// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package metrics defines the Prometheus instrumentation for Mapcase:
// API latency and throughput, record store query performance, tile cache
// efficiency, and audit write visibility.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapcase_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapcase_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Record store metrics.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapcase_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RecordMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapcase_record_mutations_total",
			Help: "Total number of record mutations by action",
		},
		[]string{"action"},
	)

	// Tile query cache metrics.
	TileQueriesCached = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapcase_tile_queries_cached_total",
			Help: "Total number of tile queries stored under a token",
		},
	)

	TileTokenHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapcase_tile_token_hits_total",
			Help: "Total number of tile token fetches that found a query",
		},
	)

	TileTokenMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapcase_tile_token_misses_total",
			Help: "Total number of tile token fetches for unknown or expired tokens",
		},
	)

	TileCacheFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapcase_tile_cache_failures_total",
			Help: "Total number of tile cache backend failures (distinct from misses)",
		},
	)

	TileCacheBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapcase_tile_cache_breaker_transitions_total",
			Help: "Circuit breaker state transitions for the tile cache",
		},
		[]string{"from", "to"},
	)

	// Audit metrics. A nonzero failure count is an alerting condition:
	// it means mutations succeeded whose audit entries were lost.
	AuditEntriesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapcase_audit_entries_written_total",
			Help: "Total number of audit log entries written by action",
		},
		[]string{"action"},
	)

	AuditAppendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapcase_audit_append_failures_total",
			Help: "Total number of audit appends that failed after a successful mutation",
		},
	)

	// Websocket dashboard feed metrics.
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapcase_websocket_clients",
			Help: "Current number of connected dashboard websocket clients",
		},
	)
)
