package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Orchestration metrics
var (
	OrchestrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corre_orchestrations_total",
		Help: "Transaction orchestrations by operation and outcome",
	}, []string{"operation", "outcome"})

	OrchestrationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corre_orchestration_duration_seconds",
		Help:    "End-to-end duration of transaction orchestrations",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"operation"})

	ConfirmationPolls = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "corre_confirmation_polls",
		Help:    "Number of status polls needed to confirm a transaction",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	})
)

// Balance aggregation metrics
var (
	BalanceRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corre_balance_refresh_total",
		Help: "Balance source refreshes by source and outcome",
	}, []string{"source", "outcome"})

	BalanceRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corre_balance_refresh_duration_seconds",
		Help:    "Duration of balance source refreshes",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
)

// Cache metrics
var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corre_cache_hits_total",
		Help: "Cache hits by logical key prefix",
	}, []string{"key"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corre_cache_misses_total",
		Help: "Cache misses by logical key prefix and reason",
	}, []string{"key", "reason"})
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corre_http_requests_total",
		Help: "HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corre_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Connectivity metrics
var (
	ConnectivityTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corre_connectivity_transitions_total",
		Help: "Online/offline transitions observed by the connectivity monitor",
	}, []string{"to"})
)
