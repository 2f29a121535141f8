package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests by matched route
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_api",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of gateway requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "content_api",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Gateway request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	CredentialFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_api",
			Subsystem: "gateway",
			Name:      "credential_failures_total",
			Help:      "Requests rejected for a missing or invalid API key",
		},
		[]string{"reason"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "content_api",
			Subsystem: "gateway",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)

	IdempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "content_api",
			Subsystem: "gateway",
			Name:      "idempotent_replays_total",
			Help:      "Responses replayed for a repeated Idempotency-Key",
		},
	)

	// Generations by content kind and strategy/provider
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_api",
			Subsystem: "generator",
			Name:      "generations_total",
			Help:      "Total text generations",
		},
		[]string{"kind", "api_used"},
	)

	LedgerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "content_api",
			Subsystem: "ledger",
			Name:      "write_failures_total",
			Help:      "Usage ledger entries that could not be written",
		},
	)
)
