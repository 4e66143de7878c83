package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmwall_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warmwall_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AIUpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmwall_ai_upstream_requests_total",
			Help: "Calls to the chat-completion upstream",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, error, rejected
	)

	AICircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warmwall_ai_circuit_state",
			Help: "AI upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmwall_background_tasks_total",
			Help: "Best-effort background tasks",
		},
		[]string{"task", "outcome"}, // outcome: ok, error, dropped
	)

	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmwall_media_uploads_total",
			Help: "Media uploads by category",
		},
		[]string{"category", "outcome"},
	)
)
