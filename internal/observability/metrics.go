package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guilda"

var (
	SwipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "swipes_total", Help: "Swipe decisions by direction"},
		[]string{"direction"},
	)
	MatchesTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "matches_total", Help: "Total number of matches"})
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "messages_total", Help: "Messages appended by kind"},
		[]string{"kind"},
	)
	CompletionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "completion_errors_total", Help: "Failed completion calls by reason"},
		[]string{"reason"},
	)
	CompletionLatency       = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "completion_latency_seconds", Help: "Responder latency seconds"})
	DemoOrdersTotal         = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "demo_orders_total", Help: "Simulated orders created"})
	VerificationEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "verification_emails_total", Help: "Verification emails by result"},
		[]string{"result"},
	)
	WSSessions = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ws_sessions", Help: "Number of open websocket sessions"})

	LocationUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "location_updates_total", Help: "Profile location writes to the geo index"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
