package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_analyst_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"channel"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_analyst_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	IntentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_analyst_intent_total",
			Help: "Intents served, by outcome",
		},
		[]string{"intent", "status"},
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_analyst_fundamentals_fetch_duration_seconds",
			Help:    "Fundamentals page fetch duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"status"},
	)

	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_analyst_fundamentals_fetch_failures_total",
			Help: "Fundamentals fetch failures by reason",
		},
		[]string{"reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "research_analyst_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	RateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_analyst_ratelimit_decisions_total",
			Help: "Rate limiter decisions by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	TranscriptsAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_analyst_transcripts_analyzed_total",
			Help: "Transcripts analyzed, by resulting sentiment",
		},
		[]string{"sentiment"},
	)

	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_analyst_exports_total",
			Help: "Workbooks exported",
		},
		[]string{"channel"},
	)

	ExportBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_analyst_export_bytes",
			Help:    "Size of exported workbooks",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 8),
		},
	)

	WebsocketSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_analyst_websocket_sessions",
			Help: "Open chat websocket connections",
		},
	)

	SessionMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_analyst_session_messages_total",
			Help: "Chat messages appended to session logs",
		},
		[]string{"role"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(QueryDuration)
		prometheus.MustRegister(QueryTotal)
		prometheus.MustRegister(IntentTotal)
		prometheus.MustRegister(FetchDuration)
		prometheus.MustRegister(FetchFailures)
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(RateLimitDecisions)
		prometheus.MustRegister(TranscriptsAnalyzed)
		prometheus.MustRegister(ExportsTotal)
		prometheus.MustRegister(ExportBytes)
		prometheus.MustRegister(WebsocketSessions)
		prometheus.MustRegister(SessionMessages)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
