// Package metrics declares the Prometheus collectors exported by the quiz
// service. Collectors register on the default registry at init and are
// served by promhttp on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Quiz sessions started, by language and difficulty",
		},
		[]string{"language", "difficulty"},
	)

	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Quiz sessions completed, by performance tier",
		},
		[]string{"performance"},
	)

	AnswersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_submitted_total",
			Help: "Answers submitted, by correctness",
		},
		[]string{"correct"},
	)

	EngineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_engine_errors_total",
			Help: "Engine operations that failed, by operation and error kind",
		},
		[]string{"op", "kind"},
	)

	QuestionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_questions_generated_total",
			Help: "Questions produced by the generator, by source (llm or fallback)",
		},
		[]string{"source"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_question_generation_duration_seconds",
			Help:    "Time spent producing one question",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_llm_requests_total",
			Help: "LLM provider calls, by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LLMRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_llm_retries_total",
			Help: "LLM calls retried, by provider and reason",
		},
		[]string{"provider", "reason"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_llm_tokens_total",
			Help: "Tokens consumed by LLM calls, by provider and direction",
		},
		[]string{"provider", "direction"},
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_store_operation_duration_seconds",
			Help:    "Session store operation latency",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"op"},
	)

	SessionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_reaped_total",
			Help: "Expired sessions deleted by the reaper",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_reaper_sweep_duration_seconds",
			Help:    "Duration of one reaper sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	SessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quiz_sessions",
			Help: "Stored sessions by state at the last report",
		},
		[]string{"state"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_http_request_duration_seconds",
			Help:    "HTTP request latency, by method, route and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_events_published_total",
			Help: "Lifecycle events published, by routing key and result",
		},
		[]string{"routing_key", "result"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
