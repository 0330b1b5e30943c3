// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMCallDuration tracks one provider round trip.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM provider call duration",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// LLMFallbacksTotal counts switches from the primary to the secondary provider.
	LLMFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallbacks_total",
			Help: "Primary provider failures that triggered the secondary provider",
		},
		[]string{"from", "to"},
	)

	// ToolDispatchTotal counts tool executions per outcome kind.
	ToolDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_dispatch_total",
			Help: "Tool calls executed by the dispatcher",
		},
		[]string{"tool", "outcome"},
	)

	// GroundingRejectsTotal counts replies rejected for ungrounded prices.
	GroundingRejectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grounding_rejects_total",
			Help: "Assistant replies rejected for stating prices absent from tool results",
		},
	)

	// ReservationsTotal counts reservation writes.
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Reservation writes by action",
		},
		[]string{"action"},
	)

	// SessionsActive tracks conversations held in memory.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of chat sessions held in memory",
		},
	)

	// MessagesTotal tracks total messages appended to conversations.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total conversation messages",
		},
		[]string{"platform", "role"},
	)

	// NATSPublishFailures tracks transcript events that could not be published.
	NATSPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publish_failures_total",
			Help: "Transcript publishes that failed",
		},
		[]string{"subject"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for one provider call.
func RecordLLMCall(provider, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(provider, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordFallback records a primary to secondary provider switch.
func RecordFallback(from, to string) {
	LLMFallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordToolDispatch records one tool execution. outcome is "ok" or an error kind.
func RecordToolDispatch(tool, outcome string) {
	ToolDispatchTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordReservation records a reservation write ("created", "updated", "cancelled").
func RecordReservation(action string) {
	ReservationsTotal.WithLabelValues(action).Inc()
}
