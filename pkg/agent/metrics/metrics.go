// Package metrics exposes Prometheus counters for the agent worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive prometheus.Gauge

	SessionsStarted *prometheus.CounterVec
	SessionsEnded   *prometheus.CounterVec

	ToolInvocations *prometheus.CounterVec

	SessionDuration *prometheus.HistogramVec

	ControlDropsTotal    *prometheus.CounterVec
	PersistFailuresTotal *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vocalize"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of active voice sessions",
		},
	)

	sessionsStarted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total sessions started",
		},
		[]string{"call_type"},
	)

	sessionsEnded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total sessions ended",
		},
		[]string{"call_type", "reason"},
	)

	toolInvocations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total tool invocations by the model",
		},
		[]string{"tool"},
	)

	sessionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Session duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"call_type"},
	)

	controlDropsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_drops_total",
			Help:      "Control-channel payloads dropped",
		},
		[]string{"reason"},
	)

	persistFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Conversation persistence failures",
		},
		[]string{"sink"},
	)

	registry.MustRegister(
		sessionsActive,
		sessionsStarted,
		sessionsEnded,
		toolInvocations,
		sessionDuration,
		controlDropsTotal,
		persistFailuresTotal,
	)

	return &Metrics{
		registry:             registry,
		SessionsActive:       sessionsActive,
		SessionsStarted:      sessionsStarted,
		SessionsEnded:        sessionsEnded,
		ToolInvocations:      toolInvocations,
		SessionDuration:      sessionDuration,
		ControlDropsTotal:    controlDropsTotal,
		PersistFailuresTotal: persistFailuresTotal,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSessionStart records a session starting.
func (m *Metrics) RecordSessionStart(callType string) {
	m.SessionsActive.Inc()
	m.SessionsStarted.WithLabelValues(callType).Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(callType, reason string, seconds float64) {
	m.SessionsActive.Dec()
	m.SessionsEnded.WithLabelValues(callType, reason).Inc()
	m.SessionDuration.WithLabelValues(callType).Observe(seconds)
}

// RecordToolInvocation records one tool call.
func (m *Metrics) RecordToolInvocation(tool string) {
	m.ToolInvocations.WithLabelValues(tool).Inc()
}

// RecordControlDrop records a dropped control-channel payload.
func (m *Metrics) RecordControlDrop(reason string) {
	m.ControlDropsTotal.WithLabelValues(reason).Inc()
}

// RecordPersistFailure records a failed conversation save.
func (m *Metrics) RecordPersistFailure(sink string) {
	m.PersistFailuresTotal.WithLabelValues(sink).Inc()
}
