// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration is keyed by chi route template, not raw path.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	// ObserversActive tracks connected dashboard observers.
	ObserversActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_observers_active",
			Help: "Number of connected dashboard observers",
		},
	)

	// ObserversDropped counts observers removed after a failed send.
	ObserversDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_observers_dropped_total",
			Help: "Observers dropped because delivery failed",
		},
		[]string{"reason"},
	)

	// EventsEmitted counts broadcast envelopes by type.
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_events_emitted_total",
			Help: "Event envelopes broadcast to observers",
		},
		[]string{"type"},
	)

	// TransitionsTotal counts registry transitions.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_transitions_total",
			Help: "Registry transitions by kind and channel",
		},
		[]string{"kind", "channel"},
	)

	// ActiveConversations mirrors the registry size.
	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_active_conversations",
			Help: "Conversations currently held by the registry",
		},
	)

	// IngestFailures counts dropped ingress payloads.
	IngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_ingest_failures_total",
			Help: "Ingress payloads dropped during normalization",
		},
		[]string{"source"},
	)

	// LLMDuration tracks assistant completion latency.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_llm_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider", "purpose", "status"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_llm_tokens_total",
			Help: "Prompt and completion tokens by provider",
		},
		[]string{"provider", "direction"},
	)

	// TapFailures counts envelopes the NATS event tap could not publish.
	TapFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_tap_failures_total",
			Help: "Event envelopes the NATS tap failed to publish",
		},
		[]string{"reason"},
	)

	// NATSIngested counts updates received from the NATS ingest stream.
	NATSIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_ingest_messages_total",
			Help: "Messages consumed from the NATS ingest stream",
		},
		[]string{"result"},
	)
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, route, code string, seconds float64) {
	RequestDuration.WithLabelValues(method, route, code).Observe(seconds)
	RequestsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordLLM records metrics for an LLM completion.
func RecordLLM(provider, purpose, status string, duration float64, tokensIn, tokensOut int) {
	LLMDuration.WithLabelValues(provider, purpose, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// IncrementObservers increments the connected observer count.
func IncrementObservers() {
	ObserversActive.Inc()
}

// DecrementObservers decrements the connected observer count.
func DecrementObservers() {
	ObserversActive.Dec()
}
