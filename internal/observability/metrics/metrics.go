// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "summit"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Meeting metrics
	MeetingsTotal     prometheus.Counter
	MeetingsActive    prometheus.Gauge
	MeetingsSucceeded prometheus.Counter
	MeetingsFailed    prometheus.Counter
	MeetingsSkipped   prometheus.Counter
	MeetingDuration   prometheus.Histogram

	// Keyframe metrics
	KeyframesExtracted prometheus.Counter

	// Inference metrics
	InferenceCalls   *prometheus.CounterVec
	InferenceRetries *prometheus.CounterVec
	InferenceLatency prometheus.Histogram
	TokensProcessed  *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Meeting metrics
		MeetingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_total",
			Help:      "Total number of meetings processed",
		}),
		MeetingsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meetings_active",
			Help:      "Number of meetings currently being processed",
		}),
		MeetingsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_succeeded_total",
			Help:      "Total number of meetings summarized successfully",
		}),
		MeetingsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_failed_total",
			Help:      "Total number of meetings that failed",
		}),
		MeetingsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_skipped_total",
			Help:      "Total number of meetings skipped due to an existing summary",
		}),
		MeetingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "meeting_duration_seconds",
			Help:      "End-to-end processing time per meeting in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Keyframe metrics
		KeyframesExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyframes_extracted_total",
			Help:      "Total number of keyframe images extracted",
		}),

		// Inference metrics
		InferenceCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_calls_total",
			Help:      "Total number of inference invocations",
		}, []string{"outcome"}),
		InferenceRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_retries_total",
			Help:      "Total number of inference retry attempts",
		}, []string{"kind"}),
		InferenceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_latency_seconds",
			Help:      "Inference call latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		TokensProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_processed_total",
			Help:      "Total tokens consumed and produced by inference calls",
		}, []string{"direction"}),
	}
}

// RecordMeetingStart records a meeting entering processing.
func (m *Metrics) RecordMeetingStart() {
	m.MeetingsTotal.Inc()
	m.MeetingsActive.Inc()
}

// RecordMeetingEnd records a meeting reaching a terminal state.
func (m *Metrics) RecordMeetingEnd(success bool, durationSeconds float64) {
	m.MeetingsActive.Dec()
	m.MeetingDuration.Observe(durationSeconds)
	if success {
		m.MeetingsSucceeded.Inc()
	} else {
		m.MeetingsFailed.Inc()
	}
}

// RecordMeetingSkipped records a meeting skipped without processing.
func (m *Metrics) RecordMeetingSkipped() {
	m.MeetingsSkipped.Inc()
}

// RecordKeyframes records extracted keyframe images.
func (m *Metrics) RecordKeyframes(count int) {
	m.KeyframesExtracted.Add(float64(count))
}

// RecordInference records one completed inference invocation.
func (m *Metrics) RecordInference(outcome string, latencySeconds float64, inputTokens, outputTokens int) {
	m.InferenceCalls.WithLabelValues(outcome).Inc()
	m.InferenceLatency.Observe(latencySeconds)
	m.TokensProcessed.WithLabelValues("input").Add(float64(inputTokens))
	m.TokensProcessed.WithLabelValues("output").Add(float64(outputTokens))
}

// RecordRetry records one retry attempt of the given error kind.
func (m *Metrics) RecordRetry(kind string) {
	m.InferenceRetries.WithLabelValues(kind).Inc()
}
