package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics records outcomes for event consumers.
type ConsumerMetrics struct {
	duration *prometheus.HistogramVec
	handled  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_handle_duration_seconds",
		Help:    "Duration of consumer event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer", "event_type"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_events_handled",
		Help: "Events handled to completion.",
	}, []string{"consumer", "event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_events_failed",
		Help: "Events whose handler returned an error.",
	}, []string{"consumer", "event_type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_events_skipped",
		Help: "Events acked without handling, duplicates included.",
	}, []string{"consumer", "event_type"})
	reg.MustRegister(duration, handled, failed, skipped)
	return &ConsumerMetrics{
		duration: duration,
		handled:  handled,
		failed:   failed,
		skipped:  skipped,
	}
}

// ObserveDuration records handler latency for the consumer and event type.
func (c *ConsumerMetrics) ObserveDuration(consumer, eventType string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncHandled increments the handled counter.
func (c *ConsumerMetrics) IncHandled(consumer, eventType string) {
	if c == nil || c.handled == nil {
		return
	}
	c.handled.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter.
func (c *ConsumerMetrics) IncFailed(consumer, eventType string) {
	if c == nil || c.failed == nil {
		return
	}
	c.failed.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType)).Inc()
}

// IncSkipped increments the skipped counter.
func (c *ConsumerMetrics) IncSkipped(consumer, eventType string) {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
