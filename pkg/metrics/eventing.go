package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outbox publisher daemon activity.
type PublisherMetrics struct {
	cycleDuration *prometheus.HistogramVec
	published     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	deadLettered  *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	cycleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_cycle_seconds",
		Help:    "Duration of outbox publish cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Events delivered to Pub/Sub.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed",
		Help: "Publish attempts that failed and will retry.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_dead_lettered",
		Help: "Events moved to the dead letter queue.",
	}, []string{"event_type"})
	reg.MustRegister(cycleDuration, published, failed, deadLettered)
	return &PublisherMetrics{
		cycleDuration: cycleDuration,
		published:     published,
		failed:        failed,
		deadLettered:  deadLettered,
	}
}

// ObserveCycle records the duration of a publish cycle.
func (p *PublisherMetrics) ObserveCycle(outcome string, duration time.Duration) {
	if p == nil || p.cycleDuration == nil {
		return
	}
	p.cycleDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncPublished increments the published counter for the event type.
func (p *PublisherMetrics) IncPublished(eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the retryable-failure counter for the event type.
func (p *PublisherMetrics) IncFailed(eventType string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLettered increments the DLQ counter for the event type.
func (p *PublisherMetrics) IncDeadLettered(eventType string) {
	if p == nil || p.deadLettered == nil {
		return
	}
	p.deadLettered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ProjectorMetrics records marketplace projector activity.
type ProjectorMetrics struct {
	applied    *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	failures   *prometheus.CounterVec
	applyTime  *prometheus.HistogramVec
}

// NewProjectorMetrics registers the projector metrics on the provided registerer.
func NewProjectorMetrics(reg prometheus.Registerer) *ProjectorMetrics {
	if reg == nil {
		return &ProjectorMetrics{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "projector_events_applied",
		Help: "Catalog events applied to the marketplace projection.",
	}, []string{"event_type"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "projector_events_duplicate",
		Help: "Redelivered events skipped by the idempotency ledger.",
	}, []string{"event_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "projector_events_failed",
		Help: "Events that failed to apply and were nacked.",
	}, []string{"event_type"})
	applyTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "projector_apply_seconds",
		Help:    "Time spent applying a single event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(applied, duplicates, failures, applyTime)
	return &ProjectorMetrics{
		applied:    applied,
		duplicates: duplicates,
		failures:   failures,
		applyTime:  applyTime,
	}
}

// IncApplied increments the applied counter for the event type.
func (p *ProjectorMetrics) IncApplied(eventType string) {
	if p == nil || p.applied == nil {
		return
	}
	p.applied.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate increments the duplicate counter for the event type.
func (p *ProjectorMetrics) IncDuplicate(eventType string) {
	if p == nil || p.duplicates == nil {
		return
	}
	p.duplicates.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (p *ProjectorMetrics) IncFailed(eventType string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveApply records how long a single event took to apply.
func (p *ProjectorMetrics) ObserveApply(eventType string, duration time.Duration) {
	if p == nil || p.applyTime == nil {
		return
	}
	p.applyTime.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
