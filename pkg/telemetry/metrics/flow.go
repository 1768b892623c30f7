// Package metrics exposes Prometheus metrics for gate checks and
// orchestration flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FlowMetrics tracks gate and flow outcomes.
//
// Metrics:
//   - warden_gate_checks_total: gate checks by stage and effect
//   - warden_gate_check_duration_seconds: gate evaluation duration by stage
//   - warden_flows_total: completed flows by final status
//   - warden_classification_duration_seconds: classifier call duration
//
// All record methods are safe on a nil receiver, so callers can carry a
// nil *FlowMetrics when metrics are disabled.
type FlowMetrics struct {
	registry *prometheus.Registry

	gateChecksTotal        *prometheus.CounterVec
	gateCheckDuration      *prometheus.HistogramVec
	flowsTotal             *prometheus.CounterVec
	classificationDuration prometheus.Histogram
}

// NewFlowMetrics creates and registers flow metrics on a fresh registry.
func NewFlowMetrics(namespace string) *FlowMetrics {
	registry := prometheus.NewRegistry()

	m := &FlowMetrics{
		registry: registry,

		gateChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_checks_total",
				Help:      "Total number of policy gate checks",
			},
			[]string{"stage", "effect"},
		),

		gateCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gate_check_duration_seconds",
				Help:      "Duration of policy gate checks in seconds",
				// Gate checks are in-memory and should stay well under a millisecond.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 12),
			},
			[]string{"stage"},
		),

		flowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flows_total",
				Help:      "Total number of completed orchestration flows by final status",
			},
			[]string{"status"},
		),

		classificationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classification_duration_seconds",
				Help:      "Duration of intent classification in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
	}

	registry.MustRegister(
		m.gateChecksTotal,
		m.gateCheckDuration,
		m.flowsTotal,
		m.classificationDuration,
	)

	return m
}

// RecordGateCheck records one gate check.
func (m *FlowMetrics) RecordGateCheck(stage string, allowed bool, duration time.Duration) {
	if m == nil {
		return
	}
	effect := "deny"
	if allowed {
		effect = "allow"
	}
	m.gateChecksTotal.WithLabelValues(stage, effect).Inc()
	m.gateCheckDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordFlow records a completed flow.
func (m *FlowMetrics) RecordFlow(status string) {
	if m == nil {
		return
	}
	m.flowsTotal.WithLabelValues(status).Inc()
}

// RecordClassification records one classifier call.
func (m *FlowMetrics) RecordClassification(duration time.Duration) {
	if m == nil {
		return
	}
	m.classificationDuration.Observe(duration.Seconds())
}

// Handler returns an HTTP handler serving the metrics in Prometheus
// exposition format.
func (m *FlowMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (for tests and custom
// exposition).
func (m *FlowMetrics) Registry() *prometheus.Registry {
	return m.registry
}
