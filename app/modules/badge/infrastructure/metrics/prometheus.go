package badgemetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rota_badges"

type prometheusMetrics struct {
	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	awards           *prometheus.CounterVec
	signals          *prometheus.CounterVec
	channelAttempts  *prometheus.CounterVec
	channelFallbacks *prometheus.CounterVec
}

// NewPrometheus registers the badge collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (BadgeMetrics, error) {
	m := &prometheusMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "service", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "awards_total",
			Help:      "Award insert attempts by badge type and result.",
		}, []string{"badge_type", "result"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_unavailable_total",
			Help:      "Eligibility signals skipped because they could not be read.",
		}, []string{"signal"}),
		channelAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_attempts_total",
			Help:      "Data channel attempts by operation, channel and outcome.",
		}, []string{"operation", "channel", "outcome"}),
		channelFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_fallbacks_total",
			Help:      "Reads retried on a fallback channel.",
		}, []string{"operation", "from", "to"}),
	}

	for _, c := range []prometheus.Collector{
		m.operations, m.operationLatency, m.awards, m.signals, m.channelAttempts, m.channelFallbacks,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "attempt").Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "success").Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "failure").Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.operationLatency.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordAwardGranted(_ context.Context, badgeType string) {
	m.awards.WithLabelValues(badgeType, "granted").Inc()
}

func (m *prometheusMetrics) RecordDuplicateIgnored(_ context.Context, badgeType string) {
	m.awards.WithLabelValues(badgeType, "duplicate").Inc()
}

func (m *prometheusMetrics) RecordAwardFailure(_ context.Context, badgeType string) {
	m.awards.WithLabelValues(badgeType, "failed").Inc()
}

func (m *prometheusMetrics) RecordSignalUnavailable(_ context.Context, signal string) {
	m.signals.WithLabelValues(signal).Inc()
}

func (m *prometheusMetrics) RecordChannelAttempt(_ context.Context, operation, channel, outcome string) {
	m.channelAttempts.WithLabelValues(operation, channel, outcome).Inc()
}

func (m *prometheusMetrics) RecordChannelFallback(_ context.Context, operation, from, to string) {
	m.channelFallbacks.WithLabelValues(operation, from, to).Inc()
}
