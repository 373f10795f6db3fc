// Package middleware provides the cross-cutting concerns of the engine:
// Prometheus metrics and the OpenTelemetry round observer.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// Metric names understood by PrometheusMetrics. Anything else is counted
// under a generic operations counter.
const (
	MetricRounds            = "rounds_total"
	MetricMethodInvocations = "method_invocations_total"
	MetricGateDecisions     = "gate_decisions_total"
	MetricJudgeOutcomes     = "judge_outcomes_total"
	MetricCacheLookups      = "cache_lookups_total"
	MetricLLMRequests       = "llm_requests_total"
	MetricLLMTokens         = "llm_tokens_total"
	MetricFinalScore        = "final_score"
	MetricRoundCandidates   = "round_candidates"
)

const namespace = "transensemble"

// PrometheusMetrics implements ports.MetricsCollector with Prometheus
// collectors registered on a single registry.
type PrometheusMetrics struct {
	rounds            *prometheus.CounterVec
	methodInvocations *prometheus.CounterVec
	gateDecisions     *prometheus.CounterVec
	judgeOutcomes     *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	llmRequests       *prometheus.CounterVec
	llmTokens         *prometheus.CounterVec
	operations        *prometheus.CounterVec
	latency           *prometheus.HistogramVec
	finalScore        *prometheus.HistogramVec
	values            *prometheus.HistogramVec
	gauges            *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the engine metrics on reg. A nil reg
// selects the default registry, which is what the CLI /metrics endpoint
// serves. Registering twice on the same registry panics, so tests use a
// fresh prometheus.NewRegistry().
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		rounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricRounds,
			Help:      "Evaluation rounds by outcome and operating mode.",
		}, []string{"outcome", "mode"}),
		methodInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricMethodInvocations,
			Help:      "Translation method invocations by method and status.",
		}, []string{"method", "status"}),
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricGateDecisions,
			Help:      "Confidence gate decisions by policy.",
		}, []string{"policy", "decision"}),
		judgeOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricJudgeOutcomes,
			Help:      "Judge arbitration outcomes.",
		}, []string{"outcome"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricCacheLookups,
			Help:      "Translation cache lookups by result.",
		}, []string{"result"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricLLMRequests,
			Help:      "LLM completion requests by provider, model and status.",
		}, []string{"provider", "model", "status"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricLLMTokens,
			Help:      "LLM tokens consumed by provider and direction.",
		}, []string{"provider", "token_type"}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Other counted operations.",
		}, []string{"metric", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of rounds, method invocations, judge calls and LLM requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation", "target"}),
		finalScore: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricFinalScore,
			Help:      "Final score of each candidate.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"method", "winner"}),
		values: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "values",
			Help:      "Other recorded distributions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
		gauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current values such as the candidate count of the last round.",
		}, []string{"metric"}),
	}
}

// label returns labels[key], or "unknown" when it is absent or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// target picks the most specific subject of a latency sample.
func target(labels map[string]string) string {
	for _, key := range []string{"method", "provider"} {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return "unknown"
}

// RecordLatency records a duration in seconds.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.latency.WithLabelValues(operation, target(labels)).Observe(duration.Seconds())
}

// RecordCounter routes known metrics to their vectors.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricRounds:
		pm.rounds.WithLabelValues(label(labels, "outcome"), label(labels, "mode")).Add(value)
	case MetricMethodInvocations:
		pm.methodInvocations.WithLabelValues(label(labels, "method"), label(labels, "status")).Add(value)
	case MetricGateDecisions:
		pm.gateDecisions.WithLabelValues(label(labels, "policy"), label(labels, "decision")).Add(value)
	case MetricJudgeOutcomes:
		pm.judgeOutcomes.WithLabelValues(label(labels, "outcome")).Add(value)
	case MetricCacheLookups:
		pm.cacheLookups.WithLabelValues(label(labels, "result")).Add(value)
	case MetricLLMRequests:
		pm.llmRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case MetricLLMTokens:
		pm.llmTokens.WithLabelValues(label(labels, "provider"), label(labels, "token_type")).Add(value)
	default:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.operations.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge sets a gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a sample. Final scores get their own histogram
// with a method label; everything else shares a generic one.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == MetricFinalScore {
		winner := labels["winner"]
		if winner == "" {
			winner = "false"
		}
		pm.finalScore.WithLabelValues(label(labels, "method"), winner).Observe(value)
		return
	}
	pm.values.WithLabelValues(metric).Observe(value)
}
