package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm, _ := newTestMetrics(t)

	tests := []struct {
		name   string
		metric string
		labels map[string]string
		read   func() float64
	}{
		{
			name:   "rounds",
			metric: MetricRounds,
			labels: map[string]string{"outcome": "success", "mode": "parallel"},
			read:   func() float64 { return testutil.ToFloat64(pm.rounds.WithLabelValues("success", "parallel")) },
		},
		{
			name:   "method invocations",
			metric: MetricMethodInvocations,
			labels: map[string]string{"method": "method_a", "status": "timeout"},
			read:   func() float64 { return testutil.ToFloat64(pm.methodInvocations.WithLabelValues("method_a", "timeout")) },
		},
		{
			name:   "judge outcome without label",
			metric: MetricJudgeOutcomes,
			labels: nil,
			read:   func() float64 { return testutil.ToFloat64(pm.judgeOutcomes.WithLabelValues("unknown")) },
		},
		{
			name:   "llm tokens",
			metric: MetricLLMTokens,
			labels: map[string]string{"provider": "anthropic", "token_type": "input", "model": "ignored"},
			read:   func() float64 { return testutil.ToFloat64(pm.llmTokens.WithLabelValues("anthropic", "input")) },
		},
		{
			name:   "unrecognized metric",
			metric: "something_else",
			labels: map[string]string{},
			read:   func() float64 { return testutil.ToFloat64(pm.operations.WithLabelValues("something_else", "success")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm.RecordCounter(tt.metric, 2, tt.labels)
			pm.RecordCounter(tt.metric, 1, tt.labels)
			assert.Equal(t, 3.0, tt.read())
		})
	}
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency("method_invocation", 250*time.Millisecond, map[string]string{"method": "method_b"})
	pm.RecordLatency("llm_request", time.Second, map[string]string{"provider": "openai"})
	pm.RecordLatency("round", time.Second, nil)

	assert.Equal(t, 3, testutil.CollectAndCount(pm.latency))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "transensemble_operation_duration_seconds" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPrometheusMetrics_RecordHistogramAndGauge(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordHistogram(MetricFinalScore, 0.77, map[string]string{"method": "method_b", "winner": "true"})
	pm.RecordHistogram(MetricFinalScore, 0.755, map[string]string{"method": "method_a"})
	pm.RecordHistogram("agreement", 0.5, nil)
	assert.Equal(t, 2, testutil.CollectAndCount(pm.finalScore))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.values))

	pm.RecordGauge(MetricRoundCandidates, 4, nil)
	pm.RecordGauge(MetricRoundCandidates, 2, nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.gauges.WithLabelValues(MetricRoundCandidates)))
}

func TestNewPrometheusMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg)
	assert.Panics(t, func() { NewPrometheusMetrics(reg) })
}
