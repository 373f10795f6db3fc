package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// RoundObserver is notified at each stage of an evaluation round. The
// context returned by RoundStarted must be passed to every later call of
// the same round.
type RoundObserver interface {
	RoundStarted(ctx context.Context, roundID, mode string, methods []domain.Method) context.Context
	CacheLookup(ctx context.Context, method domain.Method, hit bool)
	MethodFinished(ctx context.Context, method domain.Method, elapsed time.Duration, cached bool, err error)
	GateDecided(ctx context.Context, policy domain.ThresholdPolicy, primary domain.Method, composite float64, ensemble bool)
	JudgeFinished(ctx context.Context, judged bool, reason string, elapsed time.Duration)
	RoundFinished(ctx context.Context, mode string, sel *domain.Selection, elapsed time.Duration, err error)
}

// NopRoundObserver ignores every notification.
type NopRoundObserver struct{}

// RoundStarted returns ctx unchanged.
func (NopRoundObserver) RoundStarted(ctx context.Context, _, _ string, _ []domain.Method) context.Context {
	return ctx
}

// CacheLookup does nothing.
func (NopRoundObserver) CacheLookup(context.Context, domain.Method, bool) {}

// MethodFinished does nothing.
func (NopRoundObserver) MethodFinished(context.Context, domain.Method, time.Duration, bool, error) {}

// GateDecided does nothing.
func (NopRoundObserver) GateDecided(context.Context, domain.ThresholdPolicy, domain.Method, float64, bool) {}

// JudgeFinished does nothing.
func (NopRoundObserver) JudgeFinished(context.Context, bool, string, time.Duration) {}

// RoundFinished does nothing.
func (NopRoundObserver) RoundFinished(context.Context, string, *domain.Selection, time.Duration, error) {}

const observerTracer = "github.com/Antonio-Ardigo/Remote-Project/engine"

// OTelRoundObserver traces each round as one span with an event per stage
// and mirrors the stages into a MetricsCollector.
type OTelRoundObserver struct {
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

var _ RoundObserver = (*OTelRoundObserver)(nil)

// NewOTelRoundObserver creates an observer. metrics may be nil.
func NewOTelRoundObserver(metrics ports.MetricsCollector) *OTelRoundObserver {
	return &OTelRoundObserver{metrics: metrics, tracer: otel.Tracer(observerTracer)}
}

// RoundStarted opens the round span.
func (o *OTelRoundObserver) RoundStarted(ctx context.Context, roundID, mode string, methods []domain.Method) context.Context {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	ctx, _ = o.tracer.Start(ctx, "engine.round", trace.WithAttributes(
		attribute.String("round.id", roundID),
		attribute.String("round.mode", mode),
		attribute.StringSlice("round.methods", names),
	))
	return ctx
}

// MethodFinished records one method invocation.
func (o *OTelRoundObserver) MethodFinished(ctx context.Context, method domain.Method, elapsed time.Duration, cached bool, err error) {
	status := "success"
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	case cached:
		status = "cached"
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method.String()),
		attribute.String("status", status),
		attribute.Int64("latency_ms", elapsed.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("method.finished", trace.WithAttributes(attrs...))

	if o.metrics == nil {
		return
	}
	labels := map[string]string{"method": method.String(), "status": status}
	o.metrics.RecordCounter(MetricMethodInvocations, 1, labels)
	if !cached {
		o.metrics.RecordLatency("method_invocation", elapsed, labels)
	}
}

// CacheLookup records a translation cache lookup. The engine reports it only
// when a cache is configured.
func (o *OTelRoundObserver) CacheLookup(ctx context.Context, method domain.Method, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	trace.SpanFromContext(ctx).AddEvent("cache.lookup", trace.WithAttributes(
		attribute.String("method", method.String()),
		attribute.String("result", result),
	))
	if o.metrics != nil {
		o.metrics.RecordCounter(MetricCacheLookups, 1, map[string]string{"result": result})
	}
}

// GateDecided records the confidence gate outcome.
func (o *OTelRoundObserver) GateDecided(ctx context.Context, policy domain.ThresholdPolicy, primary domain.Method, composite float64, ensemble bool) {
	trace.SpanFromContext(ctx).AddEvent("gate.decided", trace.WithAttributes(
		attribute.String("policy", string(policy)),
		attribute.String("primary", primary.String()),
		attribute.Float64("composite", composite),
		attribute.Bool("ensemble", ensemble),
	))
	if o.metrics != nil {
		decision := "accept_primary"
		if ensemble {
			decision = "ensemble"
		}
		o.metrics.RecordCounter(MetricGateDecisions, 1, map[string]string{"policy": string(policy), "decision": decision})
	}
}

// JudgeFinished records an arbitration attempt.
func (o *OTelRoundObserver) JudgeFinished(ctx context.Context, judged bool, reason string, elapsed time.Duration) {
	outcome := "judged"
	if !judged {
		outcome = "unavailable"
	}
	trace.SpanFromContext(ctx).AddEvent("judge.finished", trace.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
		attribute.Int64("latency_ms", elapsed.Milliseconds()),
	))
	if o.metrics != nil {
		o.metrics.RecordCounter(MetricJudgeOutcomes, 1, map[string]string{"outcome": outcome})
		o.metrics.RecordLatency("judge", elapsed, map[string]string{"method": "judge"})
	}
}

// RoundFinished closes the round span.
func (o *OTelRoundObserver) RoundFinished(ctx context.Context, mode string, sel *domain.Selection, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	outcome := "success"
	if err != nil {
		outcome = "error"
		if errors.Is(err, domain.ErrNoCandidates) {
			outcome = "no_candidates"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if mode == "" {
		mode = "unknown"
	}
	if sel != nil {
		span.SetAttributes(
			attribute.String("round.winner", sel.Winner.String()),
			attribute.Bool("round.ensemble", sel.Ensemble),
			attribute.Bool("round.judged", sel.Judged),
			attribute.Int("round.candidates", len(sel.Candidates)),
			attribute.Int("round.failures", len(sel.Failures)),
		)
	}

	if o.metrics == nil {
		return
	}
	o.metrics.RecordCounter(MetricRounds, 1, map[string]string{"outcome": outcome, "mode": mode})
	o.metrics.RecordLatency("round", elapsed, map[string]string{"method": "round"})
	if sel == nil {
		return
	}
	o.metrics.RecordGauge(MetricRoundCandidates, float64(len(sel.Candidates)), nil)
	for _, b := range sel.Candidates {
		o.metrics.RecordHistogram(MetricFinalScore, b.FinalScore, map[string]string{
			"method": b.Method.String(),
			"winner": strconv.FormatBool(b.Method == sel.Winner),
		})
	}
}
