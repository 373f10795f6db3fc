package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// passthrough forwards the identity methods of CoreLLM to the wrapped value
// so each middleware only implements DoRequest.
type passthrough struct{ next CoreLLM }

func (p passthrough) GetModel() string { return p.next.GetModel() }
func (p passthrough) Provider() string { return p.next.Provider() }

// coreFunc adapts a DoRequest function into a CoreLLM sharing next's identity.
type coreFunc struct {
	passthrough
	do func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error)
}

func (c coreFunc) DoRequest(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
	return c.do(ctx, prompt)
}

func wrap(next CoreLLM, do func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error)) CoreLLM {
	return coreFunc{passthrough: passthrough{next: next}, do: do}
}

// RetryMiddleware retries transient failures with exponential backoff and
// jitter. Authentication, bad request and other non-retryable provider
// errors are returned at once. A per-attempt timeout from an inner
// TimeoutMiddleware is retried while the caller's context is still live.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return wrap(next, func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
			var lastErr error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				out, err := next.DoRequest(ctx, prompt)
				if err == nil {
					return out, nil
				}
				lastErr = err

				if ctx.Err() != nil || attempt == maxRetries || !shouldRetry(err) {
					break
				}

				select {
				case <-ctx.Done():
					return ports.Completion{}, ctx.Err()
				case <-time.After(Backoff(attempt, baseDelay, maxDelay)):
				}
			}
			return ports.Completion{}, lastErr
		})
	}
}

func shouldRetry(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || IsRetryable(err)
}

// Backoff returns base·2^attempt, jittered by -25%..+25% and capped at ceiling.
func Backoff(attempt int, base, ceiling time.Duration) time.Duration {
	attempt = min(max(attempt, 0), 30)
	delay := base << uint(attempt)
	if delay <= 0 || delay > ceiling {
		delay = ceiling
	}
	delay += time.Duration((rand.Float64() - 0.5) * 0.5 * float64(delay))
	return min(delay, ceiling)
}

// RateLimitMiddleware limits requests with a token bucket shared by every
// client built from the returned middleware.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next CoreLLM) CoreLLM {
		return wrap(next, func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
			if err := limiter.Wait(ctx); err != nil {
				return ports.Completion{}, fmt.Errorf("rate limit: %w", err)
			}
			return next.DoRequest(ctx, prompt)
		})
	}
}

// TimeoutMiddleware bounds each request.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return wrap(next, func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next.DoRequest(ctx, prompt)
		})
	}
}

// MetricsMiddleware records latency, request and token counters.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return wrap(next, func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
			start := time.Now()
			out, err := next.DoRequest(ctx, prompt)

			labels := map[string]string{
				"provider": next.Provider(),
				"model":    next.GetModel(),
				"status":   requestStatus(ctx, err),
			}
			collector.RecordLatency("llm_request", time.Since(start), labels)
			collector.RecordCounter("llm_requests_total", 1, labels)
			if err == nil {
				collector.RecordCounter("llm_tokens_total", float64(out.TokensIn), withLabel(labels, "token_type", "input"))
				collector.RecordCounter("llm_tokens_total", float64(out.TokensOut), withLabel(labels, "token_type", "output"))
			}
			return out, err
		})
	}
}

func requestStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}

func withLabel(labels map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for key, val := range labels {
		out[key] = val
	}
	out[k] = v
	return out
}

const tracerName = "github.com/Antonio-Ardigo/Remote-Project/infrastructure/llm"

// TracingMiddleware wraps each request in a client span carrying the
// provider, model and token usage.
func TracingMiddleware() Middleware {
	tracer := otel.Tracer(tracerName)
	return func(next CoreLLM) CoreLLM {
		return wrap(next, func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
			ctx, span := tracer.Start(ctx, "llm.complete",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("llm.provider", next.Provider()),
					attribute.String("llm.model", next.GetModel()),
					attribute.Int("llm.max_tokens", prompt.MaxTokens),
				))
			defer span.End()

			out, err := next.DoRequest(ctx, prompt)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return out, err
			}
			span.SetAttributes(
				attribute.Int("llm.tokens_in", out.TokensIn),
				attribute.Int("llm.tokens_out", out.TokensOut),
				attribute.String("llm.stop_reason", out.StopReason),
			)
			return out, nil
		})
	}
}
