package ports

import (
	"context"
	"time"
)

// Prompt is a single completion request to a language model.
type Prompt struct {
	// System carries instructions that frame the conversation.
	// Providers without a system role prepend it to the user message.
	System string

	// User is the user message.
	User string

	// MaxTokens limits the completion length. Zero selects the provider default.
	MaxTokens int

	// Temperature controls sampling. Nil selects the provider default.
	Temperature *float64

	// JSONMode asks providers that support it for a JSON object response.
	JSONMode bool
}

// Completion is the result of a Prompt.
type Completion struct {
	// Text is the generated content.
	Text string

	// StopReason is the provider's reason for ending generation, normalized
	// to lower case (for example "end_turn", "stop", "max_tokens", "length").
	StopReason string

	// TokensIn is the prompt token count reported or estimated.
	TokensIn int

	// TokensOut is the completion token count reported or estimated.
	TokensOut int

	// Model is the model that served the request.
	Model string
}

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// The implementation should handle rate limiting, retries, and timeouts.
	Complete(ctx context.Context, prompt Prompt) (Completion, error)

	// GetModel returns the model identifier being used by this client.
	// This is useful for logging and debugging purposes.
	GetModel() string
}

// CacheStore defines the interface for caching translation candidates.
// Implementations could use Redis or in-memory storage.
// Caching is optional but avoids paying twice for identical source text.
type CacheStore interface {
	// Get retrieves a cached value by key.
	// Returns the value and true if found, or nil and false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with an expiration time.
	// A zero duration means the item doesn't expire.
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like cache hits/misses, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like final scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
