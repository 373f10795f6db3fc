// Package llm provides a provider-agnostic completion client used by the
// LLM-backed translation methods and by the judge.
//
// Each provider (Anthropic, OpenAI, Google Gemini) implements CoreLLM. A
// Client wraps a CoreLLM in a middleware chain that adds retries, rate
// limiting, circuit breaking, timeouts, metrics and tracing without the
// providers knowing about any of it.
//
// Basic usage:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-sonnet-4-20250514",
//	    Middleware: []llm.Middleware{
//	        llm.RetryMiddleware(3, time.Second, 30*time.Second),
//	        llm.RateLimitMiddleware(2, 4),
//	    },
//	})
//	out, err := client.Complete(ctx, ports.Prompt{User: "..."})
package llm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// Default request limits shared by all providers.
const (
	DefaultMaxTokens = 4096
	DefaultTimeout   = 120 * time.Second
)

// CoreLLM is the minimal contract a provider implements. Middleware wraps
// CoreLLM values, so every cross-cutting concern sees the same request and
// response shapes.
type CoreLLM interface {
	// DoRequest sends prompt to the provider and returns the completion.
	DoRequest(ctx context.Context, prompt ports.Prompt) (ports.Completion, error)

	// GetModel returns the model requests are sent to.
	GetModel() string

	// Provider returns the provider name, e.g. "anthropic".
	Provider() string
}

// ClientConfig holds everything needed to build a Client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the provider model. Empty selects the provider default.
	Model string

	// BaseURL overrides the provider endpoint. Used by tests and proxies.
	BaseURL string

	// Timeout bounds the provider HTTP client. Zero selects DefaultTimeout.
	Timeout time.Duration

	// Middleware is applied in order: the first entry is the outermost.
	Middleware []Middleware
}

// Middleware decorates a CoreLLM with additional behaviour.
type Middleware func(CoreLLM) CoreLLM

// Chain applies middleware to core so that the first middleware runs first.
func Chain(core CoreLLM, middleware ...Middleware) CoreLLM {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	return core
}

// Client implements ports.LLMClient on top of a decorated CoreLLM.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient creates a client for the named provider.
func NewClient(provider string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrEmptyAPIKey)
	}

	factory, ok := lookupProvider(provider)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return NewClientFromCore(core, config.Middleware...), nil
}

// NewClientFromCore wraps an existing CoreLLM. It is how tests and custom
// providers get the same middleware behaviour as registered providers.
func NewClientFromCore(core CoreLLM, middleware ...Middleware) *Client {
	return &Client{core: Chain(core, middleware...)}
}

// Complete sends prompt through the middleware chain.
func (c *Client) Complete(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
	return c.core.DoRequest(ctx, prompt)
}

// GetModel returns the configured model.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the provider name.
func (c *Client) Provider() string { return c.core.Provider() }

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProviderFactory registers a provider under name, replacing any
// earlier registration.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

func lookupProvider(name string) (ProviderFactory, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	f, ok := providers[name]
	return f, ok
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// apiKeyEnv lists the environment variables checked for each provider, in
// order of preference.
var apiKeyEnv = map[string][]string{
	"anthropic": {"ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"google":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
}

// APIKeyFromEnv returns the API key for provider from the environment, or
// "" when none is set.
func APIKeyFromEnv(provider string) string {
	for _, name := range apiKeyEnv[provider] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// estimateTokens approximates a token count when the provider reports none.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// tokenCount prefers the provider-reported count.
func tokenCount(reported int64, text string) int {
	if reported > 0 {
		return int(reported)
	}
	return estimateTokens(text)
}
