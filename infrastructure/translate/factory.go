package translate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/llm"
	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// Backends a method can be bound to. The LLM backends match the provider
// names registered in the llm package.
const (
	BackendAnthropic       = "anthropic"
	BackendOpenAI          = "openai"
	BackendGoogle          = "google"
	BackendDeepL           = "deepl"
	BackendGoogleTranslate = "google_translate"
)

// MethodConfig binds a method to a backend.
type MethodConfig struct {
	Backend string `yaml:"backend" json:"backend" mapstructure:"backend" validate:"required,oneof=anthropic openai google deepl google_translate"`

	// Model selects the LLM model. Ignored by REST backends.
	Model string `yaml:"model" json:"model" mapstructure:"model"`

	// APIKey overrides the backend's environment variable.
	APIKey string `yaml:"api_key" json:"-" mapstructure:"api_key"`

	// BaseURL overrides the backend endpoint.
	BaseURL string `yaml:"base_url" json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	MaxTokens int `yaml:"max_tokens" json:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`

	// RequestsPerSecond limits calls to the backend. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
}

// DefaultMethodConfigs returns the default binding: Claude, DeepL, OpenAI,
// Google Cloud Translation, and Gemini as the fallback.
func DefaultMethodConfigs() map[domain.Method]MethodConfig {
	return map[domain.Method]MethodConfig{
		domain.MethodA:               {Backend: BackendAnthropic, Model: llm.AnthropicDefaultModel},
		domain.MethodB:               {Backend: BackendDeepL},
		domain.MethodC:               {Backend: BackendOpenAI, Model: llm.OpenAIDefaultModel},
		domain.MethodD:               {Backend: BackendGoogleTranslate},
		domain.MethodOfflineFallback: {Backend: BackendGoogle, Model: llm.GoogleDefaultModel},
	}
}

// restKeyEnv lists the environment variables of the REST backends.
var restKeyEnv = map[string][]string{
	BackendDeepL:           {"DEEPL_API_KEY"},
	BackendGoogleTranslate: {"GOOGLE_TRANSLATE_API_KEY", "GOOGLE_API_KEY"},
}

// ResolveAPIKey returns the configured key or the one found in the
// backend's environment variables.
func (c MethodConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if names, ok := restKeyEnv[c.Backend]; ok {
		for _, name := range names {
			if v := os.Getenv(name); v != "" {
				return v
			}
		}
		return ""
	}
	return llm.APIKeyFromEnv(c.Backend)
}

// Dependencies are shared by every translator Build creates.
type Dependencies struct {
	Logger  zerolog.Logger
	Metrics ports.MetricsCollector
	Retry   RetryPolicy
	Timeout time.Duration
}

// Build creates a translator for each configured method. Methods that
// cannot be built, usually for lack of a credential, are returned as
// unavailable instead of failing the whole set.
func Build(ctx context.Context, configs map[domain.Method]MethodConfig, deps Dependencies) (map[domain.Method]ports.Translator, map[domain.Method]error) {
	translators := make(map[domain.Method]ports.Translator, len(configs))
	unavailable := make(map[domain.Method]error)

	for method, cfg := range configs {
		t, err := buildOne(ctx, method, cfg, deps)
		if err != nil {
			deps.Logger.Warn().Err(err).Str("method", method.String()).Str("backend", cfg.Backend).Msg("method unavailable")
			unavailable[method] = err
			continue
		}
		translators[method] = t
	}
	return translators, unavailable
}

func buildOne(ctx context.Context, method domain.Method, cfg MethodConfig, deps Dependencies) (ports.Translator, error) {
	key := cfg.ResolveAPIKey()
	if key == "" {
		return nil, fmt.Errorf("%s (%s): %w", method, cfg.Backend, ports.ErrMissingCredential)
	}
	logger := deps.Logger.With().Str("method", method.String()).Logger()

	switch cfg.Backend {
	case BackendDeepL:
		t, err := NewDeepLTranslator(DeepLConfig{APIKey: key, BaseURL: cfg.BaseURL, Timeout: deps.Timeout, Logger: logger})
		if err != nil {
			return nil, err
		}
		return limited(WithRetry(t, deps.Retry), cfg.RequestsPerSecond), nil

	case BackendGoogleTranslate:
		cc := GoogleConfig{APIKey: key, Logger: logger}
		if cfg.BaseURL != "" {
			cc.Options = append(cc.Options, option.WithEndpoint(cfg.BaseURL))
		}
		t, err := NewGoogleTranslator(ctx, cc)
		if err != nil {
			return nil, err
		}
		return limited(WithRetry(t, deps.Retry), cfg.RequestsPerSecond), nil

	case BackendAnthropic, BackendOpenAI, BackendGoogle:
		client, err := llm.NewClient(cfg.Backend, llm.ClientConfig{
			APIKey:     key,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    deps.Timeout,
			Middleware: llmMiddleware(cfg, deps),
		})
		if err != nil {
			return nil, err
		}
		t, err := NewLLMTranslator(method, client, confidenceFor(cfg.Backend),
			WithMaxTokens(cfg.MaxTokens), WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("%s: unknown backend %q", method, cfg.Backend)
}

// confidenceFor picks the confidence estimate of an LLM backend. Gemini
// serves as the fallback and reports none.
func confidenceFor(backend string) ConfidenceFunc {
	switch backend {
	case BackendAnthropic:
		return AnthropicConfidence
	case BackendOpenAI:
		return OpenAIConfidence
	}
	return NoConfidence
}

func llmMiddleware(cfg MethodConfig, deps Dependencies) []llm.Middleware {
	mw := []llm.Middleware{llm.TracingMiddleware()}
	if deps.Metrics != nil {
		mw = append(mw, llm.MetricsMiddleware(deps.Metrics))
	}
	if deps.Retry.MaxRetries > 0 {
		mw = append(mw, llm.RetryMiddleware(deps.Retry.MaxRetries, deps.Retry.BaseDelay, deps.Retry.MaxDelay))
	}
	mw = append(mw, llm.CircuitBreakerMiddleware(5, time.Minute))
	if cfg.RequestsPerSecond > 0 {
		mw = append(mw, llm.RateLimitMiddleware(rate.Limit(cfg.RequestsPerSecond), 1))
	}
	return mw
}

// limited applies a token bucket to a REST translator.
func limited(next ports.Translator, rps float64) ports.Translator {
	if rps <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	return ports.TranslatorFunc(func(ctx context.Context, req ports.TranslationRequest) (ports.Translation, error) {
		if err := limiter.Wait(ctx); err != nil {
			return ports.Translation{}, fmt.Errorf("rate limit: %w", err)
		}
		return next.Translate(ctx, req)
	})
}
