package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// AnthropicDefaultModel is used when no model is configured.
const AnthropicDefaultModel = "claude-sonnet-4-20250514"

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider talks to the Claude Messages API.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyAPIKey)
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Retries are handled by RetryMiddleware so they are visible to metrics
	// and tracing.
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (p *anthropicProvider) DoRequest(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(prompt))
	if err != nil {
		return ports.Completion{}, p.classify(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return ports.Completion{}, NewProviderError("anthropic", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	return ports.Completion{
		Text:       text.String(),
		StopReason: strings.ToLower(string(message.StopReason)),
		TokensIn:   tokenCount(message.Usage.InputTokens, prompt.System+prompt.User),
		TokensOut:  tokenCount(message.Usage.OutputTokens, text.String()),
		Model:      string(message.Model),
	}, nil
}

func (p *anthropicProvider) buildParams(prompt ports.Prompt) anthropic.MessageNewParams {
	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if prompt.Temperature != nil {
		params.Temperature = anthropic.Float(clampFloat(*prompt.Temperature, 0, 1))
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}
	return params
}

func (p *anthropicProvider) classify(err error) error {
	if ce := contextError("anthropic", err); ce != nil {
		return ce
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return NewHTTPError("anthropic", apiErr.StatusCode, http.StatusText(apiErr.StatusCode), err)
	}
	return NewProviderError("anthropic", ErrorTypeNetwork, 0, "request failed", err)
}

func (p *anthropicProvider) GetModel() string { return p.model }

func (p *anthropicProvider) Provider() string { return "anthropic" }

func clampFloat(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
