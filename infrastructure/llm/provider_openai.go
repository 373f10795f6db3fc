package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// OpenAIDefaultModel is used when no model is configured.
const OpenAIDefaultModel = "gpt-4o"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider talks to the OpenAI chat completions API or any endpoint
// compatible with it.
type openAIProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyAPIKey)
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		u, err := url.Parse(config.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid BaseURL %q", config.BaseURL)
		}
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &openAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

func (p *openAIProvider) DoRequest(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(prompt))
	if err != nil {
		return ports.Completion{}, p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{}, NewProviderError("openai", ErrorTypeUnknown, 0, "no choices returned", ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return ports.Completion{}, NewProviderError("openai", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	return ports.Completion{
		Text:       choice.Message.Content,
		StopReason: strings.ToLower(string(choice.FinishReason)),
		TokensIn:   tokenCount(int64(resp.Usage.PromptTokens), prompt.System+prompt.User),
		TokensOut:  tokenCount(int64(resp.Usage.CompletionTokens), choice.Message.Content),
		Model:      resp.Model,
	}, nil
}

func (p *openAIProvider) buildRequest(prompt ports.Prompt) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if prompt.MaxTokens > 0 {
		req.MaxTokens = prompt.MaxTokens
	}
	if prompt.Temperature != nil {
		req.Temperature = float32(clampFloat(*prompt.Temperature, 0, 2))
	}
	if prompt.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

func (p *openAIProvider) classify(err error) error {
	if ce := contextError("openai", err); ce != nil {
		return ce
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.HTTPStatusCode)
		}
		return NewHTTPError("openai", apiErr.HTTPStatusCode, msg, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewHTTPError("openai", reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode), err)
	}
	return NewProviderError("openai", ErrorTypeNetwork, 0, "request failed", err)
}

func (p *openAIProvider) GetModel() string { return p.model }

func (p *openAIProvider) Provider() string { return "openai" }
