package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider talks to the Gemini API.
type googleProvider struct {
	client *genai.Client
	model  string
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("google: %w", ErrEmptyAPIKey)
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{client: client, model: model}, nil
}

func (p *googleProvider) DoRequest(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt.User, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, buildGenerationConfig(prompt))
	if err != nil {
		return ports.Completion{}, p.classify(err)
	}

	text := resp.Text()
	if text == "" {
		return ports.Completion{}, NewProviderError("google", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	var stop string
	if len(resp.Candidates) > 0 {
		stop = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}

	var in, out int64
	if resp.UsageMetadata != nil {
		in, out = int64(resp.UsageMetadata.PromptTokenCount), int64(resp.UsageMetadata.CandidatesTokenCount)
	}

	return ports.Completion{
		Text:       text,
		StopReason: stop,
		TokensIn:   tokenCount(in, prompt.System+prompt.User),
		TokensOut:  tokenCount(out, text),
		Model:      p.model,
	}, nil
}

// buildGenerationConfig maps a prompt onto Gemini generation settings. The
// system prompt travels as a system instruction.
func buildGenerationConfig(prompt ports.Prompt) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if prompt.Temperature != nil {
		config.Temperature = genai.Ptr(float32(clampFloat(*prompt.Temperature, 0, 2)))
	}
	if prompt.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(prompt.MaxTokens, math.MaxInt32))
	}
	if prompt.JSONMode {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func (p *googleProvider) classify(err error) error {
	if ce := contextError("google", err); ce != nil {
		return ce
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) {
			return NewProviderError("google", ErrorTypeNetwork, 0, "request failed", err)
		}
		apiErr = *ptr
	}

	if isSafetyBlock(apiErr.Status, apiErr.Message) {
		return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code, "request blocked by safety filters", err)
	}
	return NewHTTPError("google", apiErr.Code, apiErr.Message, err)
}

func isSafetyBlock(status, message string) bool {
	lower := strings.ToLower(status + " " + message)
	return strings.Contains(lower, "safety") || strings.Contains(lower, "blocked")
}

func (p *googleProvider) GetModel() string { return p.model }

func (p *googleProvider) Provider() string { return "google" }
