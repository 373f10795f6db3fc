// Package translate holds the invocation adapters behind ports.Translator,
// one per translation method. LLM-backed methods share a prompt and differ
// only in the client they use and how they estimate their own confidence;
// DeepL and Google Cloud Translation are called through their REST APIs.
package translate

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
	"github.com/Antonio-Ardigo/Remote-Project/internal/textutil"
)

// DefaultLLMMaxTokens bounds the length of an LLM translation.
const DefaultLLMMaxTokens = 4096

const systemPrompt = `You are an expert {{.Source}}-to-{{.Target}} translator with deep knowledge of
Modern Standard Arabic, Classical Arabic, common dialects, and legal, technical,
religious and cultural terminology.

Guidelines:
1. Translate accurately while preserving the original meaning and tone.
2. Render idiomatic expressions with natural {{.Target}} equivalents.
3. Use the most common transliteration for proper nouns.
4. Keep paragraph structure and formatting.
5. Preserve numbers, dates and references exactly.
6. Use established translations for Quranic verses and Hadith.
7. Keep the formal or informal register of the source.

Output ONLY the {{.Target}} translation. Do not add notes or explanations and
do not transliterate.`

const userPrompt = `{{if .Context}}CONTEXT (preceding text for reference, do NOT translate this):
{{.Context}}

---

{{end}}Translate the following {{.Source}} text to {{.Target}}:

{{.Text}}`

var (
	systemTemplate = template.Must(template.New("system").Parse(systemPrompt))
	userTemplate   = template.Must(template.New("user").Parse(userPrompt))
)

// languageNames maps ISO 639-1 codes onto the names used in prompts.
var languageNames = map[string]string{
	"ar": "Arabic",
	"en": "English",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"zh": "Chinese",
}

// LanguageName returns the display name of an ISO 639-1 code, or the code
// itself when it is unknown.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// ConfidenceFunc estimates a method's confidence in a completion. It returns
// nil when the method does not report confidence.
type ConfidenceFunc func(out ports.Completion, sourceText string) *float64

// AnthropicConfidence rates Claude output: 0.92 when generation ended
// naturally, 0.90 otherwise, cut by 30% when the translation is shorter
// than a fifth of the source.
func AnthropicConfidence(out ports.Completion, sourceText string) *float64 {
	conf := 0.90
	if out.StopReason == "end_turn" {
		conf = 0.92
	}
	if float64(textutil.RuneLen(out.Text)) < 0.2*float64(textutil.RuneLen(sourceText)) {
		conf *= 0.7
	}
	return &conf
}

// OpenAIConfidence rates chat completions: 0.89 on a natural stop, 0.87
// otherwise.
func OpenAIConfidence(out ports.Completion, _ string) *float64 {
	conf := 0.87
	if out.StopReason == "stop" {
		conf = 0.89
	}
	return &conf
}

// NoConfidence is used by methods that report nothing.
func NoConfidence(ports.Completion, string) *float64 { return nil }

// LLMTranslator translates with a language model.
type LLMTranslator struct {
	method     domain.Method
	client     ports.LLMClient
	confidence ConfidenceFunc
	maxTokens  int
	logger     zerolog.Logger
}

var _ ports.Translator = (*LLMTranslator)(nil)

// LLMOption configures an LLMTranslator.
type LLMOption func(*LLMTranslator)

// WithMaxTokens overrides DefaultLLMMaxTokens.
func WithMaxTokens(n int) LLMOption {
	return func(t *LLMTranslator) {
		if n > 0 {
			t.maxTokens = n
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) LLMOption {
	return func(t *LLMTranslator) { t.logger = l }
}

// NewLLMTranslator creates a translator for method on top of client.
// A nil confidence function means the method reports no confidence.
func NewLLMTranslator(method domain.Method, client ports.LLMClient, confidence ConfidenceFunc, opts ...LLMOption) (*LLMTranslator, error) {
	if client == nil {
		return nil, fmt.Errorf("%s: llm client is required", method)
	}
	if confidence == nil {
		confidence = NoConfidence
	}
	t := &LLMTranslator{
		method:     method,
		client:     client,
		confidence: confidence,
		maxTokens:  DefaultLLMMaxTokens,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Method returns the method the translator produces candidates for.
func (t *LLMTranslator) Method() domain.Method { return t.method }

// Translate implements ports.Translator.
func (t *LLMTranslator) Translate(ctx context.Context, req ports.TranslationRequest) (ports.Translation, error) {
	prompt, err := buildPrompt(req, t.maxTokens)
	if err != nil {
		return ports.Translation{}, err
	}

	t.logger.Debug().
		Str("method", t.method.String()).
		Int("chars", textutil.RuneLen(req.SourceText)).
		Bool("context", req.Context != "").
		Msg("sending translation request")

	out, err := t.client.Complete(ctx, prompt)
	if err != nil {
		return ports.Translation{}, fmt.Errorf("%s translation failed: %w", t.method, err)
	}

	text := strings.TrimSpace(out.Text)
	result := ports.Translation{
		Text:             text,
		NativeConfidence: t.confidence(ports.Completion{Text: text, StopReason: out.StopReason}, req.SourceText),
		Metadata: map[string]string{
			"backend":     "llm",
			"model":       out.Model,
			"stop_reason": out.StopReason,
			"tokens_in":   fmt.Sprint(out.TokensIn),
			"tokens_out":  fmt.Sprint(out.TokensOut),
		},
	}
	if result.Metadata["model"] == "" {
		result.Metadata["model"] = t.client.GetModel()
	}

	t.logger.Debug().
		Str("method", t.method.String()).
		Int("chars", textutil.RuneLen(text)).
		Str("stop_reason", out.StopReason).
		Msg("received translation")

	return result, nil
}

type promptData struct {
	Source, Target string
	Context, Text  string
}

func buildPrompt(req ports.TranslationRequest, maxTokens int) (ports.Prompt, error) {
	data := promptData{
		Source:  LanguageName(req.SourceLang),
		Target:  LanguageName(req.TargetLang),
		Context: strings.TrimSpace(req.Context),
		Text:    req.SourceText,
	}

	var system, user bytes.Buffer
	if err := systemTemplate.Execute(&system, data); err != nil {
		return ports.Prompt{}, fmt.Errorf("failed to render system prompt: %w", err)
	}
	if err := userTemplate.Execute(&user, data); err != nil {
		return ports.Prompt{}, fmt.Errorf("failed to render translation prompt: %w", err)
	}

	return ports.Prompt{
		System:    system.String(),
		User:      user.String(),
		MaxTokens: maxTokens,
	}, nil
}
