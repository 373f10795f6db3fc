package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// Defaults for the LLM judge.
const (
	DefaultJudgeModel        = "claude-sonnet-4-20250514"
	DefaultJudgeMaxTokens    = 2048
	DefaultJudgeSourceRunes  = 2000
	DefaultJudgeTemperature  = 0.0
	judgeScaleMax            = 10.0
	defaultJudgePromptString = `You are an expert evaluator of {{.SourceLanguage}} to {{.TargetLanguage}} translation.

Below is the original text followed by {{len .Entries}} candidate translations. Rate every translation from 1 to 10 on each dimension:

- accuracy: the meaning of the original is conveyed faithfully, with no mistranslation, omission or addition; names, numbers and dates are preserved.
- fluency: the translation is grammatical and reads naturally.
- completeness: every sentence of the original is covered and nothing is summarized away.
- terminology: technical, legal, religious and cultural terms are rendered correctly and consistently.
- register: the formality of the original is kept.

ORIGINAL TEXT:
{{.Source}}
{{range .Entries}}
--- TRANSLATION (method: {{.Method}}) ---
{{.Text}}
{{end}}
Reply with a single JSON object and nothing else, in exactly this shape:
{
  "evaluations": {
{{- range $i, $e := .Entries}}{{if $i}},{{end}}
    "{{$e.Method}}": {"accuracy": <1-10>, "fluency": <1-10>, "completeness": <1-10>, "terminology": <1-10>, "register": <1-10>}
{{- end}}
  },
  "best_method": "<method of the best translation>",
  "reasoning": "<why the best translation wins>"
}`
)

// JudgeConfig configures the LLMJudge.
type JudgeConfig struct {
	// Prompt is a text/template rendered with the source and the entries.
	Prompt string `yaml:"prompt" json:"prompt" mapstructure:"prompt" validate:"required"`

	// MaxSourceRunes truncates the source text placed in the prompt.
	MaxSourceRunes int `yaml:"max_source_runes" json:"max_source_runes" mapstructure:"max_source_runes" validate:"min=100"`

	// MaxTokens limits the judge reply.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" mapstructure:"max_tokens" validate:"min=256,max=8192"`

	// Temperature for the judge model.
	Temperature float64 `yaml:"temperature" json:"temperature" mapstructure:"temperature" validate:"min=0,max=1"`

	// SourceLanguage and TargetLanguage are the display names used in the prompt.
	SourceLanguage string `yaml:"source_language" json:"source_language" mapstructure:"source_language" validate:"required"`
	TargetLanguage string `yaml:"target_language" json:"target_language" mapstructure:"target_language" validate:"required"`
}

// DefaultJudgeConfig returns the default judge configuration for Arabic to English.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		Prompt:         defaultJudgePromptString,
		MaxSourceRunes: DefaultJudgeSourceRunes,
		MaxTokens:      DefaultJudgeMaxTokens,
		Temperature:    DefaultJudgeTemperature,
		SourceLanguage: "Arabic",
		TargetLanguage: "English",
	}
}

// judgeDimensions is one method's raw 1-10 scores as returned by the model.
type judgeDimensions struct {
	Accuracy     float64 `json:"accuracy" validate:"min=1,max=10"`
	Fluency      float64 `json:"fluency" validate:"min=1,max=10"`
	Completeness float64 `json:"completeness" validate:"min=1,max=10"`
	Terminology  float64 `json:"terminology" validate:"min=1,max=10"`
	Register     float64 `json:"register" validate:"min=1,max=10"`
}

func (d judgeDimensions) normalized() domain.JudgeScores {
	return domain.JudgeScores{
		Accuracy:     d.Accuracy / judgeScaleMax,
		Fluency:      d.Fluency / judgeScaleMax,
		Completeness: d.Completeness / judgeScaleMax,
		Terminology:  d.Terminology / judgeScaleMax,
		Register:     d.Register / judgeScaleMax,
	}
}

// judgeResponse is the JSON reply expected from the judge model.
type judgeResponse struct {
	Evaluations map[string]judgeDimensions `json:"evaluations" validate:"required,min=1,dive"`
	BestMethod  string                     `json:"best_method"`
	Reasoning   string                     `json:"reasoning"`
}

// judgePromptData is the template input.
type judgePromptData struct {
	SourceLanguage string
	TargetLanguage string
	Source         string
	Entries        []ports.JudgeEntry
}

// LLMJudge implements ports.Judge by asking a language model to rate all
// candidates in one request.
type LLMJudge struct {
	client    ports.LLMClient
	config    JudgeConfig
	validator *validator.Validate
	prompt    *template.Template
}

var _ ports.Judge = (*LLMJudge)(nil)

// NewLLMJudge validates config, compiles the prompt template and returns a judge.
func NewLLMJudge(client ports.LLMClient, config JudgeConfig) (*LLMJudge, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("judge configuration validation failed: %w", err)
	}
	tmpl, err := template.New("judgePrompt").Parse(config.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse judge prompt template: %w", err)
	}
	return &LLMJudge{
		client:    client,
		config:    config,
		validator: validate,
		prompt:    tmpl,
	}, nil
}

// Model returns the model serving the judge.
func (j *LLMJudge) Model() string { return j.client.GetModel() }

// Evaluate asks the model to rate every entry and returns normalized scores.
// It fails when the reply cannot be parsed, when a value lies outside 1-10
// or when any entry is missing from the reply.
func (j *LLMJudge) Evaluate(
	ctx context.Context,
	sourceText string,
	entries []ports.JudgeEntry,
) (map[domain.Method]domain.JudgeScores, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("judge: no entries to evaluate")
	}

	var sb strings.Builder
	data := judgePromptData{
		SourceLanguage: j.config.SourceLanguage,
		TargetLanguage: j.config.TargetLanguage,
		Source:         truncateRunes(sourceText, j.config.MaxSourceRunes),
		Entries:        entries,
	}
	if err := j.prompt.Execute(&sb, data); err != nil {
		return nil, fmt.Errorf("judge: failed to render prompt: %w", err)
	}

	temperature := j.config.Temperature
	completion, err := j.client.Complete(ctx, ports.Prompt{
		User:        sb.String(),
		MaxTokens:   j.config.MaxTokens,
		Temperature: &temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("judge: completion failed: %w", err)
	}

	return j.parseResponse(completion.Text, entries)
}

func (j *LLMJudge) parseResponse(response string, entries []ports.JudgeEntry) (map[domain.Method]domain.JudgeScores, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("judge: no valid JSON found in response (response length: %d chars): %w",
			len(response), ports.ErrInvalidResponse)
	}

	var reply judgeResponse
	if err := json.Unmarshal([]byte(jsonStr), &reply); err != nil {
		return nil, fmt.Errorf("judge: failed to parse JSON response (JSON length: %d chars): %w", len(jsonStr), err)
	}
	if err := j.validator.Struct(reply); err != nil {
		return nil, fmt.Errorf("judge: invalid response structure: %w", err)
	}

	out := make(map[domain.Method]domain.JudgeScores, len(entries))
	for _, e := range entries {
		dims, ok := lookupEvaluation(reply.Evaluations, e.Method)
		if !ok {
			return nil, fmt.Errorf("judge: response has no evaluation for %s: %w", e.Method, ports.ErrInvalidResponse)
		}
		out[e.Method] = dims.normalized()
	}
	return out, nil
}

// lookupEvaluation finds the evaluation for m, tolerating case differences
// in the keys the model echoes back.
func lookupEvaluation(evals map[string]judgeDimensions, m domain.Method) (judgeDimensions, bool) {
	if d, ok := evals[m.String()]; ok {
		return d, true
	}
	for k, d := range evals {
		if strings.EqualFold(strings.TrimSpace(k), m.String()) {
			return d, true
		}
	}
	return judgeDimensions{}, false
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
