package quality

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// stubLLM returns a canned completion and records the prompt it was given.
type stubLLM struct {
	reply string
	err   error
	got   ports.Prompt
	calls int
}

func (s *stubLLM) Complete(_ context.Context, p ports.Prompt) (ports.Completion, error) {
	s.calls++
	s.got = p
	if s.err != nil {
		return ports.Completion{}, s.err
	}
	return ports.Completion{Text: s.reply, StopReason: "end_turn"}, nil
}

func (s *stubLLM) GetModel() string { return DefaultJudgeModel }

var judgeEntries = []ports.JudgeEntry{
	{Method: domain.MethodA, Text: "The court ruled in favour of the plaintiff."},
	{Method: domain.MethodB, Text: "The court decided for the claimant."},
}

const validJudgeReply = `{
  "evaluations": {
    "method_a": {"accuracy": 9, "fluency": 8, "completeness": 10, "terminology": 9, "register": 9},
    "method_b": {"accuracy": 6, "fluency": 7, "completeness": 6, "terminology": 5, "register": 6}
  },
  "best_method": "method_a",
  "reasoning": "method_a keeps the legal terminology."
}`

func newTestJudge(t *testing.T, llm *stubLLM) *LLMJudge {
	t.Helper()
	j, err := NewLLMJudge(llm, DefaultJudgeConfig())
	require.NoError(t, err)
	return j
}

func TestNewLLMJudge_Validation(t *testing.T) {
	_, err := NewLLMJudge(nil, DefaultJudgeConfig())
	assert.Error(t, err)

	cfg := DefaultJudgeConfig()
	cfg.MaxTokens = 10
	_, err = NewLLMJudge(&stubLLM{}, cfg)
	assert.Error(t, err)

	cfg = DefaultJudgeConfig()
	cfg.Prompt = "{{.Source"
	_, err = NewLLMJudge(&stubLLM{}, cfg)
	assert.Error(t, err)
}

func TestLLMJudge_Evaluate(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "bare json", reply: validJudgeReply},
		{name: "fenced json", reply: "Here is my evaluation:\n```json\n" + validJudgeReply + "\n```"},
		{name: "prose wrapped", reply: "Sure. " + validJudgeReply + " Let me know if you need more."},
		{name: "method keys in other case", reply: strings.ReplaceAll(validJudgeReply, `"method_`, `"METHOD_`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{reply: tt.reply}
			j := newTestJudge(t, llm)

			scores, err := j.Evaluate(context.Background(), "قضت المحكمة لصالح المدعي.", judgeEntries)
			require.NoError(t, err)
			require.Len(t, scores, 2)

			assert.Equal(t, domain.JudgeScores{Accuracy: 0.9, Fluency: 0.8, Completeness: 1, Terminology: 0.9, Register: 0.9}, scores[domain.MethodA])
			assert.InDelta(t, 0.9, scores[domain.MethodA].Composite(), 1e-9)
			assert.InDelta(t, 0.6, scores[domain.MethodB].Composite(), 1e-9)
		})
	}
}

func TestLLMJudge_EvaluateFailures(t *testing.T) {
	tests := []struct {
		name   string
		llm    *stubLLM
		target error
	}{
		{name: "transport error", llm: &stubLLM{err: errors.New("connection refused")}},
		{name: "no json", llm: &stubLLM{reply: "I cannot evaluate these."}, target: ports.ErrInvalidResponse},
		{name: "truncated json", llm: &stubLLM{reply: `{"evaluations": {"method_a": {"accuracy": 9`}, target: ports.ErrInvalidResponse},
		{
			name:   "missing method",
			llm:    &stubLLM{reply: `{"evaluations": {"method_a": {"accuracy": 9, "fluency": 8, "completeness": 10, "terminology": 9, "register": 9}}}`},
			target: ports.ErrInvalidResponse,
		},
		{
			name: "out of range score",
			llm:  &stubLLM{reply: strings.Replace(validJudgeReply, `"accuracy": 9`, `"accuracy": 11`, 1)},
		},
		{
			name: "missing dimension",
			llm:  &stubLLM{reply: strings.Replace(validJudgeReply, `"register": 6`, `"tone": 6`, 1)},
		},
		{name: "empty evaluations", llm: &stubLLM{reply: `{"evaluations": {}}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newTestJudge(t, tt.llm)
			scores, err := j.Evaluate(context.Background(), "مصدر", judgeEntries)
			require.Error(t, err)
			assert.Nil(t, scores)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestLLMJudge_Prompt(t *testing.T) {
	llm := &stubLLM{reply: validJudgeReply}
	j := newTestJudge(t, llm)

	source := strings.Repeat("ب", 3000)
	_, err := j.Evaluate(context.Background(), source, judgeEntries)
	require.NoError(t, err)

	assert.Equal(t, 2000, strings.Count(llm.got.User, "ب"), "source must be truncated")
	assert.Contains(t, llm.got.User, "--- TRANSLATION (method: method_a) ---")
	assert.Contains(t, llm.got.User, judgeEntries[1].Text)
	assert.Contains(t, llm.got.User, `"method_b": {"accuracy": <1-10>`)
	assert.Equal(t, DefaultJudgeMaxTokens, llm.got.MaxTokens)
	assert.True(t, llm.got.JSONMode)
}

func TestLLMJudge_NoEntries(t *testing.T) {
	llm := &stubLLM{reply: validJudgeReply}
	j := newTestJudge(t, llm)

	_, err := j.Evaluate(context.Background(), "مصدر", nil)
	assert.Error(t, err)
	assert.Zero(t, llm.calls)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced with language", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fenced without language", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounded by prose", in: `result: {"a":{"b":2}} done`, want: `{"a":{"b":2}}`},
		{name: "braces inside strings", in: `{"a":"}{"} trailing`, want: `{"a":"}{"}`},
		{name: "escaped quote", in: `{"a":"say \"hi\" }"}`, want: `{"a":"say \"hi\" }"}`},
		{name: "no object", in: "nothing here", want: ""},
		{name: "unbalanced", in: `{"a":1`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}
