package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
)

func newTestScorer(t *testing.T) *HeuristicScorer {
	t.Helper()
	s, err := NewHeuristicScorer(DefaultHeuristicConfig())
	require.NoError(t, err)
	return s
}

func ptr(v float64) *float64 { return &v }

func TestNewHeuristicScorer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HeuristicConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*HeuristicConfig) {}},
		{name: "missing target", mutate: func(c *HeuristicConfig) { c.TargetLang = "" }, wantErr: true},
		{name: "zero expected ratio", mutate: func(c *HeuristicConfig) { c.ExpectedLengthRatio = 0 }, wantErr: true},
		{name: "inverted band", mutate: func(c *HeuristicConfig) { c.LengthBandLow, c.LengthBandHigh = 1, 1 }, wantErr: true},
		{name: "confidence weight above one", mutate: func(c *HeuristicConfig) { c.ConfidenceWeight = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultHeuristicConfig()
			tt.mutate(&cfg)
			_, err := NewHeuristicScorer(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHeuristicScorer_MalformedScoresZero(t *testing.T) {
	s := newTestScorer(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		scores := s.ScoreText(text, "نص المصدر.", ptr(0.9))
		assert.Equal(t, HeuristicScores{}, scores, "text %q", text)
		assert.Zero(t, scores.Composite())
	}
}

func TestHeuristicScorer_Accuracy(t *testing.T) {
	s := newTestScorer(t)
	source := "قضت المحكمة بحكمها."

	tests := []struct {
		name string
		text string
		conf *float64
		want float64
	}{
		{name: "clean without confidence", text: "The court issued its ruling.", want: 1},
		{name: "clean blended with confidence", text: "The court issued its ruling.", conf: ptr(0.9), want: 0.97},
		{
			name: "single arabic letter is penalized by ratio only",
			text: "The letter ب appears here once in this longer English sentence.",
			want: 1 - 5.0/53,
		},
		{
			name: "two letter run caps accuracy",
			text: "The ministry published the annual report on Tuesday in قل form.",
			want: 0.6,
		},
		{name: "untranslated output hits the floor", text: "قضت المحكمة بحكمها", want: 0.3},
		{name: "floor blended with confidence", text: "قضت المحكمة بحكمها", conf: ptr(1), want: 0.7*0.3 + 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.ScoreText(tt.text, source, tt.conf).Accuracy, 1e-9)
		})
	}
}

func TestHeuristicScorer_AccuracyArabicTarget(t *testing.T) {
	cfg := DefaultHeuristicConfig()
	cfg.TargetLang = "ar"
	s, err := NewHeuristicScorer(cfg)
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.ScoreText("قضت المحكمة بحكمها.", "The court ruled.", nil).Accuracy)
}

func TestHeuristicScorer_Completeness(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		name   string
		text   string
		source string
		want   float64
	}{
		// source: 12 runes, 2 sentences
		{name: "expected length and sentences", text: "One aa. Two.", source: "واحد. اثنان.", want: 1},
		{name: "inside band", text: "Hi. Yo.", source: "واحد. اثنان.", want: (1 - 0.3*(1-7.0/12) + 1) / 2},
		// source: 20 runes, 1 sentence
		{name: "truncated output", text: "Ok.", source: "هذه جملة عربية طويلة", want: (0.85*(3.0/20)/0.5 + 1) / 2},
		{name: "far too long output", text: strings.Repeat("x", 40), source: "ابجد", want: 0.5},
		{name: "sentence mismatch", text: "One aa Two a", source: "واحد. اثنان.", want: (1 + (1 - 0.4*0.5)) / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.ScoreText(tt.text, tt.source, nil).Completeness, 1e-9)
		})
	}
}

func TestHeuristicScorer_Fluency(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "well formed sentence",
			text: "The court issued its final ruling on the case after a long hearing.",
			want: 1,
		},
		{
			name: "no punctuation or capitals",
			text: "the court issued its ruling",
			want: 0.3 + 0.15*0.5,
		},
		{
			name: "degenerate repetition",
			text: "Yes yes yes yes yes yes yes yes yes yes.",
			want: 0.3 + 0.25 + 0.3*0.2 + 0.15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.ScoreText(tt.text, "مصدر", nil).Fluency, 1e-9)
		})
	}
}

func TestHeuristicScorer_Consistency(t *testing.T) {
	s := newTestScorer(t)

	assert.Equal(t, 0.8, s.ScoreText("Too short to judge.", "مصدر", nil).Consistency)

	distinct := "one two three four five six seven eight nine ten eleven twelve"
	assert.Equal(t, 1.0, s.ScoreText(distinct, "مصدر", nil).Consistency)

	looping := strings.Repeat("the court ruled ", 10)
	assert.InDelta(t, 3.0/28+0.1, s.ScoreText(looping, "مصدر", nil).Consistency, 1e-9)
}

func TestHeuristicScorer_Deterministic(t *testing.T) {
	s := newTestScorer(t)
	text := "The committee approved the budget. It will take effect next year."
	source := "وافقت اللجنة على الميزانية. وستدخل حيز التنفيذ العام المقبل."

	first := s.ScoreText(text, source, ptr(0.9))
	for range 5 {
		assert.Equal(t, first, s.ScoreText(text, source, ptr(0.9)))
	}
	for dim, v := range first.Dimensions() {
		assert.GreaterOrEqual(t, v, 0.0, dim)
		assert.LessOrEqual(t, v, 1.0, dim)
	}
}

func TestHeuristicScorer_Apply(t *testing.T) {
	s := newTestScorer(t)
	c := domain.NewCandidate(domain.MethodA, "The court issued its ruling.", "قضت المحكمة بحكمها.", ptr(0.9))

	first := s.Apply(c)
	assert.True(t, c.HasHeuristicScores())

	composite, ok := c.HeuristicComposite()
	require.True(t, ok)
	assert.InDelta(t, first.Composite(), composite, 1e-12)

	// Re-applying keeps the recorded values.
	assert.Equal(t, first, s.Apply(c))
}

func TestHeuristicScorer_ApplyKeepsPresetScores(t *testing.T) {
	s := newTestScorer(t)
	c := domain.NewCandidate(domain.MethodB, "Some text.", "نص.", nil)
	for _, dim := range domain.HeuristicDimensions() {
		c.SetScore(dim, 0.42)
	}

	scores := s.Apply(c)
	assert.InDelta(t, 0.42, scores.Composite(), 1e-12)
}
