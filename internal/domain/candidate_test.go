package domain

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestCandidate_NativeConfidence(t *testing.T) {
	tests := []struct {
		name     string
		conf     *float64
		wantOK   bool
		wantConf float64
	}{
		{name: "absent", conf: nil, wantOK: false},
		{name: "present", conf: ptr(0.9), wantOK: true, wantConf: 0.9},
		{name: "zero is observed, not absent", conf: ptr(0), wantOK: true, wantConf: 0},
		{name: "clamped above one", conf: ptr(1.4), wantOK: true, wantConf: 1},
		{name: "clamped below zero", conf: ptr(-0.2), wantOK: true, wantConf: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCandidate(MethodA, "Hello.", "مرحبا", tt.conf)
			got, ok := c.NativeConfidence()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantConf, got)
		})
	}
}

func TestCandidate_SetScoreIsWriteOnce(t *testing.T) {
	c := NewCandidate(MethodB, "text", "source", nil)

	assert.True(t, c.SetScore(DimFluency, 0.8))
	assert.False(t, c.SetScore(DimFluency, 0.1), "second write must be rejected")

	v, ok := c.Score(DimFluency)
	require.True(t, ok)
	assert.Equal(t, 0.8, v)

	_, ok = c.Score(DimAccuracy)
	assert.False(t, ok)
}

func TestCandidate_SetScoreClamps(t *testing.T) {
	c := NewCandidate(MethodC, "text", "source", nil)
	c.SetScore(DimAccuracy, 1.7)
	c.SetScore(DimFluency, -3)
	c.SetScore(DimConsistency, math.NaN())

	scores := c.Scores()
	assert.Equal(t, 1.0, scores[DimAccuracy])
	assert.Equal(t, 0.0, scores[DimFluency])
	assert.Equal(t, 0.0, scores[DimConsistency])
}

func TestCandidate_HeuristicComposite(t *testing.T) {
	c := NewCandidate(MethodA, "text", "source", nil)
	c.SetScore(DimCompleteness, 0.9)
	c.SetScore(DimAccuracy, 0.8)
	c.SetScore(DimFluency, 0.7)

	_, ok := c.HeuristicComposite()
	assert.False(t, ok, "composite is undefined until all four dimensions exist")
	assert.False(t, c.HasHeuristicScores())

	c.SetScore(DimConsistency, 0.6)
	composite, ok := c.HeuristicComposite()
	require.True(t, ok)
	assert.InDelta(t, 0.75, composite, 1e-12)
	assert.True(t, c.HasHeuristicScores())
}

func TestCandidate_FinalScoreIsWriteOnce(t *testing.T) {
	c := NewCandidate(MethodD, "text", "source", nil)
	_, ok := c.FinalScore()
	assert.False(t, ok)

	assert.True(t, c.SetFinalScore(0.77))
	assert.False(t, c.SetFinalScore(0.12))

	v, ok := c.FinalScore()
	require.True(t, ok)
	assert.Equal(t, 0.77, v)
}

func TestCandidate_Malformed(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"   \n\t ", true},
		{"Hello.", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewCandidate(MethodA, tt.text, "src", nil).Malformed(), "text %q", tt.text)
	}
}

func TestCandidate_ConcurrentScoring(t *testing.T) {
	c := NewCandidate(MethodA, "text", "source", nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	stored := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			if c.SetScore(DimAgreement, v) {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}(float64(i) / 100)
	}
	wg.Wait()

	assert.Equal(t, 1, stored, "exactly one concurrent writer wins")
}

func TestMethod_Priority(t *testing.T) {
	methods := AllMethods()
	require.Len(t, methods, 5)
	for i := 1; i < len(methods); i++ {
		assert.Less(t, methods[i-1].Priority(), methods[i].Priority())
	}
	assert.Equal(t, len(methods), Method("unknown").Priority())
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("  METHOD_C ")
	require.NoError(t, err)
	assert.Equal(t, MethodC, m)

	_, err = ParseMethod("claude")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestMethod_TextRoundTrip(t *testing.T) {
	var got struct {
		Method Method `json:"method"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"method":"offline_fallback"}`), &got))
	assert.Equal(t, MethodOfflineFallback, got.Method)

	err := json.Unmarshal([]byte(`{"method":"method_z"}`), &got)
	assert.Error(t, err)
}

func TestSortByPriority(t *testing.T) {
	methods := []Method{MethodOfflineFallback, MethodC, MethodA, MethodD, MethodB}
	SortByPriority(methods)
	assert.Equal(t, AllMethods(), methods)
}

func TestThresholdPolicy(t *testing.T) {
	assert.Equal(t, 0.95, PolicyStrict.Threshold())
	assert.Equal(t, 0.85, PolicyModerate.Threshold())
	assert.Equal(t, 0.70, PolicyRelaxed.Threshold())
	assert.True(t, math.IsInf(PolicyAlways.Threshold(), 1))

	p, err := ParsePolicy("Relaxed")
	require.NoError(t, err)
	assert.Equal(t, PolicyRelaxed, p)

	_, err = ParsePolicy("lenient")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestJudgeScores(t *testing.T) {
	js := JudgeScores{Accuracy: 1, Fluency: 0.8, Completeness: 0.9, Terminology: 0.7, Register: 0.6}
	assert.InDelta(t, 0.8, js.Composite(), 1e-12)
	assert.True(t, js.InRange())
	assert.Len(t, js.Dimensions(), 5)

	js.Register = 7
	assert.False(t, js.InRange())
}
