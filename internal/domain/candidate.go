package domain

import (
	"strings"
	"sync"
	"time"
)

// Dimension names a score stored on a Candidate.
type Dimension string

// Heuristic dimensions computed for every candidate in isolation.
const (
	DimCompleteness Dimension = "completeness"
	DimAccuracy     Dimension = "accuracy"
	DimFluency      Dimension = "fluency"
	DimConsistency  Dimension = "consistency"
)

// DimAgreement holds the candidate's mean similarity to the rest of its round.
const DimAgreement Dimension = "agreement"

// Judge dimensions are stored under a "judge." prefix so they never collide
// with the heuristic dimensions of the same name.
const (
	DimJudgeAccuracy     Dimension = "judge.accuracy"
	DimJudgeFluency      Dimension = "judge.fluency"
	DimJudgeCompleteness Dimension = "judge.completeness"
	DimJudgeTerminology  Dimension = "judge.terminology"
	DimJudgeRegister     Dimension = "judge.register"
)

// HeuristicDimensions lists the four heuristic dimensions in report order.
func HeuristicDimensions() []Dimension {
	return []Dimension{DimCompleteness, DimAccuracy, DimFluency, DimConsistency}
}

// JudgeDimensions lists the five judge dimensions in report order.
func JudgeDimensions() []Dimension {
	return []Dimension{
		DimJudgeAccuracy, DimJudgeFluency, DimJudgeCompleteness,
		DimJudgeTerminology, DimJudgeRegister,
	}
}

// Candidate is one translation produced by one method for one source text.
// Text, SourceText, Method and NativeConfidence are fixed at construction.
// Scores are written incrementally by scorers and never overwritten, so
// re-running a scorer is harmless. A Candidate is safe for concurrent use.
type Candidate struct {
	method           Method
	text             string
	sourceText       string
	nativeConfidence *float64
	latency          time.Duration

	mu         sync.RWMutex
	scores     map[Dimension]float64
	finalScore *float64
}

// NewCandidate creates a candidate with an empty score map.
// nativeConfidence may be nil when the producing method reports none; a
// non-nil value is clamped into [0,1].
func NewCandidate(method Method, text, sourceText string, nativeConfidence *float64) *Candidate {
	var conf *float64
	if nativeConfidence != nil {
		v := clampUnit(*nativeConfidence)
		conf = &v
	}
	return &Candidate{
		method:           method,
		text:             text,
		sourceText:       sourceText,
		nativeConfidence: conf,
		scores:           make(map[Dimension]float64),
	}
}

// WithLatency records how long the producing method took. It returns the
// candidate to allow chaining at construction time.
func (c *Candidate) WithLatency(d time.Duration) *Candidate {
	c.latency = d
	return c
}

// Method returns the method that produced the candidate.
func (c *Candidate) Method() Method { return c.method }

// Text returns the translated text.
func (c *Candidate) Text() string { return c.text }

// SourceText returns the text that was translated.
func (c *Candidate) SourceText() string { return c.sourceText }

// Latency returns the invocation latency of the producing method, if known.
func (c *Candidate) Latency() time.Duration { return c.latency }

// NativeConfidence returns the method's self-reported confidence and whether
// one was reported at all.
func (c *Candidate) NativeConfidence() (float64, bool) {
	if c.nativeConfidence == nil {
		return 0, false
	}
	return *c.nativeConfidence, true
}

// Malformed reports whether the translated text is empty or whitespace only.
func (c *Candidate) Malformed() bool { return strings.TrimSpace(c.text) == "" }

// SetScore records a score for dim, clamped into [0,1].
// The first write wins: it returns false and leaves the stored value alone
// if the dimension already has a score.
func (c *Candidate) SetScore(dim Dimension, value float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.scores[dim]; exists {
		return false
	}
	c.scores[dim] = clampUnit(value)
	return true
}

// Score returns the stored score for dim and whether it has been computed.
func (c *Candidate) Score(dim Dimension) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.scores[dim]
	return v, ok
}

// Scores returns a copy of every score recorded so far.
func (c *Candidate) Scores() map[Dimension]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Dimension]float64, len(c.scores))
	for k, v := range c.scores {
		out[k] = v
	}
	return out
}

// HasHeuristicScores reports whether all four heuristic dimensions are set.
func (c *Candidate) HasHeuristicScores() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, dim := range HeuristicDimensions() {
		if _, ok := c.scores[dim]; !ok {
			return false
		}
	}
	return true
}

// HeuristicComposite returns the mean of the four heuristic dimensions.
// The boolean is false when any of them has not been computed yet.
func (c *Candidate) HeuristicComposite() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dims := HeuristicDimensions()
	sum := 0.0
	for _, dim := range dims {
		v, ok := c.scores[dim]
		if !ok {
			return 0, false
		}
		sum += v
	}
	return sum / float64(len(dims)), true
}

// SetFinalScore records the selector's final score. Like SetScore it is
// write-once and reports whether the value was stored.
func (c *Candidate) SetFinalScore(value float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalScore != nil {
		return false
	}
	v := clampUnit(value)
	c.finalScore = &v
	return true
}

// FinalScore returns the final score and whether selection has completed.
func (c *Candidate) FinalScore() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.finalScore == nil {
		return 0, false
	}
	return *c.finalScore, true
}

func clampUnit(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
