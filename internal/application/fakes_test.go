package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/middleware"
	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/quality"
	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

const testSource = "هذا نص تجريبي للترجمة. وهو يحتوي على جملتين."

// presetScorer records a fixed composite on every heuristic dimension.
type presetScorer map[domain.Method]float64

func (p presetScorer) Apply(c *domain.Candidate) quality.HeuristicScores {
	v := p[c.Method()]
	for _, dim := range domain.HeuristicDimensions() {
		c.SetScore(dim, v)
	}
	return quality.HeuristicScores{Completeness: v, Accuracy: v, Fluency: v, Consistency: v}
}

// presetAgreement reports fixed agreement scores and counts its calls.
type presetAgreement struct {
	scores map[domain.Method]float64
	calls  atomic.Int32
}

func (p *presetAgreement) Apply(cs []*domain.Candidate) quality.AgreementResult {
	p.calls.Add(1)
	res := quality.AgreementResult{
		Scores: make(map[domain.Method]float64, len(cs)),
		Matrix: make(map[domain.Method]map[domain.Method]float64, len(cs)),
	}
	for _, c := range cs {
		v, ok := p.scores[c.Method()]
		if !ok {
			v = quality.NeutralAgreement
		}
		res.Scores[c.Method()] = v
		res.Matrix[c.Method()] = map[domain.Method]float64{}
		c.SetScore(domain.DimAgreement, v)
	}
	return res
}

// fakeJudge returns canned scores or an error.
type fakeJudge struct {
	scores map[domain.Method]domain.JudgeScores
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeJudge) Evaluate(ctx context.Context, _ string, _ []ports.JudgeEntry) (map[domain.Method]domain.JudgeScores, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.scores, f.err
}

func uniformJudge(v float64) domain.JudgeScores {
	return domain.JudgeScores{Accuracy: v, Fluency: v, Completeness: v, Terminology: v, Register: v}
}

// scriptedTranslator returns a fixed translation or error, optionally after
// a delay, and counts its calls.
type scriptedTranslator struct {
	text  string
	conf  *float64
	err   error
	delay time.Duration
	calls atomic.Int32

	// stall, when set, blocks the call until it is closed without looking
	// at ctx.
	stall chan struct{}
}

func (s *scriptedTranslator) Translate(ctx context.Context, _ ports.TranslationRequest) (ports.Translation, error) {
	s.calls.Add(1)
	if s.stall != nil {
		<-s.stall
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ports.Translation{}, ctx.Err()
		}
	}
	if s.err != nil {
		return ports.Translation{}, s.err
	}
	return ports.Translation{Text: s.text, NativeConfidence: s.conf}, nil
}

func ok(text string) *scriptedTranslator { return &scriptedTranslator{text: text} }

func failing(err error) *scriptedTranslator { return &scriptedTranslator{err: err} }

func translators(ts map[domain.Method]*scriptedTranslator) map[domain.Method]ports.Translator {
	out := make(map[domain.Method]ports.Translator, len(ts))
	for m, t := range ts {
		out[m] = t
	}
	return out
}

// scoredCandidate builds a candidate whose heuristic composite is exactly v.
func scoredCandidate(m domain.Method, text string, v float64) *domain.Candidate {
	c := domain.NewCandidate(m, text, testSource, nil)
	presetScorer{m: v}.Apply(c)
	return c
}

func ptr(v float64) *float64 { return &v }

// recordingObserver keeps the notifications the engine sends.
type recordingObserver struct {
	middleware.NopRoundObserver

	mu          sync.Mutex
	cacheHits   []bool
	roundModes  []string
	roundErrors []error
}

func (o *recordingObserver) CacheLookup(_ context.Context, _ domain.Method, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cacheHits = append(o.cacheHits, hit)
}

func (o *recordingObserver) RoundFinished(_ context.Context, mode string, _ *domain.Selection, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.roundModes = append(o.roundModes, mode)
	o.roundErrors = append(o.roundErrors, err)
}
