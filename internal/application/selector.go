package application

import (
	"fmt"
	"math"
	"sort"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
)

// Weights control how the score signals are combined.
type Weights struct {
	// Heuristic and Agreement weight the two cheap signals in the blend.
	// They must sum to 1.
	Heuristic float64 `yaml:"heuristic" json:"heuristic" mapstructure:"heuristic" validate:"gte=0,lte=1"`
	Agreement float64 `yaml:"agreement" json:"agreement" mapstructure:"agreement" validate:"gte=0,lte=1"`

	// Judge is the share of the judge composite in the final score when the
	// judge ran. The blend gets the remainder.
	Judge float64 `yaml:"judge" json:"judge" mapstructure:"judge" validate:"gte=0,lte=1"`
}

// DefaultWeights returns equal heuristic and agreement weights and a judge
// share of 0.6.
func DefaultWeights() Weights {
	return Weights{Heuristic: 0.5, Agreement: 0.5, Judge: 0.6}
}

// Validate checks the weight ranges and that the blend weights sum to 1.
func (w Weights) Validate() error {
	verr := domain.NewValidationError("weights")
	for name, v := range map[string]float64{"heuristic": w.Heuristic, "agreement": w.Agreement, "judge": w.Judge} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			verr.AddError(fmt.Sprintf("%s weight must be in [0,1], got %v", name, v))
		}
	}
	if math.Abs(w.Heuristic+w.Agreement-1) > 1e-9 {
		verr.AddError(fmt.Sprintf("heuristic and agreement weights must sum to 1, got %v", w.Heuristic+w.Agreement))
	}
	if verr.HasErrors() {
		sort.Strings(verr.Errors)
		return verr
	}
	return nil
}

// Selector merges heuristic, agreement and judge scores into one ranking.
type Selector struct {
	weights Weights
}

// NewSelector validates the weights and returns a selector.
func NewSelector(weights Weights) (*Selector, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Selector{weights: weights}, nil
}

// Weights returns the configured weights.
func (s *Selector) Weights() Weights { return s.weights }

// Blend combines a heuristic composite and an agreement score.
func (s *Selector) Blend(heuristic, agreement float64) float64 {
	return s.weights.Heuristic*heuristic + s.weights.Agreement*agreement
}

// Blends returns the blend of every candidate that has heuristic scores and
// an agreement entry.
func (s *Selector) Blends(candidates []*domain.Candidate, agreement map[domain.Method]float64) map[domain.Method]float64 {
	out := make(map[domain.Method]float64, len(candidates))
	for _, c := range candidates {
		h, ok := c.HeuristicComposite()
		if !ok {
			continue
		}
		a, ok := agreement[c.Method()]
		if !ok {
			continue
		}
		out[c.Method()] = s.Blend(h, a)
	}
	return out
}

// Select ranks the candidates of one round and picks the winner.
//
// agreement is nil when the ensemble did not run; the final score is then the
// heuristic composite alone. judge is nil when the judge did not run or
// failed. When present, both must cover every candidate. Agreement, judge and
// final scores are recorded on the candidates; as with every score, the
// first recorded value wins. Ties are broken by method priority.
func (s *Selector) Select(
	candidates []*domain.Candidate,
	agreement map[domain.Method]float64,
	judge map[domain.Method]domain.JudgeScores,
) (*domain.Selection, error) {
	if err := validateRound(candidates); err != nil {
		return nil, err
	}

	breakdowns := make([]domain.CandidateBreakdown, 0, len(candidates))
	for _, c := range candidates {
		b, err := s.score(c, agreement, judge)
		if err != nil {
			return nil, err
		}
		breakdowns = append(breakdowns, b)
	}

	sort.SliceStable(breakdowns, func(i, j int) bool {
		if breakdowns[i].FinalScore != breakdowns[j].FinalScore {
			return breakdowns[i].FinalScore > breakdowns[j].FinalScore
		}
		return breakdowns[i].Method.Priority() < breakdowns[j].Method.Priority()
	})
	for i := range breakdowns {
		breakdowns[i].Rank = i + 1
	}

	winner := breakdowns[0]
	return &domain.Selection{
		SourceText: candidates[0].SourceText(),
		Winner:     winner.Method,
		WinnerText: winner.Text,
		Ensemble:   agreement != nil,
		Judged:     judge != nil,
		Candidates: breakdowns,
	}, nil
}

func (s *Selector) score(
	c *domain.Candidate,
	agreement map[domain.Method]float64,
	judge map[domain.Method]domain.JudgeScores,
) (domain.CandidateBreakdown, error) {
	m := c.Method()
	heuristic, _ := c.HeuristicComposite()
	b := domain.CandidateBreakdown{
		Method:             m,
		Text:               c.Text(),
		HeuristicComposite: heuristic,
		Blend:              heuristic,
		Malformed:          c.Malformed(),
		LatencyMs:          c.Latency().Milliseconds(),
	}
	if v, ok := c.NativeConfidence(); ok {
		b.NativeConfidence = &v
	}

	final := heuristic
	if agreement != nil {
		a, ok := agreement[m]
		if !ok {
			return b, fmt.Errorf("%w: no agreement score for %s", domain.ErrMissingScores, m)
		}
		c.SetScore(domain.DimAgreement, a)
		a, _ = c.Score(domain.DimAgreement)
		b.Agreement = &a
		b.Blend = s.Blend(heuristic, a)
		final = b.Blend
	}
	if judge != nil {
		js, ok := judge[m]
		if !ok {
			return b, fmt.Errorf("%w: no judge scores for %s", domain.ErrMissingScores, m)
		}
		for dim, v := range js.Dimensions() {
			c.SetScore(dim, v)
		}
		jc := js.Composite()
		b.JudgeComposite = &jc
		final = s.weights.Judge*jc + (1-s.weights.Judge)*b.Blend
	}

	c.SetFinalScore(final)
	b.FinalScore, _ = c.FinalScore()
	b.Scores = c.Scores()
	return b, nil
}

// validateRound checks the invariants every round must hold before
// selection.
func validateRound(candidates []*domain.Candidate) error {
	if len(candidates) == 0 {
		return domain.NewNoCandidatesError(nil)
	}
	for _, c := range candidates {
		if c == nil {
			return fmt.Errorf("%w: nil candidate", domain.ErrMissingScores)
		}
	}
	seen := make(map[domain.Method]struct{}, len(candidates))
	source := candidates[0].SourceText()
	for _, c := range candidates {
		if _, dup := seen[c.Method()]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateMethod, c.Method())
		}
		seen[c.Method()] = struct{}{}
		if c.SourceText() != source {
			return fmt.Errorf("%w: %s", domain.ErrSourceMismatch, c.Method())
		}
		if !c.HasHeuristicScores() {
			return fmt.Errorf("%w: %s", domain.ErrMissingScores, c.Method())
		}
	}
	return nil
}
