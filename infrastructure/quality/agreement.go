package quality

import (
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/textutil"
)

// Similarity algorithms supported by the AgreementAnalyzer.
const (
	AlgorithmJaccard     = "jaccard"
	AlgorithmLevenshtein = "levenshtein"
	AlgorithmHybrid      = "hybrid"
)

// NeutralAgreement is reported for a candidate that has no peers to agree with.
const NeutralAgreement = 0.5

// AgreementConfig selects the similarity measure.
type AgreementConfig struct {
	Algorithm string `yaml:"algorithm" json:"algorithm" mapstructure:"algorithm" validate:"required,oneof=jaccard levenshtein hybrid"`
}

// DefaultAgreementConfig returns the default configuration using Jaccard
// token overlap.
func DefaultAgreementConfig() AgreementConfig {
	return AgreementConfig{Algorithm: AlgorithmJaccard}
}

// AgreementResult is the outcome of comparing every candidate of a round
// with every other.
type AgreementResult struct {
	// Scores maps each method to its mean similarity to the other candidates.
	Scores map[domain.Method]float64

	// Matrix holds the pairwise similarities. The diagonal is omitted.
	Matrix map[domain.Method]map[domain.Method]float64
}

// AgreementAnalyzer rates each candidate by how closely it agrees with the
// other candidates of the same round.
type AgreementAnalyzer struct {
	algorithm string
}

// NewAgreementAnalyzer validates config and returns an analyzer.
func NewAgreementAnalyzer(config AgreementConfig) (*AgreementAnalyzer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("agreement configuration validation failed: %w", err)
	}
	return &AgreementAnalyzer{algorithm: config.Algorithm}, nil
}

// Algorithm returns the configured similarity measure.
func (a *AgreementAnalyzer) Algorithm() string { return a.algorithm }

// Similarity returns the similarity of two translations in [0,1]. An empty
// text agrees with nothing.
func (a *AgreementAnalyzer) Similarity(x, y string) float64 {
	switch a.algorithm {
	case AlgorithmLevenshtein:
		return editSimilarity(x, y)
	case AlgorithmHybrid:
		return (tokenSimilarity(x, y) + editSimilarity(x, y)) / 2
	default:
		return tokenSimilarity(x, y)
	}
}

// Score returns the mean similarity of candidate to every other candidate in
// all. The candidate itself is excluded by method. Without peers the score
// is NeutralAgreement.
func (a *AgreementAnalyzer) Score(candidate *domain.Candidate, all []*domain.Candidate) float64 {
	var sum float64
	var peers int
	for _, other := range all {
		if other.Method() == candidate.Method() {
			continue
		}
		sum += a.Similarity(candidate.Text(), other.Text())
		peers++
	}
	if peers == 0 {
		return NeutralAgreement
	}
	return sum / float64(peers)
}

// Analyze computes the full agreement matrix and every candidate's mean
// agreement. Each pair is compared once.
func (a *AgreementAnalyzer) Analyze(candidates []*domain.Candidate) AgreementResult {
	result := AgreementResult{
		Scores: make(map[domain.Method]float64, len(candidates)),
		Matrix: make(map[domain.Method]map[domain.Method]float64, len(candidates)),
	}
	for _, c := range candidates {
		result.Matrix[c.Method()] = make(map[domain.Method]float64, len(candidates)-1)
	}

	for i, x := range candidates {
		for _, y := range candidates[i+1:] {
			sim := a.Similarity(x.Text(), y.Text())
			result.Matrix[x.Method()][y.Method()] = sim
			result.Matrix[y.Method()][x.Method()] = sim
		}
	}

	for _, c := range candidates {
		row := result.Matrix[c.Method()]
		if len(row) == 0 {
			result.Scores[c.Method()] = NeutralAgreement
			continue
		}
		var sum float64
		for _, v := range row {
			sum += v
		}
		result.Scores[c.Method()] = sum / float64(len(row))
	}
	return result
}

// Apply runs Analyze and records each candidate's agreement on it.
func (a *AgreementAnalyzer) Apply(candidates []*domain.Candidate) AgreementResult {
	result := a.Analyze(candidates)
	for _, c := range candidates {
		c.SetScore(domain.DimAgreement, result.Scores[c.Method()])
	}
	return result
}

// tokenSimilarity is the Jaccard index of the folded token sets.
func tokenSimilarity(x, y string) float64 {
	xs, ys := tokenSet(x), tokenSet(y)
	if len(xs) == 0 || len(ys) == 0 {
		return 0
	}
	inter := 0
	for t := range xs {
		if _, ok := ys[t]; ok {
			inter++
		}
	}
	union := len(xs) + len(ys) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	tokens := textutil.Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// editSimilarity is 1 - distance/maxLen over folded text, with lengths
// counted in runes so multi-byte scripts are not over-penalized.
func editSimilarity(x, y string) float64 {
	x, y = textutil.Fold(x), textutil.Fold(y)
	if x == "" || y == "" {
		return 0
	}
	if x == y {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(x), utf8.RuneCountInString(y))
	distance := levenshtein.ComputeDistance(x, y)
	return clamp(1 - float64(distance)/float64(maxLen))
}
