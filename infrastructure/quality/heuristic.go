// Package quality implements the scorers that rate translation candidates:
// the per-candidate heuristic scorer, the cross-candidate agreement analyzer
// and the LLM-backed judge.
package quality

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/textutil"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// HeuristicConfig tunes the HeuristicScorer. The zero value is not usable;
// start from DefaultHeuristicConfig.
type HeuristicConfig struct {
	// TargetLang is the language the candidates were translated into.
	// Untranslated-script penalties only apply when it is not Arabic.
	TargetLang string `yaml:"target_lang" json:"target_lang" mapstructure:"target_lang" validate:"required"`

	// ExpectedLengthRatio is the typical target/source length ratio in runes
	// for the language pair.
	ExpectedLengthRatio float64 `yaml:"expected_length_ratio" json:"expected_length_ratio" mapstructure:"expected_length_ratio" validate:"gt=0,lte=5"`

	// LengthBandLow and LengthBandHigh bound the normalized ratio inside
	// which length deviation decays slowly.
	LengthBandLow  float64 `yaml:"length_band_low" json:"length_band_low" mapstructure:"length_band_low" validate:"gt=0,lte=1"`
	LengthBandHigh float64 `yaml:"length_band_high" json:"length_band_high" mapstructure:"length_band_high" validate:"gte=1,gtfield=LengthBandLow"`

	// InBandSlope is the per-unit deviation penalty inside the band and
	// OutOfBandSlope the penalty for ratios above it.
	InBandSlope    float64 `yaml:"in_band_slope" json:"in_band_slope" mapstructure:"in_band_slope" validate:"gte=0,lte=1"`
	OutOfBandSlope float64 `yaml:"out_of_band_slope" json:"out_of_band_slope" mapstructure:"out_of_band_slope" validate:"gte=0,lte=2"`

	// SentenceSlope penalizes deviation of the sentence-count ratio from 1.
	SentenceSlope float64 `yaml:"sentence_slope" json:"sentence_slope" mapstructure:"sentence_slope" validate:"gte=0,lte=1"`

	// UntranslatedPenalty multiplies the share of Arabic script left in the
	// output. The resulting base accuracy never drops below UntranslatedFloor.
	UntranslatedPenalty float64 `yaml:"untranslated_penalty" json:"untranslated_penalty" mapstructure:"untranslated_penalty" validate:"gte=0"`
	UntranslatedFloor   float64 `yaml:"untranslated_floor" json:"untranslated_floor" mapstructure:"untranslated_floor" validate:"gte=0,lte=1"`

	// UntranslatedRun is the length of an Arabic-script run that caps
	// accuracy at UntranslatedCap.
	UntranslatedRun int     `yaml:"untranslated_run" json:"untranslated_run" mapstructure:"untranslated_run" validate:"gte=1"`
	UntranslatedCap float64 `yaml:"untranslated_cap" json:"untranslated_cap" mapstructure:"untranslated_cap" validate:"gte=0,lte=1"`

	// ConfidenceWeight is the share of native confidence in the accuracy
	// blend when the method reports one.
	ConfidenceWeight float64 `yaml:"confidence_weight" json:"confidence_weight" mapstructure:"confidence_weight" validate:"gte=0,lte=1"`

	// VarietyFloor is the unique/total token ratio at which lexical variety
	// earns full credit.
	VarietyFloor float64 `yaml:"variety_floor" json:"variety_floor" mapstructure:"variety_floor" validate:"gt=0,lte=1"`

	// RepetitionTolerance is added to the unique trigram ratio.
	RepetitionTolerance float64 `yaml:"repetition_tolerance" json:"repetition_tolerance" mapstructure:"repetition_tolerance" validate:"gte=0,lte=1"`

	// ShortTextWords is the word count below which consistency is not
	// measured and ShortTextConsistency is reported instead.
	ShortTextWords       int     `yaml:"short_text_words" json:"short_text_words" mapstructure:"short_text_words" validate:"gte=3"`
	ShortTextConsistency float64 `yaml:"short_text_consistency" json:"short_text_consistency" mapstructure:"short_text_consistency" validate:"gte=0,lte=1"`
}

// DefaultHeuristicConfig returns the defaults for Arabic to English.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		TargetLang:           "en",
		ExpectedLengthRatio:  1.0,
		LengthBandLow:        0.5,
		LengthBandHigh:       2.0,
		InBandSlope:          0.3,
		OutOfBandSlope:       0.5,
		SentenceSlope:        0.4,
		UntranslatedPenalty:  5,
		UntranslatedFloor:    0.3,
		UntranslatedRun:      2,
		UntranslatedCap:      0.6,
		ConfidenceWeight:     0.3,
		VarietyFloor:         0.5,
		RepetitionTolerance:  0.1,
		ShortTextWords:       10,
		ShortTextConsistency: 0.8,
	}
}

// Fluency component weights.
const (
	punctuationWeight    = 0.3
	capitalizationWeight = 0.25
	varietyWeight        = 0.3
	sentenceLengthWeight = 0.15
)

// HeuristicScores are the four isolated quality dimensions of a candidate.
type HeuristicScores struct {
	Completeness float64
	Accuracy     float64
	Fluency      float64
	Consistency  float64
}

// Composite returns the mean of the four dimensions.
func (h HeuristicScores) Composite() float64 {
	return (h.Completeness + h.Accuracy + h.Fluency + h.Consistency) / 4
}

// Dimensions returns the scores keyed by dimension.
func (h HeuristicScores) Dimensions() map[domain.Dimension]float64 {
	return map[domain.Dimension]float64{
		domain.DimCompleteness: h.Completeness,
		domain.DimAccuracy:     h.Accuracy,
		domain.DimFluency:      h.Fluency,
		domain.DimConsistency:  h.Consistency,
	}
}

// HeuristicScorer rates a candidate in isolation. It is a pure function of
// the candidate text, the source text and the native confidence, and never
// fails: empty or whitespace-only translations score 0 on every dimension.
type HeuristicScorer struct {
	config       HeuristicConfig
	arabicTarget bool
}

// NewHeuristicScorer validates config and returns a scorer.
func NewHeuristicScorer(config HeuristicConfig) (*HeuristicScorer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("heuristic scorer configuration validation failed: %w", err)
	}
	return &HeuristicScorer{
		config:       config,
		arabicTarget: strings.EqualFold(config.TargetLang, "ar"),
	}, nil
}

// Score computes the heuristic dimensions of candidate against sourceText.
func (h *HeuristicScorer) Score(candidate *domain.Candidate, sourceText string) HeuristicScores {
	var conf *float64
	if v, ok := candidate.NativeConfidence(); ok {
		conf = &v
	}
	return h.ScoreText(candidate.Text(), sourceText, conf)
}

// ScoreText computes the heuristic dimensions of a raw translation.
func (h *HeuristicScorer) ScoreText(text, sourceText string, nativeConfidence *float64) HeuristicScores {
	text = strings.TrimSpace(text)
	if text == "" {
		return HeuristicScores{}
	}
	return HeuristicScores{
		Completeness: h.completeness(text, strings.TrimSpace(sourceText)),
		Accuracy:     h.accuracy(text, nativeConfidence),
		Fluency:      h.fluency(text),
		Consistency:  h.consistency(text),
	}
}

// Apply scores candidate against its own source text and records the
// dimensions on it. Dimensions already present are left untouched and the
// recorded values are returned.
func (h *HeuristicScorer) Apply(candidate *domain.Candidate) HeuristicScores {
	if !candidate.HasHeuristicScores() {
		for dim, v := range h.Score(candidate, candidate.SourceText()).Dimensions() {
			candidate.SetScore(dim, v)
		}
	}
	s := candidate.Scores()
	return HeuristicScores{
		Completeness: s[domain.DimCompleteness],
		Accuracy:     s[domain.DimAccuracy],
		Fluency:      s[domain.DimFluency],
		Consistency:  s[domain.DimConsistency],
	}
}

// completeness averages a length-ratio score and a sentence-count score.
// The length score is 1 at the expected ratio and decays linearly with the
// deviation inside the band. Below the band it falls proportionally to 0 at
// an empty output; above it, it keeps decaying at OutOfBandSlope down to 0.
func (h *HeuristicScorer) completeness(text, source string) float64 {
	srcLen := textutil.RuneLen(source)
	if srcLen == 0 {
		return 1
	}

	ratio := float64(textutil.RuneLen(text)) / float64(srcLen) / h.config.ExpectedLengthRatio
	var lengthScore float64
	switch {
	case ratio < h.config.LengthBandLow:
		edge := 1 - h.config.InBandSlope*(1-h.config.LengthBandLow)
		lengthScore = edge * ratio / h.config.LengthBandLow
	case ratio > h.config.LengthBandHigh:
		edge := 1 - h.config.InBandSlope*(h.config.LengthBandHigh-1)
		lengthScore = edge - h.config.OutOfBandSlope*(ratio-h.config.LengthBandHigh)
	default:
		lengthScore = 1 - h.config.InBandSlope*math.Abs(1-ratio)
	}

	srcSentences := max(len(textutil.SourceSentences(source)), 1)
	sentenceRatio := float64(len(textutil.Sentences(text))) / float64(srcSentences)
	sentenceScore := 1 - h.config.SentenceSlope*math.Abs(1-sentenceRatio)

	return (clamp(lengthScore) + clamp(sentenceScore)) / 2
}

// accuracy penalizes Arabic script left in a non-Arabic output and blends in
// the method's own confidence when it reports one.
func (h *HeuristicScorer) accuracy(text string, nativeConfidence *float64) float64 {
	base := 1.0
	if !h.arabicTarget {
		base = math.Max(h.config.UntranslatedFloor, 1-h.config.UntranslatedPenalty*textutil.ArabicRatio(text))
		if textutil.HasArabicRun(text, h.config.UntranslatedRun) {
			base = math.Min(base, h.config.UntranslatedCap)
		}
	}
	if nativeConfidence == nil {
		return clamp(base)
	}
	w := h.config.ConfidenceWeight
	return clamp((1-w)*base + w*clamp(*nativeConfidence))
}

func (h *HeuristicScorer) fluency(text string) float64 {
	var punctuation float64
	if strings.IndexFunc(text, textutil.IsSentenceEnd) >= 0 {
		punctuation = 1
	}

	sentences := textutil.Sentences(text)
	capitalized := 0
	for _, s := range sentences {
		if startsCapitalized(s) {
			capitalized++
		}
	}
	var capitalization float64
	if len(sentences) > 0 {
		capitalization = float64(capitalized) / float64(len(sentences))
	}

	tokens := textutil.Tokens(text)
	var variety float64
	if len(tokens) > 0 {
		unique := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			unique[t] = struct{}{}
		}
		variety = math.Min(1, float64(len(unique))/float64(len(tokens))/h.config.VarietyFloor)
	}

	sentenceLength := 0.5
	if len(sentences) > 0 {
		avg := float64(len(textutil.Words(text))) / float64(len(sentences))
		if avg >= 8 && avg <= 25 {
			sentenceLength = 1
		}
	}

	return clamp(punctuationWeight*punctuation +
		capitalizationWeight*capitalization +
		varietyWeight*variety +
		sentenceLengthWeight*sentenceLength)
}

// startsCapitalized reports whether the first letter of s is not lower case.
// Scripts without case count as capitalized.
func startsCapitalized(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return !unicode.IsLower(r)
		}
	}
	return false
}

// consistency measures word-trigram repetition. Looping output repeats the
// same clause and drives the unique trigram ratio down.
func (h *HeuristicScorer) consistency(text string) float64 {
	words := textutil.Tokens(text)
	if len(words) < h.config.ShortTextWords {
		return h.config.ShortTextConsistency
	}
	total := len(words) - 2
	seen := make(map[string]struct{}, total)
	for i := 0; i < total; i++ {
		seen[words[i]+" "+words[i+1]+" "+words[i+2]] = struct{}{}
	}
	return math.Min(1, float64(len(seen))/float64(total)+h.config.RepetitionTolerance)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
