package domain

import "time"

// JudgeScores holds one candidate's evaluation from the external judge.
// Every field is normalized into [0,1].
type JudgeScores struct {
	Accuracy     float64 `json:"accuracy" yaml:"accuracy"`
	Fluency      float64 `json:"fluency" yaml:"fluency"`
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Terminology  float64 `json:"terminology" yaml:"terminology"`
	Register     float64 `json:"register" yaml:"register"`
}

// Composite returns the mean of the five judge dimensions.
func (j JudgeScores) Composite() float64 {
	return (j.Accuracy + j.Fluency + j.Completeness + j.Terminology + j.Register) / 5
}

// Dimensions returns the scores keyed by their candidate dimension names.
func (j JudgeScores) Dimensions() map[Dimension]float64 {
	return map[Dimension]float64{
		DimJudgeAccuracy:     j.Accuracy,
		DimJudgeFluency:      j.Fluency,
		DimJudgeCompleteness: j.Completeness,
		DimJudgeTerminology:  j.Terminology,
		DimJudgeRegister:     j.Register,
	}
}

// InRange reports whether every dimension lies within [0,1].
func (j JudgeScores) InRange() bool {
	for _, v := range j.Dimensions() {
		if v < 0 || v > 1 || v != v {
			return false
		}
	}
	return true
}

// CandidateBreakdown is the auditable per-candidate part of a Selection.
// Optional signals are pointers so that "not computed" is never confused
// with a score of zero.
type CandidateBreakdown struct {
	// Method identifies the candidate.
	Method Method `json:"method" yaml:"method"`

	// Text is the candidate translation.
	Text string `json:"text" yaml:"text"`

	// Rank is the 1-based position in the final ranking.
	Rank int `json:"rank" yaml:"rank"`

	// Scores holds every per-dimension score recorded on the candidate.
	Scores map[Dimension]float64 `json:"scores" yaml:"scores"`

	// HeuristicComposite is the mean of the four heuristic dimensions.
	HeuristicComposite float64 `json:"heuristic_composite" yaml:"heuristic_composite"`

	// Agreement is the mean similarity to the other candidates, if computed.
	Agreement *float64 `json:"agreement,omitempty" yaml:"agreement,omitempty"`

	// Blend is the heuristic and agreement blend used for judge triggering.
	Blend float64 `json:"blend" yaml:"blend"`

	// JudgeComposite is the mean of the judge dimensions, if judged.
	JudgeComposite *float64 `json:"judge_composite,omitempty" yaml:"judge_composite,omitempty"`

	// FinalScore is the score the winner was chosen by.
	FinalScore float64 `json:"final_score" yaml:"final_score"`

	// NativeConfidence is the method's self-reported confidence, if any.
	NativeConfidence *float64 `json:"native_confidence,omitempty" yaml:"native_confidence,omitempty"`

	// Malformed marks empty or whitespace-only translations.
	Malformed bool `json:"malformed" yaml:"malformed"`

	// LatencyMs is the invocation latency of the producing method.
	LatencyMs int64 `json:"latency_ms" yaml:"latency_ms"`
}

// Selection is the result of one evaluation round.
type Selection struct {
	// RoundID uniquely identifies the round in logs and traces.
	RoundID string `json:"round_id" yaml:"round_id"`

	// Mode is how candidates were produced: "parallel", "escalate" or
	// "evaluate" for supplied candidates.
	Mode string `json:"mode" yaml:"mode"`

	// SourceText is the text every candidate translated.
	SourceText string `json:"source_text" yaml:"source_text"`

	// Winner is the method whose translation was selected.
	Winner Method `json:"winner" yaml:"winner"`

	// WinnerText is the selected translation.
	WinnerText string `json:"winner_text" yaml:"winner_text"`

	// Ensemble reports whether agreement scoring ran. It is false when the
	// confidence gate accepted the primary candidate.
	Ensemble bool `json:"ensemble" yaml:"ensemble"`

	// Judged reports whether judge scores contributed to the final scores.
	Judged bool `json:"judged" yaml:"judged"`

	// JudgeRequested reports whether the closeness margin triggered the judge.
	JudgeRequested bool `json:"judge_requested" yaml:"judge_requested"`

	// JudgeSkipReason explains why the judge did not contribute, if it did not.
	JudgeSkipReason string `json:"judge_skip_reason,omitempty" yaml:"judge_skip_reason,omitempty"`

	// Candidates holds the breakdown for every candidate in rank order.
	Candidates []CandidateBreakdown `json:"candidates" yaml:"candidates"`

	// Agreement is the pairwise similarity matrix, when the ensemble ran.
	Agreement map[Method]map[Method]float64 `json:"agreement_matrix,omitempty" yaml:"agreement_matrix,omitempty"`

	// Failures lists methods that produced no candidate and why.
	Failures map[Method]string `json:"failures,omitempty" yaml:"failures,omitempty"`

	// Duration is the wall time of the round.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Breakdown returns the breakdown of the given method and whether it took
// part in the round.
func (s *Selection) Breakdown(m Method) (CandidateBreakdown, bool) {
	for _, b := range s.Candidates {
		if b.Method == m {
			return b, true
		}
	}
	return CandidateBreakdown{}, false
}
