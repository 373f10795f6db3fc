package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// DefaultClosenessMargin is the blend gap below which the top two
// candidates are considered too close to call.
const DefaultClosenessMargin = 0.1

// Reasons recorded when the judge does not contribute to a round.
const (
	SkipReasonGate          = "ensemble skipped by confidence gate"
	SkipReasonMargin        = "top candidates separated by at least the closeness margin"
	SkipReasonSingle        = "fewer than two candidates"
	SkipReasonNotConfigured = "no judge configured"
)

// JudgeOutcome is the result of one arbitration attempt. Scores is nil
// unless Judged is true; a failed arbitration never yields zero scores.
type JudgeOutcome struct {
	Judged  bool
	Scores  map[domain.Method]domain.JudgeScores
	Reason  string
	Err     error
	Elapsed time.Duration
}

// JudgeArbiter decides when a round is ambiguous enough to consult the
// external judge and turns every judge failure into an unjudged outcome.
type JudgeArbiter struct {
	judge   ports.Judge
	margin  float64
	timeout time.Duration
	logger  zerolog.Logger
}

// NewJudgeArbiter creates an arbiter. judge may be nil, in which case every
// arbitration reports SkipReasonNotConfigured. A zero timeout leaves the
// deadline to the caller's context.
func NewJudgeArbiter(judge ports.Judge, margin float64, timeout time.Duration, logger zerolog.Logger) (*JudgeArbiter, error) {
	if margin <= 0 || margin > 1 {
		return nil, fmt.Errorf("%w: closeness margin must be in (0,1], got %v", domain.ErrInvalidConfiguration, margin)
	}
	return &JudgeArbiter{judge: judge, margin: margin, timeout: timeout, logger: logger}, nil
}

// Margin returns the closeness margin.
func (a *JudgeArbiter) Margin() float64 { return a.margin }

// ShouldArbitrate reports whether the two highest blends differ by less
// than the margin. It needs at least two candidates.
func (a *JudgeArbiter) ShouldArbitrate(blends map[domain.Method]float64) bool {
	if len(blends) < 2 {
		return false
	}
	values := make([]float64, 0, len(blends))
	for _, v := range blends {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values[0]-values[1] < a.margin
}

// Arbitrate asks the judge to score every candidate. It never fails: a
// transport error, a reply that omits a candidate or a score outside [0,1]
// produce an outcome with Judged false and the reason set.
func (a *JudgeArbiter) Arbitrate(ctx context.Context, sourceText string, candidates []*domain.Candidate) JudgeOutcome {
	if a.judge == nil {
		return JudgeOutcome{Reason: SkipReasonNotConfigured}
	}

	entries := make([]ports.JudgeEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = ports.JudgeEntry{Method: c.Method(), Text: c.Text()}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	scores, err := a.judge.Evaluate(ctx, sourceText, entries)
	elapsed := time.Since(start)
	if err != nil {
		reason := "judge request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "judge timed out"
		}
		return a.unjudged(reason, err, elapsed)
	}

	for _, e := range entries {
		s, ok := scores[e.Method]
		if !ok {
			return a.unjudged("judge reply omitted a candidate", fmt.Errorf("missing scores for %s", e.Method), elapsed)
		}
		if !s.InRange() {
			return a.unjudged("judge scores out of range", fmt.Errorf("scores for %s outside [0,1]", e.Method), elapsed)
		}
	}

	kept := make(map[domain.Method]domain.JudgeScores, len(entries))
	for _, e := range entries {
		kept[e.Method] = scores[e.Method]
	}
	return JudgeOutcome{Judged: true, Scores: kept, Elapsed: elapsed}
}

func (a *JudgeArbiter) unjudged(reason string, err error, elapsed time.Duration) JudgeOutcome {
	wrapped := domain.NewJudgeUnavailableError(reason, err)
	a.logger.Warn().Err(wrapped).Dur("elapsed", elapsed).Msg("judge unavailable, selecting without judge scores")
	return JudgeOutcome{Reason: reason, Err: wrapped, Elapsed: elapsed}
}
