package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/middleware"
	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/quality"
	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// Operating modes of an Engine.
const (
	// ModeParallel invokes every method at once and gates on the primary.
	ModeParallel = "parallel"
	// ModeEscalate invokes methods in priority order until one succeeds,
	// gates on it and only then invokes the rest.
	ModeEscalate = "escalate"
	// ModeEvaluate marks rounds over candidates supplied by the caller.
	ModeEvaluate = "evaluate"
)

// DefaultMethodTimeout bounds a single method invocation.
const DefaultMethodTimeout = 120 * time.Second

// CandidateScorer records the heuristic dimensions of a candidate.
// *quality.HeuristicScorer implements it.
type CandidateScorer interface {
	Apply(candidate *domain.Candidate) quality.HeuristicScores
}

// AgreementScorer records the agreement of every candidate of a round.
// *quality.AgreementAnalyzer implements it.
type AgreementScorer interface {
	Apply(candidates []*domain.Candidate) quality.AgreementResult
}

// Engine runs evaluation rounds: it invokes the configured translation
// methods, scores the candidates and selects a winner. An Engine keeps no
// state between rounds and is safe for concurrent use.
type Engine struct {
	translators map[domain.Method]ports.Translator
	methods     []domain.Method
	unavailable map[domain.Method]error

	scorer   CandidateScorer
	analyzer AgreementScorer
	arbiter  *JudgeArbiter
	selector *Selector

	gate          GateConfig
	mode          string
	methodTimeout time.Duration
	concurrency   int
	sourceLang    string
	targetLang    string

	cache    ports.CacheStore
	cacheTTL time.Duration

	observer middleware.RoundObserver
	logger   zerolog.Logger
	newID    func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMethods restricts the attempted methods. Order does not matter; methods
// are always attempted and tie-broken in priority order.
func WithMethods(methods ...domain.Method) EngineOption {
	return func(e *Engine) { e.methods = append([]domain.Method(nil), methods...) }
}

// WithUnavailable records methods that are configured but could not be
// built. Every round lists them among its failures.
func WithUnavailable(unavailable map[domain.Method]error) EngineOption {
	return func(e *Engine) {
		for m, err := range unavailable {
			e.unavailable[m] = err
		}
	}
}

// WithGate sets the confidence gate.
func WithGate(gate GateConfig) EngineOption {
	return func(e *Engine) { e.gate = gate }
}

// WithMode selects ModeParallel or ModeEscalate.
func WithMode(mode string) EngineOption {
	return func(e *Engine) { e.mode = mode }
}

// WithMethodTimeout bounds each method invocation. Zero disables the bound.
func WithMethodTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.methodTimeout = d }
}

// WithConcurrency limits in-flight method invocations per round. Zero means
// one per method.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) { e.concurrency = n }
}

// WithLanguages sets the default language pair of requests.
func WithLanguages(source, target string) EngineOption {
	return func(e *Engine) { e.sourceLang, e.targetLang = source, target }
}

// WithScorer replaces the default heuristic scorer.
func WithScorer(s CandidateScorer) EngineOption {
	return func(e *Engine) { e.scorer = s }
}

// WithAgreement replaces the default agreement analyzer.
func WithAgreement(a AgreementScorer) EngineOption {
	return func(e *Engine) { e.analyzer = a }
}

// WithArbiter sets the judge arbiter. Without one the judge never runs.
func WithArbiter(a *JudgeArbiter) EngineOption {
	return func(e *Engine) { e.arbiter = a }
}

// WithSelector replaces the default selector.
func WithSelector(s *Selector) EngineOption {
	return func(e *Engine) { e.selector = s }
}

// WithCache caches successful translations for ttl. A zero ttl never expires.
func WithCache(cache ports.CacheStore, ttl time.Duration) EngineOption {
	return func(e *Engine) { e.cache, e.cacheTTL = cache, ttl }
}

// WithObserver sets the round observer.
func WithObserver(o middleware.RoundObserver) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given translators. Without
// WithMethods every translator is attempted. An engine without translators
// can still Evaluate supplied candidates.
func NewEngine(translators map[domain.Method]ports.Translator, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		translators:   translators,
		unavailable:   make(map[domain.Method]error),
		gate:          DefaultGateConfig(),
		mode:          ModeParallel,
		methodTimeout: DefaultMethodTimeout,
		sourceLang:    "ar",
		targetLang:    "en",
		observer:      middleware.NopRoundObserver{},
		logger:        zerolog.Nop(),
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.methods == nil {
		for m := range translators {
			e.methods = append(e.methods, m)
		}
		for m := range e.unavailable {
			if _, ok := translators[m]; !ok {
				e.methods = append(e.methods, m)
			}
		}
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	domain.SortByPriority(e.methods)

	if e.scorer == nil {
		cfg := quality.DefaultHeuristicConfig()
		cfg.TargetLang = e.targetLang
		scorer, err := quality.NewHeuristicScorer(cfg)
		if err != nil {
			return nil, err
		}
		e.scorer = scorer
	}
	if e.analyzer == nil {
		analyzer, err := quality.NewAgreementAnalyzer(quality.DefaultAgreementConfig())
		if err != nil {
			return nil, err
		}
		e.analyzer = analyzer
	}
	if e.arbiter == nil {
		arbiter, err := NewJudgeArbiter(nil, DefaultClosenessMargin, 0, e.logger)
		if err != nil {
			return nil, err
		}
		e.arbiter = arbiter
	}
	if e.selector == nil {
		selector, err := NewSelector(DefaultWeights())
		if err != nil {
			return nil, err
		}
		e.selector = selector
	}
	return e, nil
}

func (e *Engine) validate() error {
	verr := domain.NewValidationError("engine")
	seen := make(map[domain.Method]bool, len(e.methods))
	for _, m := range e.methods {
		if !m.Valid() {
			verr.AddError(fmt.Sprintf("unknown method %q", m))
		}
		if seen[m] {
			verr.AddError(fmt.Sprintf("method %s listed twice", m))
		}
		seen[m] = true
		if e.translators[m] == nil && e.unavailable[m] == nil {
			verr.AddError(fmt.Sprintf("method %s has no translator", m))
		}
	}
	if e.mode != ModeParallel && e.mode != ModeEscalate {
		verr.AddError(fmt.Sprintf("mode must be %s or %s, got %q", ModeParallel, ModeEscalate, e.mode))
	}
	if !e.gate.Policy.Valid() {
		verr.AddError(fmt.Sprintf("unknown threshold policy %q", e.gate.Policy))
	}
	if e.methodTimeout < 0 {
		verr.AddError("method timeout must not be negative")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Methods returns the attempted methods in priority order.
func (e *Engine) Methods() []domain.Method {
	return append([]domain.Method(nil), e.methods...)
}

// Mode returns the operating mode.
func (e *Engine) Mode() string { return e.mode }

// round holds the state of one evaluation. It is owned by a single goroutine.
type round struct {
	id         string
	mode       string
	source     string
	start      time.Time
	candidates []*domain.Candidate
	failures   map[domain.Method]*domain.MethodUnavailableError
	ensemble   bool
	logger     zerolog.Logger
}

// invocation is the outcome of calling one method.
type invocation struct {
	method    domain.Method
	candidate *domain.Candidate
	failure   *domain.MethodUnavailableError
}

func (e *Engine) newRound(mode, source string) *round {
	id := e.newID()
	return &round{
		id:       id,
		mode:     mode,
		source:   source,
		start:    time.Now(),
		failures: make(map[domain.Method]*domain.MethodUnavailableError),
		logger:   e.logger.With().Str("round_id", id).Str("mode", mode).Logger(),
	}
}

func (r *round) record(inv invocation) {
	if inv.failure != nil {
		r.failures[inv.method] = inv.failure
		return
	}
	r.candidates = append(r.candidates, inv.candidate)
}

// Translate runs one round for req. Empty language fields default to the
// engine's language pair. Method failures are recorded on the selection;
// only a round without a single candidate fails, with a
// *domain.NoCandidatesError.
func (e *Engine) Translate(ctx context.Context, req ports.TranslationRequest) (*domain.Selection, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		verr := domain.NewValidationError("translation request")
		verr.AddError("source text is empty")
		return nil, verr
	}
	if len(e.methods) == 0 {
		verr := domain.NewValidationError("engine")
		verr.AddError("no translation methods configured")
		return nil, verr
	}
	if req.SourceLang == "" {
		req.SourceLang = e.sourceLang
	}
	if req.TargetLang == "" {
		req.TargetLang = e.targetLang
	}

	r := e.newRound(e.mode, req.SourceText)
	ctx = e.observer.RoundStarted(ctx, r.id, r.mode, e.methods)
	r.logger.Debug().Int("methods", len(e.methods)).Int("chars", len([]rune(req.SourceText))).Msg("round started")

	var available []domain.Method
	for _, m := range e.methods {
		if err, ok := e.unavailable[m]; ok && e.translators[m] == nil {
			r.failures[m] = domain.NewMethodUnavailableError(m, "not configured", err)
			continue
		}
		available = append(available, m)
	}

	if e.mode == ModeEscalate {
		e.escalate(ctx, r, req, available)
	} else {
		e.invoke(ctx, r, req, available)
		if len(r.candidates) > 0 {
			r.ensemble = e.decideGate(ctx, r, r.candidates[0])
		}
	}
	return e.conclude(ctx, r)
}

// Evaluate runs a round over candidates supplied by the caller, without
// invoking any method. Every candidate must translate sourceText.
func (e *Engine) Evaluate(ctx context.Context, sourceText string, candidates []*domain.Candidate) (*domain.Selection, error) {
	methods := make([]domain.Method, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			return nil, fmt.Errorf("%w: nil candidate", domain.ErrMissingScores)
		}
		if c.SourceText() != sourceText {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceMismatch, c.Method())
		}
		methods = append(methods, c.Method())
	}

	r := e.newRound(ModeEvaluate, sourceText)
	ctx = e.observer.RoundStarted(ctx, r.id, r.mode, methods)

	r.candidates = append(r.candidates, candidates...)
	sortCandidates(r.candidates)
	if len(r.candidates) > 0 {
		r.ensemble = e.decideGate(ctx, r, r.candidates[0])
	}
	return e.conclude(ctx, r)
}

// escalate tries methods one at a time in priority order. The first success
// becomes the primary; the remaining methods run only if the gate asks for
// the ensemble.
func (e *Engine) escalate(ctx context.Context, r *round, req ports.TranslationRequest, methods []domain.Method) {
	for i, m := range methods {
		inv := e.call(ctx, r, req, m)
		r.record(inv)
		if inv.candidate == nil {
			continue
		}
		r.ensemble = e.decideGate(ctx, r, inv.candidate)
		if r.ensemble {
			e.invoke(ctx, r, req, methods[i+1:])
		}
		return
	}
}

// invoke calls methods concurrently and records the results in method order.
func (e *Engine) invoke(ctx context.Context, r *round, req ports.TranslationRequest, methods []domain.Method) {
	results := make([]invocation, len(methods))

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, m := range methods {
		g.Go(func() error {
			results[i] = e.call(ctx, r, req, m)
			return nil
		})
	}
	_ = g.Wait()

	for _, inv := range results {
		r.record(inv)
	}
	sortCandidates(r.candidates)
}

// call invokes one method under its own timeout, serving it from the cache
// when possible. The round logger is only read here.
func (e *Engine) call(ctx context.Context, r *round, req ports.TranslationRequest, m domain.Method) invocation {
	logger := r.logger.With().Str("method", m.String()).Logger()
	key := cacheKey(m, req)

	if e.cache != nil {
		c := e.cached(ctx, key, m, req, logger)
		e.observer.CacheLookup(ctx, m, c != nil)
		if c != nil {
			e.observer.MethodFinished(ctx, m, 0, true, nil)
			logger.Debug().Msg("translation served from cache")
			return invocation{method: m, candidate: c}
		}
	}

	callCtx := ctx
	if e.methodTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.methodTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := e.translate(callCtx, m, req)
	elapsed := time.Since(start)

	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, ports.ErrMissingCredential):
			reason = "missing credential"
		case ctx.Err() != nil:
			reason = "canceled"
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			reason = "timeout"
			if !errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
			}
		}
		failure := domain.NewMethodUnavailableError(m, reason, err)
		e.observer.MethodFinished(ctx, m, elapsed, false, err)
		logger.Warn().Err(err).Str("reason", reason).Dur("elapsed", elapsed).Msg("method failed")
		return invocation{method: m, failure: failure}
	}

	c := domain.NewCandidate(m, out.Text, req.SourceText, out.NativeConfidence).WithLatency(elapsed)
	if !c.Malformed() {
		e.store(ctx, key, out, logger)
	}
	e.observer.MethodFinished(ctx, m, elapsed, false, nil)
	logger.Debug().Dur("elapsed", elapsed).Int("chars", len([]rune(out.Text))).Msg("method finished")
	return invocation{method: m, candidate: c}
}

type translateResult struct {
	out ports.Translation
	err error
}

// translate runs one translator call and gives up on it once ctx ends,
// whether or not the translator honors ctx. A result that arrives after
// that is discarded.
func (e *Engine) translate(ctx context.Context, m domain.Method, req ports.TranslationRequest) (ports.Translation, error) {
	done := make(chan translateResult, 1)
	go func() {
		out, err := e.translators[m].Translate(ctx, req)
		done <- translateResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && ctx.Err() != nil {
			return ports.Translation{}, ctx.Err()
		}
		return res.out, res.err
	case <-ctx.Done():
		return ports.Translation{}, ctx.Err()
	}
}

func (e *Engine) decideGate(ctx context.Context, r *round, primary *domain.Candidate) bool {
	e.scorer.Apply(primary)
	ensemble := ShouldRunEnsemble(primary, e.gate)
	composite, _ := primary.HeuristicComposite()
	e.observer.GateDecided(ctx, e.gate.Policy, primary.Method(), composite, ensemble)
	r.logger.Debug().
		Str("primary", primary.Method().String()).
		Float64("composite", composite).
		Str("policy", string(e.gate.Policy)).
		Bool("force_multi", e.gate.ForceMulti).
		Bool("ensemble", ensemble).
		Msg("confidence gate decided")
	return ensemble
}

// conclude scores the collected candidates and selects the winner.
func (e *Engine) conclude(ctx context.Context, r *round) (*domain.Selection, error) {
	if len(r.candidates) == 0 {
		err := domain.NewNoCandidatesError(r.failures)
		e.observer.RoundFinished(ctx, r.mode, nil, time.Since(r.start), err)
		r.logger.Error().Err(err).Msg("round failed")
		return nil, err
	}

	for _, c := range r.candidates {
		e.scorer.Apply(c)
	}

	var (
		agreement quality.AgreementResult
		judge     map[domain.Method]domain.JudgeScores
		requested bool
		skip      = SkipReasonGate
	)
	if r.ensemble {
		agreement = e.analyzer.Apply(r.candidates)
		blends := e.selector.Blends(r.candidates, agreement.Scores)
		switch {
		case len(r.candidates) < 2:
			skip = SkipReasonSingle
		case !e.arbiter.ShouldArbitrate(blends):
			skip = SkipReasonMargin
		default:
			requested = true
			outcome := e.arbiter.Arbitrate(ctx, r.source, r.candidates)
			e.observer.JudgeFinished(ctx, outcome.Judged, outcome.Reason, outcome.Elapsed)
			if outcome.Judged {
				judge, skip = outcome.Scores, ""
			} else {
				skip = outcome.Reason
			}
		}
	}

	sel, err := e.selector.Select(r.candidates, agreement.Scores, judge)
	if err != nil {
		e.observer.RoundFinished(ctx, r.mode, nil, time.Since(r.start), err)
		r.logger.Error().Err(err).Msg("selection failed")
		return nil, err
	}

	sel.RoundID = r.id
	sel.Mode = r.mode
	sel.JudgeRequested = requested
	sel.JudgeSkipReason = skip
	if r.ensemble {
		sel.Agreement = agreement.Matrix
	}
	if len(r.failures) > 0 {
		sel.Failures = make(map[domain.Method]string, len(r.failures))
		for m, f := range r.failures {
			sel.Failures[m] = f.Error()
		}
	}
	sel.Duration = time.Since(r.start)

	e.observer.RoundFinished(ctx, r.mode, sel, sel.Duration, nil)
	winner := sel.Candidates[0]
	r.logger.Info().
		Str("winner", sel.Winner.String()).
		Float64("final_score", winner.FinalScore).
		Int("candidates", len(sel.Candidates)).
		Int("failures", len(sel.Failures)).
		Bool("ensemble", sel.Ensemble).
		Bool("judged", sel.Judged).
		Dur("duration", sel.Duration).
		Msg("round complete")
	return sel, nil
}

// cachedTranslation is the cached form of a successful invocation.
type cachedTranslation struct {
	Text             string   `json:"text"`
	NativeConfidence *float64 `json:"native_confidence,omitempty"`
}

// cacheKey identifies a translation by method, language pair, context and
// source text.
func cacheKey(m domain.Method, req ports.TranslationRequest) string {
	h := sha256.New()
	for _, part := range []string{m.String(), req.SourceLang, req.TargetLang, req.Context, req.SourceText} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "candidate:" + m.String() + ":" + hex.EncodeToString(h.Sum(nil))
}

func (e *Engine) cached(ctx context.Context, key string, m domain.Method, req ports.TranslationRequest, logger zerolog.Logger) *domain.Candidate {
	if e.cache == nil {
		return nil
	}
	raw, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("cache lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	var ct cachedTranslation
	if err := json.Unmarshal(raw, &ct); err != nil || strings.TrimSpace(ct.Text) == "" {
		logger.Warn().Err(err).Msg("discarding corrupted cache entry")
		_ = e.cache.Delete(ctx, key)
		return nil
	}
	return domain.NewCandidate(m, ct.Text, req.SourceText, ct.NativeConfidence)
}

func (e *Engine) store(ctx context.Context, key string, out ports.Translation, logger zerolog.Logger) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(cachedTranslation{Text: out.Text, NativeConfidence: out.NativeConfidence})
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, raw, e.cacheTTL); err != nil {
		logger.Warn().Err(err).Msg("cache write failed")
	}
}

func sortCandidates(cs []*domain.Candidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].Method().Priority() < cs[j-1].Method().Priority(); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}
