package application

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/cache"
	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/llm"
	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/middleware"
	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/quality"
	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/translate"
	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// Runtime is an engine assembled from a Config together with the resources
// it owns.
type Runtime struct {
	Engine    *Engine
	Documents *DocumentTranslator

	// Unavailable lists configured methods that could not be built.
	Unavailable map[domain.Method]error

	// JudgeModel is the model serving the judge, or empty without one.
	JudgeModel string

	closers []io.Closer
}

// Close releases the cache connection, if any.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Bootstrap builds the translators, judge, cache and engine described by
// cfg. Methods without credentials are reported as unavailable rather than
// failing; a judge without credentials is disabled with a warning. metrics
// may be nil.
func Bootstrap(ctx context.Context, cfg Config, metrics ports.MetricsCollector, logger zerolog.Logger) (*Runtime, error) {
	methods, err := cfg.ParsedMethods()
	if err != nil {
		return nil, err
	}
	methodConfigs, err := cfg.MethodConfigs()
	if err != nil {
		return nil, err
	}

	deps := translate.Dependencies{
		Logger:  logger.With().Str("component", "translate").Logger(),
		Metrics: metrics,
		Retry: translate.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
		},
		Timeout: cfg.MethodTimeout,
	}
	translators, unavailable := translate.Build(ctx, methodConfigs, deps)

	judge, err := buildJudge(cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	var judgePort ports.Judge
	if judge != nil {
		judgePort = judge
	}
	arbiter, err := NewJudgeArbiter(judgePort, cfg.ClosenessMargin, cfg.Judge.Timeout, logger.With().Str("component", "arbiter").Logger())
	if err != nil {
		return nil, err
	}

	heuristic := quality.DefaultHeuristicConfig()
	heuristic.TargetLang = cfg.TargetLang
	scorer, err := quality.NewHeuristicScorer(heuristic)
	if err != nil {
		return nil, err
	}
	analyzer, err := quality.NewAgreementAnalyzer(quality.AgreementConfig{Algorithm: cfg.Similarity})
	if err != nil {
		return nil, err
	}
	selector, err := NewSelector(cfg.Weights)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Unavailable: unavailable}
	store, err := cache.NewStore(ctx, cfg.Cache.Backend, cfg.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if store != nil {
		rt.closers = append(rt.closers, store)
	}

	var observer middleware.RoundObserver = middleware.NopRoundObserver{}
	if metrics != nil || cfg.Tracing.Enabled {
		observer = middleware.NewOTelRoundObserver(metrics)
	}

	opts := []EngineOption{
		WithMethods(methods...),
		WithUnavailable(unavailable),
		WithGate(cfg.Gate()),
		WithMode(cfg.Mode),
		WithMethodTimeout(cfg.MethodTimeout),
		WithConcurrency(cfg.Concurrency),
		WithLanguages(cfg.SourceLang, cfg.TargetLang),
		WithScorer(scorer),
		WithAgreement(analyzer),
		WithArbiter(arbiter),
		WithSelector(selector),
		WithObserver(observer),
		WithLogger(logger.With().Str("component", "engine").Logger()),
	}
	if store != nil {
		opts = append(opts, WithCache(store, cfg.Cache.TTL))
	}

	engine, err := NewEngine(translators, opts...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Engine = engine
	rt.Documents = NewDocumentTranslator(engine, DocumentOptions{
		MaxChunkRunes: cfg.Chunking.MaxRunes,
		ContextRunes:  cfg.Chunking.ContextRunes,
		Concurrency:   cfg.Chunking.Concurrency,
		SourceLang:    cfg.SourceLang,
		TargetLang:    cfg.TargetLang,
	}, logger.With().Str("component", "document").Logger())
	if judge != nil {
		rt.JudgeModel = judge.Model()
	}
	return rt, nil
}

// buildJudge returns nil when the judge is disabled or has no credential.
func buildJudge(cfg Config, metrics ports.MetricsCollector, logger zerolog.Logger) (*quality.LLMJudge, error) {
	if !cfg.Judge.Enabled {
		return nil, nil
	}
	key := translate.MethodConfig{Backend: cfg.Judge.Backend, APIKey: cfg.Judge.APIKey}.ResolveAPIKey()
	if key == "" {
		logger.Warn().Str("backend", cfg.Judge.Backend).Msg("judge disabled: no API key")
		return nil, nil
	}

	mw := []llm.Middleware{llm.TracingMiddleware()}
	if metrics != nil {
		mw = append(mw, llm.MetricsMiddleware(metrics))
	}
	if cfg.Retry.MaxRetries > 0 {
		mw = append(mw, llm.RetryMiddleware(cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay))
	}
	client, err := llm.NewClient(cfg.Judge.Backend, llm.ClientConfig{
		APIKey:     key,
		Model:      cfg.Judge.Model,
		BaseURL:    cfg.Judge.BaseURL,
		Timeout:    cfg.Judge.Timeout,
		Middleware: mw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create judge client: %w", err)
	}

	jc := quality.DefaultJudgeConfig()
	jc.MaxTokens = cfg.Judge.MaxTokens
	jc.SourceLanguage = translate.LanguageName(cfg.SourceLang)
	jc.TargetLanguage = translate.LanguageName(cfg.TargetLang)
	return quality.NewLLMJudge(client, jc)
}
