package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
	"github.com/Antonio-Ardigo/Remote-Project/internal/textutil"
)

// Document chunking defaults.
const (
	DefaultChunkRunes   = 3000
	DefaultContextRunes = 200
)

// SkipReasonNoArabic marks documents without Arabic text.
const SkipReasonNoArabic = "no Arabic text detected"

// RoundRunner runs a single evaluation round. *Engine implements it.
type RoundRunner interface {
	Translate(ctx context.Context, req ports.TranslationRequest) (*domain.Selection, error)
}

// DocumentOptions configures a DocumentTranslator.
type DocumentOptions struct {
	// MaxChunkRunes is the largest chunk sent to a round.
	MaxChunkRunes int

	// ContextRunes is how much of the previous chunk's source is passed as
	// reference context to the next round.
	ContextRunes int

	// Concurrency limits how many chunks are translated at once.
	Concurrency int

	SourceLang string
	TargetLang string
}

// DefaultDocumentOptions returns the defaults for Arabic to English.
func DefaultDocumentOptions() DocumentOptions {
	return DocumentOptions{
		MaxChunkRunes: DefaultChunkRunes,
		ContextRunes:  DefaultContextRunes,
		Concurrency:   2,
		SourceLang:    "ar",
		TargetLang:    "en",
	}
}

// ChunkResult is the outcome of one chunk.
type ChunkResult struct {
	Index     int               `json:"index" yaml:"index"`
	Source    string            `json:"source" yaml:"source"`
	Selection *domain.Selection `json:"selection,omitempty" yaml:"selection,omitempty"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// DocumentResult is the translation of a whole document.
type DocumentResult struct {
	// Text joins the winning translation of every chunk.
	Text string `json:"text" yaml:"text"`

	Chunks []ChunkResult `json:"chunks" yaml:"chunks"`

	// MethodsUsed counts the chunks each method won.
	MethodsUsed map[domain.Method]int `json:"methods_used" yaml:"methods_used"`

	Judged  int `json:"judged_chunks" yaml:"judged_chunks"`
	Failed  int `json:"failed_chunks" yaml:"failed_chunks"`
	Skipped bool `json:"skipped" yaml:"skipped"`

	SkipReason string        `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// DocumentTranslator translates documents longer than a single round can
// handle by splitting them at sentence boundaries.
type DocumentTranslator struct {
	rounds  RoundRunner
	options DocumentOptions
	logger  zerolog.Logger
}

// NewDocumentTranslator creates a translator. Zero option fields take their
// defaults.
func NewDocumentTranslator(rounds RoundRunner, options DocumentOptions, logger zerolog.Logger) *DocumentTranslator {
	def := DefaultDocumentOptions()
	if options.MaxChunkRunes <= 0 {
		options.MaxChunkRunes = def.MaxChunkRunes
	}
	if options.ContextRunes < 0 {
		options.ContextRunes = 0
	}
	if options.Concurrency <= 0 {
		options.Concurrency = def.Concurrency
	}
	if options.SourceLang == "" {
		options.SourceLang = def.SourceLang
	}
	if options.TargetLang == "" {
		options.TargetLang = def.TargetLang
	}
	return &DocumentTranslator{rounds: rounds, options: options, logger: logger}
}

// Translate runs one round per chunk. Each round gets the tail of the
// previous chunk's source as context, so chunks are independent and run
// concurrently. A failed chunk is recorded and left out of Text; Translate
// returns an error only when the context ends or every chunk failed.
func (d *DocumentTranslator) Translate(ctx context.Context, text string) (*DocumentResult, error) {
	start := time.Now()
	result := &DocumentResult{MethodsUsed: make(map[domain.Method]int)}

	if strings.EqualFold(d.options.SourceLang, "ar") && textutil.CountArabic(text) == 0 {
		result.Skipped = true
		result.SkipReason = SkipReasonNoArabic
		d.logger.Info().Msg("document skipped: " + SkipReasonNoArabic)
		return result, nil
	}

	chunks := textutil.ChunkText(text, d.options.MaxChunkRunes)
	result.Chunks = make([]ChunkResult, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.options.Concurrency)
	for i, chunk := range chunks {
		req := ports.TranslationRequest{
			SourceText: chunk,
			SourceLang: d.options.SourceLang,
			TargetLang: d.options.TargetLang,
		}
		if i > 0 && d.options.ContextRunes > 0 {
			req.Context = textutil.Tail(chunks[i-1], d.options.ContextRunes)
		}
		g.Go(func() error {
			sel, err := d.rounds.Translate(gctx, req)
			result.Chunks[i] = ChunkResult{Index: i, Source: chunk, Selection: sel}
			if err != nil {
				errs[i] = err
				result.Chunks[i].Error = err.Error()
				d.logger.Warn().Err(err).Int("chunk", i).Msg("chunk failed")
			}
			// Context errors stop the document; round failures do not.
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("document translation interrupted: %w", err)
	}

	parts := make([]string, 0, len(chunks))
	for i, c := range result.Chunks {
		if errs[i] != nil {
			result.Failed++
			continue
		}
		parts = append(parts, c.Selection.WinnerText)
		result.MethodsUsed[c.Selection.Winner]++
		if c.Selection.Judged {
			result.Judged++
		}
	}
	result.Text = strings.Join(parts, "\n\n")
	result.Duration = time.Since(start)

	d.logger.Info().
		Int("chunks", len(chunks)).
		Int("failed", result.Failed).
		Int("judged", result.Judged).
		Dur("duration", result.Duration).
		Msg("document translated")

	if len(chunks) > 0 && result.Failed == len(chunks) {
		return result, fmt.Errorf("every chunk failed: %w", errors.Join(errs...))
	}
	return result, nil
}
