package ports

import (
	"context"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
)

// TranslationRequest describes one unit of text to translate.
type TranslationRequest struct {
	// SourceText is the text to translate.
	SourceText string

	// SourceLang is the ISO 639-1 code of the source language, e.g. "ar".
	SourceLang string

	// TargetLang is the ISO 639-1 code of the target language, e.g. "en".
	TargetLang string

	// Context is preceding text given for reference only. Methods must not
	// translate it.
	Context string
}

// Translation is what a method returns for a request.
type Translation struct {
	// Text is the produced translation.
	Text string

	// NativeConfidence is the method's self-reported confidence in [0,1],
	// or nil when the method reports none.
	NativeConfidence *float64

	// Metadata carries method-specific details such as the backend used or
	// the detected source language.
	Metadata map[string]string
}

// Translator is the method invocation boundary. The engine treats every
// implementation as a black box: it only sees text, an optional confidence,
// or a failure.
type Translator interface {
	// Translate produces a translation of req.SourceText.
	Translate(ctx context.Context, req TranslationRequest) (Translation, error)
}

// TranslatorFunc adapts a plain function to the Translator interface.
type TranslatorFunc func(ctx context.Context, req TranslationRequest) (Translation, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, req TranslationRequest) (Translation, error) {
	return f(ctx, req)
}

// JudgeEntry is one candidate presented to the judge.
type JudgeEntry struct {
	Method domain.Method
	Text   string
}

// Judge is the arbitration boundary: an external high-capability evaluator
// that scores every candidate on five dimensions.
type Judge interface {
	// Evaluate returns normalized scores for each entry keyed by method.
	// Implementations return an error rather than partial or zero scores
	// when the evaluation cannot be completed.
	Evaluate(ctx context.Context, sourceText string, entries []JudgeEntry) (map[domain.Method]domain.JudgeScores, error)
}
