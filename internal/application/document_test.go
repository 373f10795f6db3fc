package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
	"github.com/Antonio-Ardigo/Remote-Project/internal/textutil"
)

// recordingRounds brackets each chunk as its translation and remembers
// every request it served.
type recordingRounds struct {
	mu       sync.Mutex
	requests []ports.TranslationRequest
	fail     func(ports.TranslationRequest) error
	judged   bool
}

func (r *recordingRounds) Translate(_ context.Context, req ports.TranslationRequest) (*domain.Selection, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	if r.fail != nil {
		if err := r.fail(req); err != nil {
			return nil, err
		}
	}
	return &domain.Selection{
		Winner:     domain.MethodA,
		WinnerText: "[" + req.SourceText + "]",
		Judged:     r.judged,
	}, nil
}

func (r *recordingRounds) request(source string) (ports.TranslationRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.SourceText == source {
			return req, true
		}
	}
	return ports.TranslationRequest{}, false
}

func longDocument() string {
	var sb strings.Builder
	for i := range 12 {
		fmt.Fprintf(&sb, "هذه هي الجملة رقم %d في المستند. ", i+1)
	}
	return sb.String()
}

func TestDocumentTranslator_ChunksWithContext(t *testing.T) {
	rounds := &recordingRounds{}
	opts := DocumentOptions{MaxChunkRunes: 80, ContextRunes: 20, Concurrency: 3}
	d := NewDocumentTranslator(rounds, opts, zerolog.Nop())

	text := longDocument()
	chunks := textutil.ChunkText(text, 80)
	require.Greater(t, len(chunks), 2)

	res, err := d.Translate(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, res.Chunks, len(chunks))
	want := make([]string, len(chunks))
	for i, chunk := range chunks {
		want[i] = "[" + chunk + "]"
		assert.Equal(t, i, res.Chunks[i].Index)
		assert.Equal(t, chunk, res.Chunks[i].Source)
		assert.Empty(t, res.Chunks[i].Error)

		req, found := rounds.request(chunk)
		require.True(t, found)
		assert.Equal(t, "ar", req.SourceLang)
		assert.Equal(t, "en", req.TargetLang)
		if i == 0 {
			assert.Empty(t, req.Context)
		} else {
			assert.Equal(t, textutil.Tail(chunks[i-1], 20), req.Context)
			assert.LessOrEqual(t, textutil.RuneLen(req.Context), 20)
		}
	}
	assert.Equal(t, strings.Join(want, "\n\n"), res.Text)
	assert.Zero(t, res.Failed)
	assert.False(t, res.Skipped)

	assert.Equal(t, map[domain.Method]int{domain.MethodA: len(chunks)}, res.MethodsUsed)
}

func TestDocumentTranslator_SkipsTextWithoutArabic(t *testing.T) {
	rounds := &recordingRounds{}
	d := NewDocumentTranslator(rounds, DocumentOptions{}, zerolog.Nop())

	res, err := d.Translate(context.Background(), "This document is already in English.")
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.Equal(t, SkipReasonNoArabic, res.SkipReason)
	assert.Empty(t, res.Text)
	assert.Empty(t, rounds.requests)
}

func TestDocumentTranslator_FailedChunksAreLeftOut(t *testing.T) {
	text := longDocument()
	chunks := textutil.ChunkText(text, 80)
	require.Greater(t, len(chunks), 2)

	rounds := &recordingRounds{
		judged: true,
		fail: func(req ports.TranslationRequest) error {
			if req.SourceText == chunks[1] {
				return domain.NewNoCandidatesError(nil)
			}
			return nil
		},
	}
	d := NewDocumentTranslator(rounds, DocumentOptions{MaxChunkRunes: 80}, zerolog.Nop())

	res, err := d.Translate(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, len(chunks)-1, res.Judged)
	assert.Nil(t, res.Chunks[1].Selection)
	assert.Contains(t, res.Chunks[1].Error, "no translation candidates")
	assert.NotContains(t, res.Text, chunks[1])
	assert.Contains(t, res.Text, "["+chunks[0]+"]")
}

func TestDocumentTranslator_EveryChunkFails(t *testing.T) {
	rounds := &recordingRounds{
		fail: func(ports.TranslationRequest) error { return errors.New("all methods down") },
	}
	d := NewDocumentTranslator(rounds, DocumentOptions{MaxChunkRunes: 80}, zerolog.Nop())

	res, err := d.Translate(context.Background(), longDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every chunk failed")
	assert.Contains(t, err.Error(), "all methods down")
	require.NotNil(t, res)
	assert.Equal(t, len(res.Chunks), res.Failed)
	assert.Empty(t, res.Text)
}

func TestDocumentTranslator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rounds := &recordingRounds{
		fail: func(ports.TranslationRequest) error { return context.Canceled },
	}
	d := NewDocumentTranslator(rounds, DocumentOptions{MaxChunkRunes: 80, Concurrency: 1}, zerolog.Nop())

	res, err := d.Translate(ctx, longDocument())
	assert.Nil(t, res)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestNewDocumentTranslator_Defaults(t *testing.T) {
	d := NewDocumentTranslator(&recordingRounds{}, DocumentOptions{ContextRunes: -5}, zerolog.Nop())
	assert.Equal(t, DefaultChunkRunes, d.options.MaxChunkRunes)
	assert.Equal(t, 0, d.options.ContextRunes)
	assert.Equal(t, 2, d.options.Concurrency)
	assert.Equal(t, "ar", d.options.SourceLang)
	assert.Equal(t, "en", d.options.TargetLang)
}
