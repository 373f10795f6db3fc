package translate

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gtranslate "google.golang.org/api/translate/v2"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/llm"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
	"github.com/Antonio-Ardigo/Remote-Project/internal/textutil"
)

// GoogleConfig configures a GoogleTranslator.
type GoogleConfig struct {
	APIKey string

	// Options are appended to the client options, after the API key.
	// Tests use them to point the service at a local server.
	Options []option.ClientOption

	Logger zerolog.Logger
}

// GoogleTranslator calls Google Cloud Translation v2.
type GoogleTranslator struct {
	service *gtranslate.Service
	logger  zerolog.Logger
}

var _ ports.Translator = (*GoogleTranslator)(nil)

// NewGoogleTranslator creates a translator authenticated with an API key.
func NewGoogleTranslator(ctx context.Context, config GoogleConfig) (*GoogleTranslator, error) {
	if config.APIKey == "" && len(config.Options) == 0 {
		return nil, fmt.Errorf("google translate: %w", ports.ErrMissingCredential)
	}

	opts := make([]option.ClientOption, 0, len(config.Options)+1)
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	opts = append(opts, config.Options...)

	svc, err := gtranslate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation service: %w", err)
	}
	return &GoogleTranslator{service: svc, logger: config.Logger}, nil
}

// Translate implements ports.Translator. The source language is left to
// detection so the detected language can drive the confidence: 0.85 when it
// matches the requested one, 0.82 otherwise. Context is not supported by the
// API and is ignored.
func (t *GoogleTranslator) Translate(ctx context.Context, req ports.TranslationRequest) (ports.Translation, error) {
	target := strings.ToLower(req.TargetLang)
	if target == "" {
		target = "en"
	}

	t.logger.Debug().Int("chars", textutil.RuneLen(req.SourceText)).Str("target", target).Msg("sending google translate request")

	resp, err := t.service.Translations.List([]string{req.SourceText}, target).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return ports.Translation{}, classifyGoogle(ctx, err)
	}
	if len(resp.Translations) == 0 || resp.Translations[0] == nil {
		return ports.Translation{}, fmt.Errorf("google translate: %w: no translations returned", ports.ErrInvalidResponse)
	}

	tr := resp.Translations[0]
	conf := 0.82
	if strings.EqualFold(baseLanguage(tr.DetectedSourceLanguage), baseLanguage(req.SourceLang)) {
		conf = 0.85
	}

	return ports.Translation{
		Text:             strings.TrimSpace(html.UnescapeString(tr.TranslatedText)),
		NativeConfidence: &conf,
		Metadata: map[string]string{
			"backend":       "google_cloud",
			"detected_lang": tr.DetectedSourceLanguage,
			"model":         tr.Model,
		},
	}, nil
}

func classifyGoogle(ctx context.Context, err error) error {
	if ce := ctx.Err(); ce != nil {
		return classifyTransport("google_translate", ce)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return llm.NewHTTPError("google_translate", apiErr.Code, apiErr.Message, err)
	}
	return classifyTransport("google_translate", err)
}
