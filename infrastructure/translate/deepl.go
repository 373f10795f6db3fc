package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/llm"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
	"github.com/Antonio-Ardigo/Remote-Project/internal/textutil"
)

// DeepL endpoints. Keys ending in ":fx" belong to the free plan.
const (
	DeepLProEndpoint  = "https://api.deepl.com"
	DeepLFreeEndpoint = "https://api-free.deepl.com"
)

// deepLLanguages maps ISO codes onto DeepL language codes.
var deepLLanguages = map[string]string{
	"ar":    "AR",
	"en":    "EN-US",
	"en-gb": "EN-GB",
	"en-us": "EN-US",
	"fr":    "FR",
	"de":    "DE",
	"es":    "ES",
	"it":    "IT",
	"pt":    "PT-BR",
	"zh":    "ZH",
}

// deepLSourceLanguages are the source languages DeepL accepts explicitly.
// Anything else is sent without source_lang and left to detection.
var deepLSourceLanguages = map[string]bool{
	"BG": true, "CS": true, "DA": true, "DE": true, "EL": true, "EN": true,
	"ES": true, "ET": true, "FI": true, "FR": true, "HU": true, "ID": true,
	"IT": true, "JA": true, "KO": true, "LT": true, "LV": true, "NB": true,
	"NL": true, "PL": true, "PT": true, "RO": true, "RU": true, "SK": true,
	"SL": true, "SV": true, "TR": true, "UK": true, "ZH": true,
}

// DeepLConfig configures a DeepLTranslator.
type DeepLConfig struct {
	APIKey string

	// BaseURL overrides the endpoint chosen from the key. Used by tests.
	BaseURL string

	// Timeout bounds each HTTP request. Zero selects 30 seconds.
	Timeout time.Duration

	Logger zerolog.Logger
}

// DeepLTranslator calls the DeepL v2 translate endpoint.
type DeepLTranslator struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

var _ ports.Translator = (*DeepLTranslator)(nil)

// NewDeepLTranslator creates a DeepL translator.
func NewDeepLTranslator(config DeepLConfig) (*DeepLTranslator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("deepl: %w", ports.ErrMissingCredential)
	}

	base := config.BaseURL
	if base == "" {
		base = DeepLProEndpoint
		if strings.HasSuffix(config.APIKey, ":fx") {
			base = DeepLFreeEndpoint
		}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &DeepLTranslator{
		apiKey:   config.APIKey,
		endpoint: strings.TrimRight(base, "/") + "/v2/translate",
		client:   &http.Client{Timeout: timeout},
		logger:   config.Logger,
	}, nil
}

// Endpoint returns the URL requests are sent to.
func (t *DeepLTranslator) Endpoint() string { return t.endpoint }

type deepLRequest struct {
	Text               []string `json:"text"`
	SourceLang         string   `json:"source_lang,omitempty"`
	TargetLang         string   `json:"target_lang"`
	Context            string   `json:"context,omitempty"`
	PreserveFormatting bool     `json:"preserve_formatting"`
}

type deepLResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

type deepLError struct {
	Message string `json:"message"`
}

// Translate implements ports.Translator. Confidence is 0.85 when DeepL
// detects the requested source language and 0.80 otherwise.
func (t *DeepLTranslator) Translate(ctx context.Context, req ports.TranslationRequest) (ports.Translation, error) {
	source := deepLCode(req.SourceLang, strings.ToUpper(req.SourceLang))
	target := deepLCode(req.TargetLang, "EN-US")

	body := deepLRequest{
		Text:               []string{req.SourceText},
		TargetLang:         target,
		Context:            req.Context,
		PreserveFormatting: true,
	}
	if deepLSourceLanguages[source] {
		body.SourceLang = source
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.Translation{}, fmt.Errorf("failed to encode deepl request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ports.Translation{}, fmt.Errorf("failed to create deepl request: %w", err)
	}
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+t.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	t.logger.Debug().Int("chars", textutil.RuneLen(req.SourceText)).Str("target", target).Msg("sending deepl request")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ce := ctx.Err(); ce != nil {
			err = ce
		}
		return ports.Translation{}, classifyTransport("deepl", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return ports.Translation{}, llm.NewProviderError("deepl", llm.ErrorTypeNetwork, resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr deepLError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		// 456 is DeepL's quota exceeded status.
		if resp.StatusCode == 456 {
			return ports.Translation{}, llm.NewProviderError("deepl", llm.ErrorTypeRateLimit, resp.StatusCode, msg, nil)
		}
		return ports.Translation{}, llm.NewHTTPError("deepl", resp.StatusCode, msg, nil)
	}

	var decoded deepLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ports.Translation{}, fmt.Errorf("deepl: %w: %v", ports.ErrInvalidResponse, err)
	}
	if len(decoded.Translations) == 0 {
		return ports.Translation{}, fmt.Errorf("deepl: %w: no translations returned", ports.ErrInvalidResponse)
	}

	tr := decoded.Translations[0]
	conf := 0.80
	if strings.EqualFold(baseLanguage(tr.DetectedSourceLanguage), baseLanguage(source)) {
		conf = 0.85
	}

	return ports.Translation{
		Text:             strings.TrimSpace(tr.Text),
		NativeConfidence: &conf,
		Metadata: map[string]string{
			"backend":       "deepl",
			"detected_lang": tr.DetectedSourceLanguage,
		},
	}, nil
}

func deepLCode(lang, fallback string) string {
	if code, ok := deepLLanguages[strings.ToLower(lang)]; ok {
		return code
	}
	return fallback
}

// baseLanguage strips a regional suffix: "EN-US" becomes "EN".
func baseLanguage(code string) string {
	code, _, _ = strings.Cut(code, "-")
	return strings.ToUpper(code)
}

// classifyTransport turns a failed round trip into a ProviderError.
func classifyTransport(provider string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return llm.NewProviderError(provider, llm.ErrorTypeTimeout, 0, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return llm.NewProviderError(provider, llm.ErrorTypeNetwork, 0, "request canceled", err)
	}
	return llm.NewProviderError(provider, llm.ErrorTypeNetwork, 0, "request failed", err)
}
