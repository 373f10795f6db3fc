package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

func anthropicServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicProvider_DoRequest(t *testing.T) {
	var req map[string]any
	srv := anthropicServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": "The meeting is tomorrow."}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 42, "output_tokens": 7}
	}`, &req)

	core, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	temp := 0.0
	out, err := core.DoRequest(context.Background(), ports.Prompt{
		System:      "Translate to English.",
		User:        "الاجتماع غدا",
		MaxTokens:   512,
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "The meeting is tomorrow.", out.Text)
	assert.Equal(t, "end_turn", out.StopReason)
	assert.Equal(t, 42, out.TokensIn)
	assert.Equal(t, 7, out.TokensOut)
	assert.Equal(t, "claude-sonnet-4-20250514", out.Model)

	assert.Equal(t, AnthropicDefaultModel, req["model"])
	assert.EqualValues(t, 512, req["max_tokens"])
	assert.NotEmpty(t, req["system"])
}

func TestAnthropicProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
		wantErr  error
	}{
		{
			name:     "authentication",
			status:   http.StatusUnauthorized,
			body:     `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantType: ErrorTypeAuthentication,
		},
		{
			name:     "rate limit",
			status:   http.StatusTooManyRequests,
			body:     `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantType: ErrorTypeRateLimit,
		},
		{
			name:     "no text content",
			status:   http.StatusOK,
			body:     `{"id":"msg_02","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`,
			wantType: ErrorTypeUnknown,
			wantErr:  ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := anthropicServer(t, tt.status, tt.body, nil)
			core, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = core.DoRequest(context.Background(), ports.Prompt{User: "hi"})
			require.Error(t, err)

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, "anthropic", pe.Provider)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	_, err := newAnthropicProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}

func TestAnthropicProvider_DefaultModel(t *testing.T) {
	core, err := newAnthropicProvider(ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, AnthropicDefaultModel, core.GetModel())

	core, err = newAnthropicProvider(ClientConfig{APIKey: "k", Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-latest", core.GetModel())
	assert.Equal(t, "anthropic", core.Provider())
}
