package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/config"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/utils"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	logger := zap.NewNop()
	return NewOpenAIClient(openai.NewClientWithConfig(cfg), "llama-3.1-8b-instant", 1, 20, logger, utils.NewTextProcessor(logger))
}

func TestComplete(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","model":"llama-3.1-8b-instant",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"mission\":\"info\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	})

	out, err := client.Complete(context.Background(), core.Prompt{
		System:      "Analyse",
		User:        "Bonjour",
		Temperature: 0.1,
		MaxTokens:   300,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"mission":"info"}`, out)

	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.InDelta(t, 0.1, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "Analyse", got.Messages[0].Content)
	assert.Equal(t, "Bonjour", got.Messages[1].Content)
}

func TestCompleteTruncatesUserText(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	_, err := client.Complete(context.Background(), core.Prompt{User: "une phrase nettement plus longue que vingt octets"})
	require.NoError(t, err)
	assert.Contains(t, got.Messages[1].Content, "tronqué")
}

func TestCompleteErrors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		})
		_, err := client.Complete(context.Background(), core.Prompt{User: "x"})
		assert.Error(t, err)
	})

	t.Run("no choices", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"cmpl-2","choices":[]}`))
		})
		_, err := client.Complete(context.Background(), core.Prompt{User: "x"})
		assert.ErrorContains(t, err, "empty response")
	})
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.NewFromViper(config.NewEmptyViper())

	_, err := NewFactory(cfg, logger, utils.NewTextProcessor(logger)).CreateLLMClient()
	assert.ErrorIs(t, err, core.ErrLLMNotConfigured)

	cfg.GetViper().Set("openai.api_key", "gsk_test")
	client, err := NewFactory(cfg, logger, utils.NewTextProcessor(logger)).CreateLLMClient()
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)
}
