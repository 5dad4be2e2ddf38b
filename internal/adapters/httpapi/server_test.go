package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/adapters/store"
	"github.com/mikey/intake-guard/internal/allowlist"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/metrics"
	"github.com/mikey/intake-guard/internal/ratelimit"
	"github.com/mikey/intake-guard/internal/spamgate"
)

type stubLLM struct {
	reply string
	err   error
}

func (s stubLLM) Complete(context.Context, core.Prompt) (string, error) {
	return s.reply, s.err
}

type testEnv struct {
	handler http.Handler
	reg     *prometheus.Registry
}

func newEnv(t *testing.T, llm core.LLMClient, limit int, cfg core.GatewayConfig) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	mem, err := store.NewMemoryStore(logger, 100)
	require.NoError(t, err)
	limiter := ratelimit.NewLimiter(mem, limit, time.Minute)
	gate := spamgate.New(allowlist.NewChecker(core.ClassificationFields, logger), spamgate.Config{}, logger)
	gw := core.NewGateway(llm, limiter, gate, cfg, logger)

	reg := prometheus.NewRegistry()
	srv := NewServer(gw, metrics.New(reg), reg, Options{}, logger)
	return &testEnv{handler: srv.Handler(), reg: reg}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestIntentEndpoint(t *testing.T) {
	env := newEnv(t, stubLLM{reply: `{"mission":"volunteer","confidence":0.9,"reasoning":"Aide","extracted":{"skills":"design"}}`}, 10, core.GatewayConfig{})

	rec := env.do(http.MethodPost, "/api/intent", `{"userInput":"Je veux aider en design"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	body := decodeBody(t, rec)
	assert.Equal(t, "volunteer", body["mission"])
	assert.Equal(t, "ai", body["source"])
	assert.Equal(t, map[string]any{"skills": "design"}, body["extracted"])
}

func TestIntentEndpointFallsBackOnUpstreamError(t *testing.T) {
	env := newEnv(t, stubLLM{err: errors.New("503")}, 10, core.GatewayConfig{})

	rec := env.do(http.MethodPost, "/api/intent", `{"userInput":"Je veux faire un don de 50€"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "donation", body["mission"])
	assert.Equal(t, "fallback", body["source"])
}

func TestIntentEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"userInput":`, http.StatusBadRequest, core.CodeInvalidInput},
		{"missing input", `{}`, http.StatusBadRequest, core.CodeInvalidInput},
		{"extra field", `{"userInput":"hi","admin":true}`, http.StatusForbidden, spamgate.CodeUnexpected},
		{"script", `{"userInput":"<script>alert(1)</script>"}`, http.StatusForbidden, core.CodeCodeDetected},
		{"too long", `{"userInput":"` + strings.Repeat("a", 501) + `"}`, http.StatusBadRequest, core.CodeInputTooLong},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newEnv(t, stubLLM{reply: `{}`}, 10, core.GatewayConfig{})
			rec := env.do(http.MethodPost, "/api/intent", c.body, nil)

			assert.Equal(t, c.status, rec.Code)
			assert.Equal(t, c.code, decodeBody(t, rec)["error"])
		})
	}
}

func TestIntentEndpointWithoutLLM(t *testing.T) {
	env := newEnv(t, nil, 10, core.GatewayConfig{})
	rec := env.do(http.MethodPost, "/api/intent", `{"userInput":"Bonjour"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, core.CodeAINotConfigured, decodeBody(t, rec)["error"])
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	env := newEnv(t, stubLLM{reply: `{"mission":"info"}`}, 2, core.GatewayConfig{})
	headers := map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/api/intent", `{"userInput":"Une question"}`, headers)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(http.MethodPost, "/api/intent", `{"userInput":"Une question"}`, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeBody(t, rec)["error"])

	other := env.do(http.MethodPost, "/api/intent", `{"userInput":"Une question"}`, map[string]string{"X-Real-IP": "198.51.100.1"})
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestProductionRequiresForwardedHTTPS(t *testing.T) {
	env := newEnv(t, stubLLM{reply: `{"mission":"info"}`}, 10, core.GatewayConfig{Production: true})

	rec := env.do(http.MethodPost, "/api/intent", `{"userInput":"Une question"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, core.CodeHTTPSRequired, decodeBody(t, rec)["error"])

	rec = env.do(http.MethodPost, "/api/intent", `{"userInput":"Une question"}`, map[string]string{"X-Forwarded-Proto": "https"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImproveEndpoint(t *testing.T) {
	env := newEnv(t, stubLLM{reply: "Texte amélioré"}, 10, core.GatewayConfig{})

	rec := env.do(http.MethodPost, "/api/improve",
		`{"text":"je veux aidé","action":"correct","field":"message","mission":"volunteer"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Texte amélioré", body["improvedText"])
	assert.Equal(t, "je veux aidé", body["originalText"])
	assert.Equal(t, "correct", body["action"])

	rec = env.do(http.MethodPost, "/api/improve", `{"text":"x","action":"shout","field":"f","mission":"m"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.CodeInvalidAction, decodeBody(t, rec)["error"])

	rec = env.do(http.MethodPost, "/api/improve", `{"text":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.CodeMissingParams, decodeBody(t, rec)["error"])
}

func TestImproveEndpointUpstreamFailure(t *testing.T) {
	env := newEnv(t, stubLLM{err: errors.New("timeout")}, 10, core.GatewayConfig{})

	rec := env.do(http.MethodPost, "/api/improve", `{"text":"x","action":"improve","field":"f","mission":"m"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, core.CodeAIError, body["error"])
	assert.NotContains(t, body["message"], "timeout")
}

func TestSummaryEndpoint(t *testing.T) {
	env := newEnv(t, stubLLM{reply: "Merci Marie !"}, 10, core.GatewayConfig{})

	rec := env.do(http.MethodPost, "/api/summary",
		`{"mission":"volunteer","formData":{"name":"Marie","email":"marie@example.org","website":""},"userName":"Marie"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Merci Marie !", body["message"])
	assert.Equal(t, "Marie", body["userName"])
	assert.NotEmpty(t, body["timestamp"])

	rec = env.do(http.MethodPost, "/api/summary", `{"mission":"volunteer","formData":{"website":"http://spam.example"}}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, spamgate.CodeHoneypot, decodeBody(t, rec)["error"])

	rec = env.do(http.MethodPost, "/api/summary", `{"formData":{}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newEnv(t, stubLLM{}, 10, core.GatewayConfig{})
	rec := env.do(http.MethodGet, "/api/intent", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t, stubLLM{reply: `{"mission":"info"}`}, 10, core.GatewayConfig{})

	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["llmConfigured"])

	env.do(http.MethodPost, "/api/intent", `{"userInput":"Une question"}`, nil)
	env.do(http.MethodPost, "/api/intent", `{}`, nil)

	rec = env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `intake_guard_requests_total{endpoint="intent",status="200"} 1`)
	assert.Contains(t, out, `intake_guard_rejections_total{code="invalid_input",endpoint="intent"} 1`)
	assert.Contains(t, out, `intake_guard_intent_results_total{source="ai"} 1`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := newEnv(t, stubLLM{}, 10, core.GatewayConfig{})
	id := uuid.NewString()

	rec := env.do(http.MethodGet, "/health", "", map[string]string{RequestIDHeader: id})
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	rec = env.do(http.MethodGet, "/health", "", map[string]string{RequestIDHeader: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t, stubLLM{}, 10, core.GatewayConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/intent", nil)
	req.Header.Set("Origin", "https://portail.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
