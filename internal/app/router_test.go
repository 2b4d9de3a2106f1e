package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranavk-10/GAP-Github/internal/adapter/ai"
	"github.com/pranavk-10/GAP-Github/internal/adapter/ai/gemini"
	httpserver "github.com/pranavk-10/GAP-Github/internal/adapter/httpserver"
	"github.com/pranavk-10/GAP-Github/internal/adapter/langdetect"
	"github.com/pranavk-10/GAP-Github/internal/app"
	"github.com/pranavk-10/GAP-Github/internal/config"
	"github.com/pranavk-10/GAP-Github/internal/triage"
	"github.com/pranavk-10/GAP-Github/internal/usecase"
)

func fakeGemini(t *testing.T, text string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			}},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	var gen *gemini.Client
	if cfg.ModelConfigured() {
		gen = gemini.New(cfg)
	}
	svc := usecase.NewTriageService(nil, triage.NewClassifier(langdetect.NewWhatlang()), ai.NewResponseCleaner(), nil, cfg.LLMTimeout)
	if gen != nil {
		svc.Generator = gen
	}
	modelCheck, redisCheck := app.BuildReadinessChecks(cfg, nil)
	srv := httpserver.NewServer(cfg, svc, nil, modelCheck, redisCheck)
	return app.BuildRouter(cfg, srv)
}

func baseConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:           "test",
		LLMProvider:      config.ProviderGemini,
		GeminiAPIKey:     "k",
		GeminiModel:      "gemini-test",
		GeminiBaseURL:    baseURL,
		LLMTimeout:       2 * time.Second,
		RequestTimeout:   5 * time.Second,
		RateLimitPerMin:  100,
		CORSAllowOrigins: "*",
	}
}

func TestRouter_ChatTurn(t *testing.T) {
	ts := fakeGemini(t, "```json\n{\"question\": \"How long have you had the headache?\", \"question_number\": 4}\n```")
	h := newRouter(t, baseConfig(ts.URL))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"I have a headache","history":[],"question_count":0}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "model", rec.Header().Get("X-Triage-Source"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"stage":"questioning","question":"How long have you had the headache?","question_number":1}`, rec.Body.String())
}

func TestRouter_ChatFallsBackOnGarbage(t *testing.T) {
	ts := fakeGemini(t, "I am not able to help with that.")
	h := newRouter(t, baseConfig(ts.URL))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"fever","question_count":5}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fallback", rec.Header().Get("X-Triage-Source"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "final", got["stage"])
}

func TestRouter_ModelNotConfigured(t *testing.T) {
	cfg := baseConfig("http://127.0.0.1:0")
	cfg.GeminiAPIKey = ""
	h := newRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_HealthReadyMetrics(t *testing.T) {
	h := newRouter(t, baseConfig("http://127.0.0.1:0"))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := baseConfig("http://127.0.0.1:0")
	cfg.CORSAllowOrigins = "https://app.example.com"
	h := newRouter(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_PerIPRateLimit(t *testing.T) {
	cfg := baseConfig("http://127.0.0.1:0")
	cfg.GeminiAPIKey = ""
	cfg.RateLimitPerMin = 2
	h := newRouter(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusTooManyRequests}, codes)
}

func TestBuildReadinessChecks_NoRedis(t *testing.T) {
	modelCheck, redisCheck := app.BuildReadinessChecks(config.Config{LLMProvider: config.ProviderOpenAI, OpenAIAPIKey: "sk"}, nil)
	assert.NoError(t, modelCheck(context.Background()))
	assert.Nil(t, redisCheck)
}
