// Package gemini implements domain.Generator on the Google Generative Language
// REST API (models/{model}:generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pranavk-10/GAP-Github/internal/adapter/observability"
	"github.com/pranavk-10/GAP-Github/internal/config"
	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// Provider is the label used in metrics, logs and upstream errors.
const Provider = "gemini"

const maxErrorSnippet = 512

// Client calls generateContent for a single user prompt.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	retry       config.RetryConfig
	hc          *http.Client
}

// New constructs a Gemini client from configuration.
func New(cfg config.Config) *Client {
	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.GeminiBaseURL, "/"),
		apiKey:      cfg.GeminiAPIKey,
		model:       cfg.GeminiModel,
		temperature: cfg.Temperature,
		retry:       cfg.GetRetryConfig(),
		hc: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return fmt.Sprintf("Gemini %s %s", r.Method, r.URL.Host)
				}),
			),
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as one user turn and returns the concatenated text of
// the first candidate. Failures are reported as *domain.UpstreamError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", &domain.UpstreamError{Provider: Provider, Err: errors.New("api key not set")}
	}
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: c.temperature},
	})
	if err != nil {
		return "", &domain.UpstreamError{Provider: Provider, Err: fmt.Errorf("op=gemini.Generate: marshal: %w", err)}
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	var out generateResponse
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("x-goog-api-key", c.apiKey)
		resp, err := c.hc.Do(r)
		if err != nil {
			observability.ObserveAIRequest(Provider, "error", time.Since(start))
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			observability.ObserveAIRequest(Provider, "error", time.Since(start))
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			observability.ObserveAIRequest(Provider, "error", time.Since(start))
			statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, errorMessage(b))
			slog.Warn("ai provider non-2xx",
				slog.String("provider", Provider),
				slog.String("model", c.model),
				slog.Int("status", resp.StatusCode),
				slog.String("body", snippet(b)))
			// 429 and 5xx are retryable; other client errors are not
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		observability.ObserveAIRequest(Provider, "ok", time.Since(start))
		if err := json.Unmarshal(b, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retry.InitialDelay
	expo.MaxInterval = c.retry.MaxDelay
	expo.Multiplier = c.retry.Multiplier
	expo.MaxElapsedTime = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.retry.MaxRetries)), ctx)

	if err := backoff.Retry(op, bo); err != nil {
		return "", &domain.UpstreamError{Provider: Provider, Err: fmt.Errorf("op=gemini.Generate: %w", err)}
	}

	if len(out.Candidates) == 0 {
		reason := out.PromptFeedback.BlockReason
		if reason == "" {
			reason = "unknown"
		}
		return "", &domain.UpstreamError{Provider: Provider, Err: fmt.Errorf("op=gemini.Generate: no candidates (block reason %s)", reason)}
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	slog.Debug("gemini call successful",
		slog.String("model", c.model),
		slog.String("finish_reason", out.Candidates[0].FinishReason))
	return sb.String(), nil
}

func errorMessage(b []byte) string {
	var e apiErrorBody
	if err := json.Unmarshal(b, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return snippet(b)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet]
	}
	return s
}
