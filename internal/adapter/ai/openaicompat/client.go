// Package openaicompat implements domain.Generator on any OpenAI-compatible
// chat completions endpoint.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pranavk-10/GAP-Github/internal/adapter/observability"
	"github.com/pranavk-10/GAP-Github/internal/config"
	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// Provider is the label used in metrics, logs and upstream errors.
const Provider = "openai"

// Client sends each prompt as a single user message.
type Client struct {
	cli         openai.Client
	model       string
	temperature float64
	hasKey      bool
}

// New constructs a client from configuration. Retries are delegated to the
// SDK and follow LLM_MAX_RETRIES.
func New(cfg config.Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(cfg.GetRetryConfig().MaxRetries),
		option.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return fmt.Sprintf("OpenAI %s %s", r.Method, r.URL.Host)
				}),
			),
		}),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.LLMTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.LLMTimeout))
	}
	return &Client{
		cli:         openai.NewClient(opts...),
		model:       cfg.OpenAIModel,
		temperature: cfg.Temperature,
		hasKey:      cfg.OpenAIAPIKey != "",
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate returns the content of the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.hasKey {
		return "", &domain.UpstreamError{Provider: Provider, Err: errors.New("api key not set")}
	}
	start := time.Now()
	resp, err := c.cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		observability.ObserveAIRequest(Provider, "error", time.Since(start))
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			slog.Warn("ai provider non-2xx",
				slog.String("provider", Provider),
				slog.String("model", c.model),
				slog.Int("status", apiErr.StatusCode))
		}
		return "", &domain.UpstreamError{Provider: Provider, Err: fmt.Errorf("op=openaicompat.Generate: %w", err)}
	}
	observability.ObserveAIRequest(Provider, "ok", time.Since(start))
	if len(resp.Choices) == 0 {
		return "", &domain.UpstreamError{Provider: Provider, Err: errors.New("op=openaicompat.Generate: empty choices")}
	}
	if resp.Model != "" && resp.Model != c.model {
		slog.Debug("model substitution detected",
			slog.String("requested_model", c.model),
			slog.String("actual_model", resp.Model))
	}
	return resp.Choices[0].Message.Content, nil
}
