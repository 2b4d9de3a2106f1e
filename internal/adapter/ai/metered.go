package ai

import (
	"context"
	"log/slog"

	"github.com/pranavk-10/GAP-Github/internal/adapter/ai/tokencount"
	"github.com/pranavk-10/GAP-Github/internal/adapter/observability"
	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// MeteredGenerator records estimated token usage of every successful call.
type MeteredGenerator struct {
	next     domain.Generator
	provider string
	counter  *tokencount.Counter
}

// NewMeteredGenerator wraps next. A nil counter gets a fresh one.
func NewMeteredGenerator(next domain.Generator, provider string, counter *tokencount.Counter) *MeteredGenerator {
	if counter == nil {
		counter = tokencount.NewCounter()
	}
	return &MeteredGenerator{next: next, provider: provider, counter: counter}
}

// Generate delegates to the wrapped generator.
func (g *MeteredGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.next.Generate(ctx, prompt)
	if err != nil {
		return out, err
	}
	u := g.counter.Calculate(prompt, out, g.provider)
	observability.AddAITokens(g.provider, "prompt", u.PromptTokens)
	observability.AddAITokens(g.provider, "completion", u.CompletionTokens)
	slog.Debug("model token usage",
		slog.String("provider", g.provider),
		slog.Int("prompt_tokens", u.PromptTokens),
		slog.Int("completion_tokens", u.CompletionTokens))
	return out, nil
}
