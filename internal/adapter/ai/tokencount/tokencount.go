// Package tokencount estimates token usage of model calls with tiktoken-go.
//
// Gemini and OpenAI-compatible models tokenize differently; cl100k_base is
// used as a common approximation so usage stays comparable across providers.
// BPE ranks are loaded from the embedded offline loader, so counting never
// touches the network.
package tokencount

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the BPE encoding used for every model.
const Encoding = "cl100k_base"

// Per-message overhead of chat formatted requests.
const (
	tokensPerMessage = 3
	replyPriming     = 3
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Usage is the token count of one model call.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Provider         string `json:"provider"`
}

// Counter counts tokens. The encoding is loaded lazily on first use.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(Encoding)
		if c.err != nil {
			slog.Warn("token encoding unavailable, using character estimate", slog.Any("error", c.err))
		}
	})
	return c.enc, c.err
}

// CountTokens counts the tokens of text. When the encoding cannot be loaded it
// falls back to roughly four bytes per token.
func (c *Counter) CountTokens(text string) int {
	enc, err := c.encoding()
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// CountPromptTokens counts a single user message including chat overhead.
func (c *Counter) CountPromptTokens(prompt string) int {
	return tokensPerMessage + c.CountTokens("user") + c.CountTokens(prompt) + replyPriming
}

// Calculate returns the usage of one prompt/completion pair.
func (c *Counter) Calculate(prompt, completion, provider string) Usage {
	p := c.CountPromptTokens(prompt)
	out := c.CountTokens(completion)
	return Usage{
		PromptTokens:     p,
		CompletionTokens: out,
		TotalTokens:      p + out,
		Provider:         provider,
	}
}
