package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	tests := []struct {
		name     string
		text     string
		minCount int
		maxCount int
	}{
		{"empty", "", 0, 0},
		{"simple", "Hello, world!", 3, 5},
		{"sentence", "The quick brown fox jumps over the lazy dog.", 8, 12},
		{"json", `{"stage": "questioning", "question": "Any fever?", "question_number": 2}`, 15, 30},
		{"hindi", "मुझे सिरदर्द है", 3, 40},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := counter.CountTokens(tt.text)
			assert.GreaterOrEqual(t, got, tt.minCount)
			assert.LessOrEqual(t, got, tt.maxCount)
		})
	}
}

func TestCountPromptTokens_IncludesOverhead(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	prompt := "I have a headache"
	assert.Greater(t, c.CountPromptTokens(prompt), c.CountTokens(prompt))
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	u := c.Calculate(strings.Repeat("symptom ", 50), `{"question":"Since when?"}`, "gemini")
	assert.Equal(t, "gemini", u.Provider)
	assert.Positive(t, u.PromptTokens)
	assert.Positive(t, u.CompletionTokens)
	assert.Equal(t, u.PromptTokens+u.CompletionTokens, u.TotalTokens)
}
