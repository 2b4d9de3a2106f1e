package config

import (
	"time"
)

// RetryConfig describes how a model adapter retries a failed call.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier
	Multiplier float64
}

// GetRetryConfig returns the model retry policy. Test environments use short
// delays so that retry paths stay fast.
func (c Config) GetRetryConfig() RetryConfig {
	rc := RetryConfig{
		MaxRetries:   c.LLMMaxRetries,
		InitialDelay: c.LLMBackoffInitial,
		MaxDelay:     c.LLMBackoffMax,
		Multiplier:   c.LLMBackoffMultiplier,
	}
	if rc.MaxRetries < 0 {
		rc.MaxRetries = 0
	}
	if c.IsTest() {
		rc.InitialDelay = 10 * time.Millisecond
		rc.MaxDelay = 50 * time.Millisecond
	}
	if rc.Multiplier < 1 {
		rc.Multiplier = 1
	}
	return rc
}
