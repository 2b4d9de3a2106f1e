// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Supported generative model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8000"`
	// LLMProvider selects the generator adapter: gemini or openai (any OpenAI-compatible endpoint).
	LLMProvider   string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	// LLMTimeout bounds a single model invocation.
	LLMTimeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	Temperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.4"`
	// Retry policy for the model call. Zero retries means a failure surfaces immediately.
	LLMMaxRetries        int           `env:"LLM_MAX_RETRIES" envDefault:"0"`
	LLMBackoffInitial    time.Duration `env:"LLM_BACKOFF_INITIAL_INTERVAL" envDefault:"500ms"`
	LLMBackoffMax        time.Duration `env:"LLM_BACKOFF_MAX_INTERVAL" envDefault:"5s"`
	LLMBackoffMultiplier float64       `env:"LLM_BACKOFF_MULTIPLIER" envDefault:"2.0"`
	// Circuit breaker around the generator; threshold 0 disables it.
	LLMBreakerThreshold int           `env:"LLM_BREAKER_THRESHOLD" envDefault:"5"`
	LLMBreakerCooldown  time.Duration `env:"LLM_BREAKER_COOLDOWN" envDefault:"30s"`
	// RedisURL enables the shared token-bucket limiter when set.
	RedisURL              string        `env:"REDIS_URL"`
	OTLPEndpoint          string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName       string        `env:"OTEL_SERVICE_NAME" envDefault:"triage-assistant"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" envDefault:"45s"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	switch cfg.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("op=config.Load: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	return cfg, nil
}

// ModelConfigured reports whether the selected provider has credentials.
func (c Config) ModelConfigured() bool {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return strings.TrimSpace(c.OpenAIAPIKey) != ""
	default:
		return strings.TrimSpace(c.GeminiAPIKey) != ""
	}
}

// ModelName returns the model identifier of the selected provider.
func (c Config) ModelName() string {
	if c.LLMProvider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
