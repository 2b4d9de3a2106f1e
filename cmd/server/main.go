// Command server starts the triage assistant HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	ai "github.com/pranavk-10/GAP-Github/internal/adapter/ai"
	"github.com/pranavk-10/GAP-Github/internal/adapter/ai/gemini"
	"github.com/pranavk-10/GAP-Github/internal/adapter/ai/openaicompat"
	"github.com/pranavk-10/GAP-Github/internal/adapter/ai/tokencount"
	httpserver "github.com/pranavk-10/GAP-Github/internal/adapter/httpserver"
	"github.com/pranavk-10/GAP-Github/internal/adapter/langdetect"
	"github.com/pranavk-10/GAP-Github/internal/adapter/observability"
	"github.com/pranavk-10/GAP-Github/internal/app"
	"github.com/pranavk-10/GAP-Github/internal/config"
	"github.com/pranavk-10/GAP-Github/internal/domain"
	"github.com/pranavk-10/GAP-Github/internal/service/ratelimiter"
	"github.com/pranavk-10/GAP-Github/internal/triage"
	"github.com/pranavk-10/GAP-Github/internal/usecase"
)

// redisPinger adapts *redis.Client to app.RedisClient.
type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) app.RedisPingResult { return p.c.Ping(ctx) }

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", slog.Any("error", err))
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	gen := buildGenerator(cfg)
	classifier := triage.NewClassifier(langdetect.NewWhatlang())
	triageSvc := usecase.NewTriageService(gen, classifier, ai.NewResponseCleaner(), triage.DefaultFallbacks(), cfg.LLMTimeout)

	// Optional shared limiter; httprate still guards each instance without it.
	var (
		limiter ratelimiter.Limiter
		rdbPing app.RedisClient
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close redis client", slog.Any("error", err))
			}
		}()
		limiter = ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
			httpserver.ChatBucket: ratelimiter.NewBucketConfigFromPerMinute(cfg.RateLimitPerMin),
		})
		rdbPing = redisPinger{rdb}
		slog.Info("redis rate limiter enabled", slog.Int("per_minute", cfg.RateLimitPerMin))
	}

	modelCheck, redisCheck := app.BuildReadinessChecks(cfg, rdbPing)
	srv := httpserver.NewServer(cfg, triageSvc, limiter, modelCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.String("provider", cfg.LLMProvider),
			slog.String("model", cfg.ModelName()))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// buildGenerator returns nil when the selected provider has no API key; the
// service then answers chat turns with 503 until it is configured.
func buildGenerator(cfg config.Config) domain.Generator {
	if !cfg.ModelConfigured() {
		slog.Warn("model unavailable; chat requests will be rejected",
			slog.String("provider", cfg.LLMProvider))
		return nil
	}
	var (
		base     domain.Generator
		provider string
	)
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		base, provider = openaicompat.New(cfg), openaicompat.Provider
	default:
		base, provider = gemini.New(cfg), gemini.Provider
	}
	metered := ai.NewMeteredGenerator(base, provider, tokencount.NewCounter())
	return ai.NewBreakerGenerator(metered, provider, cfg.LLMBreakerThreshold, cfg.LLMBreakerCooldown)
}
