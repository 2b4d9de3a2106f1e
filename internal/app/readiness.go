package app

import (
	"context"
	"fmt"

	"github.com/pranavk-10/GAP-Github/internal/config"
	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface{ Err() error }

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface {
	Ping(ctx context.Context) RedisPingResult
}

// BuildReadinessChecks returns the model and redis readiness checks. The redis
// check is nil when no client is configured, since the limiter is optional.
func BuildReadinessChecks(cfg config.Config, rdb RedisClient) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	modelCheck := func(_ context.Context) error {
		if !cfg.ModelConfigured() {
			return fmt.Errorf("%w: no api key for provider %q", domain.ErrServiceUnavailable, cfg.LLMProvider)
		}
		return nil
	}
	if rdb == nil {
		return modelCheck, nil
	}
	redisCheck := func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("op=redis.Ping: %w", err)
		}
		return nil
	}
	return modelCheck, redisCheck
}
