package app

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranavk-10/GAP-Github/internal/config"
	"github.com/pranavk-10/GAP-Github/internal/domain"
)

type clientAdapter struct{ c *redis.Client }

func (a clientAdapter) Ping(ctx context.Context) RedisPingResult { return a.c.Ping(ctx) }

func TestBuildReadinessChecks_Model(t *testing.T) {
	modelCheck, _ := BuildReadinessChecks(config.Config{LLMProvider: config.ProviderGemini}, nil)
	err := modelCheck(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	modelCheck, _ = BuildReadinessChecks(config.Config{LLMProvider: config.ProviderGemini, GeminiAPIKey: "k"}, nil)
	assert.NoError(t, modelCheck(context.Background()))
}

func TestBuildReadinessChecks_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	_, redisCheck := BuildReadinessChecks(config.Config{}, clientAdapter{rdb})
	require.NotNil(t, redisCheck)
	assert.NoError(t, redisCheck(context.Background()))

	mr.Close()
	assert.Error(t, redisCheck(context.Background()))
}
