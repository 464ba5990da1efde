package middleware

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCheckRateLimit_EnforcesLimit(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	defer os.Setenv("APP_ENV", "test")

	rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "toggle", "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := CheckRateLimit(ctx, rdb, "toggle", "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckRateLimit_SeparateResources(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	defer os.Setenv("APP_ENV", "test")

	rdb := newTestRedis(t)
	ctx := context.Background()

	allowed, err := CheckRateLimit(ctx, rdb, "toggle", "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// A different resource has its own bucket.
	allowed, err = CheckRateLimit(ctx, rdb, "comment", "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_DisabledInTestEnv(t *testing.T) {
	os.Setenv("APP_ENV", "test")

	allowed, err := CheckRateLimit(context.Background(), nil, "toggle", "user:1", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_NilClientFails(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	defer os.Setenv("APP_ENV", "test")

	_, err := CheckRateLimit(context.Background(), nil, "toggle", "user:1", 1, time.Minute)
	assert.Error(t, err)
}
