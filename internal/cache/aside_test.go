package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAsideMissFetchesAndStores(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	calls := 0
	var got string
	err := Aside(ctx, "greeting", &got, time.Minute, func() error {
		calls++
		got = "hello"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("greeting"))

	// Second call is served from cache.
	var again string
	err = Aside(ctx, "greeting", &again, time.Minute, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", again)
	assert.Equal(t, 1, calls)
}

func TestAsidePropagatesFetchError(t *testing.T) {
	setupCache(t)

	var dest int
	err := Aside(context.Background(), "broken", &dest, time.Minute, func() error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
}

func TestAsideNilClientCallsFetch(t *testing.T) {
	SetClient(nil)

	var dest int
	err := Aside(context.Background(), "nocache", &dest, time.Minute, func() error {
		dest = 7
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, dest)
}

func TestSetJSONRespectsTTL(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "ttl-key", map[string]int{"n": 1}, 30*time.Second))
	mr.FastForward(time.Minute)

	var out map[string]int
	found, err := GetJSON(ctx, "ttl-key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
