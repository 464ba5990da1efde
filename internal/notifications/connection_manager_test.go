package notifications

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inOnlineSet reports membership in the presence set; a missing key counts
// as not a member.
func inOnlineSet(t *testing.T, mr *miniredis.Miniredis, member string) bool {
	t.Helper()
	ok, err := mr.SIsMember(defaultPresenceOnlineSetKey, member)
	if err != nil {
		return false
	}
	return ok
}

func setupPresence(t *testing.T, cfg ConnectionManagerConfig) (*ConnectionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	m := NewConnectionManager(rdb, cfg)
	t.Cleanup(m.Stop)
	return m, mr
}

func TestRegisterMarksUserOnline(t *testing.T) {
	m, mr := setupPresence(t, ConnectionManagerConfig{})
	ctx := context.Background()

	assert.False(t, m.IsOnline(ctx, 7))

	m.Register(ctx, 7)
	assert.True(t, m.IsOnline(ctx, 7))
	assert.True(t, inOnlineSet(t, mr, "7"))
	assert.True(t, mr.Exists(defaultPresenceLastSeenKeyNS+"7"))
}

func TestOnlineCallbackFiresOncePerTransition(t *testing.T) {
	m, _ := setupPresence(t, ConnectionManagerConfig{})
	ctx := context.Background()

	var mu sync.Mutex
	onlineCalls := 0
	m.SetCallbacks(func(userID uint) {
		mu.Lock()
		onlineCalls++
		mu.Unlock()
	}, nil)

	m.Register(ctx, 3)
	// A second tab for the same user is not a new transition.
	m.Register(ctx, 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, onlineCalls)
}

func TestUnregisterWaitsForLastConnection(t *testing.T) {
	m, _ := setupPresence(t, ConnectionManagerConfig{
		OfflineGracePeriod: 10 * time.Millisecond,
	})
	ctx := context.Background()

	m.Register(ctx, 5)
	m.Register(ctx, 5)

	m.Unregister(ctx, 5)
	assert.True(t, m.IsOnline(ctx, 5), "one connection is still open")

	m.Unregister(ctx, 5)

	m.mu.RLock()
	_, hasTimer := m.offlineTimers[5]
	m.mu.RUnlock()
	assert.True(t, hasTimer, "last close should arm the grace timer")
}

func TestGraceWindowAbsorbsReload(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	offline := make(chan uint, 1)
	m := NewConnectionManager(rdb, ConnectionManagerConfig{
		LastSeenTTL:        time.Second,
		OfflineGracePeriod: 30 * time.Millisecond,
		OnUserOffline:      func(userID uint) { offline <- userID },
	})
	t.Cleanup(m.Stop)
	ctx := context.Background()

	m.Register(ctx, 9)
	m.Unregister(ctx, 9)
	// Reconnect inside the grace window, like a page refresh.
	m.Register(ctx, 9)

	select {
	case id := <-offline:
		t.Fatalf("user %d went offline despite reconnecting", id)
	case <-time.After(100 * time.Millisecond):
	}
	assert.True(t, m.IsOnline(ctx, 9))
}

func TestOfflineAfterGraceAndTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	offline := make(chan uint, 1)
	m := NewConnectionManager(rdb, ConnectionManagerConfig{
		LastSeenTTL:        time.Second,
		OfflineGracePeriod: 50 * time.Millisecond,
		OnUserOffline:      func(userID uint) { offline <- userID },
	})
	t.Cleanup(m.Stop)
	ctx := context.Background()

	m.Register(ctx, 4)
	m.Unregister(ctx, 4)
	// Expire the last-seen key so no other process can claim the user
	// is still around.
	mr.FastForward(2 * time.Second)

	select {
	case id := <-offline:
		assert.Equal(t, uint(4), id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for offline callback")
	}
	assert.False(t, m.IsOnline(ctx, 4))
	assert.False(t, inOnlineSet(t, mr, "4"))
}

func TestReapOnceEvictsStaleEntries(t *testing.T) {
	m, mr := setupPresence(t, ConnectionManagerConfig{})
	ctx := context.Background()

	// A user left behind by a crashed process: in the online set with no
	// live last-seen key.
	_, err := mr.SAdd(defaultPresenceOnlineSetKey, "11")
	require.NoError(t, err)

	offline := make(chan uint, 1)
	m.SetCallbacks(nil, func(userID uint) { offline <- userID })

	m.reapOnce(ctx)

	assert.False(t, inOnlineSet(t, mr, "11"))
	select {
	case id := <-offline:
		assert.Equal(t, uint(11), id)
	default:
		t.Fatal("expected offline callback for reaped user")
	}
}

func TestGetOnlineUserIDsUnionsRedisAndLocal(t *testing.T) {
	m, mr := setupPresence(t, ConnectionManagerConfig{})
	ctx := context.Background()

	m.Register(ctx, 1)
	m.Register(ctx, 2)

	// A user connected to a different process, visible only via Redis.
	_, err := mr.SAdd(defaultPresenceOnlineSetKey, "30")
	require.NoError(t, err)
	require.NoError(t, mr.Set(defaultPresenceLastSeenKeyNS+"30", strconv.FormatInt(time.Now().Unix(), 10)))
	mr.SetTTL(defaultPresenceLastSeenKeyNS+"30", time.Minute)

	ids := m.GetOnlineUserIDs(ctx)
	assert.ElementsMatch(t, []uint{1, 2, 30}, ids)
}

func TestPresenceWithoutRedisUsesLocalState(t *testing.T) {
	t.Parallel()

	m := NewConnectionManager(nil, ConnectionManagerConfig{})
	t.Cleanup(m.Stop)
	ctx := context.Background()

	m.Register(ctx, 8)
	assert.True(t, m.IsOnline(ctx, 8))
	assert.ElementsMatch(t, []uint{8}, m.GetOnlineUserIDs(ctx))
}
