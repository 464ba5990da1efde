package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSubscribesUserAndBroadcastTopics(t *testing.T) {
	t.Parallel()
	h := NewHub()

	client, err := h.Register(7, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, h.SubscriberCount(UserTopic(7)))
	assert.Equal(t, 1, h.SubscriberCount(TopicBroadcast))

	h.BroadcastUser(7, []byte("hello"))
	select {
	case msg := <-client.Send:
		assert.Equal(t, "hello", string(msg))
	default:
		t.Fatal("expected message on client send buffer")
	}
}

func TestSubscribeIsRefcountedPerTopic(t *testing.T) {
	t.Parallel()
	h := NewHub()

	a, err := h.Register(1, nil)
	require.NoError(t, err)
	b, err := h.Register(2, nil)
	require.NoError(t, err)

	topic := PostTopic(10)
	h.Subscribe(a, topic)
	h.Subscribe(b, topic)
	assert.Equal(t, 2, h.SubscriberCount(topic))

	// Re-subscribing the same client is a no-op.
	h.Subscribe(a, topic)
	assert.Equal(t, 2, h.SubscriberCount(topic))

	h.Unsubscribe(a, topic)
	assert.Equal(t, 1, h.SubscriberCount(topic))

	h.Unsubscribe(b, topic)
	assert.Equal(t, 0, h.SubscriberCount(topic))

	// The topic entry itself is released once the last holder leaves.
	h.mu.RLock()
	_, held := h.topics[topic]
	h.mu.RUnlock()
	assert.False(t, held)
}

func TestUnsubscribeUnknownTopicIsNoop(t *testing.T) {
	t.Parallel()
	h := NewHub()

	c, err := h.Register(1, nil)
	require.NoError(t, err)

	h.Unsubscribe(c, PostTopic(99))
	assert.Equal(t, 1, h.SubscriberCount(UserTopic(1)))
}

func TestUnregisterReleasesAllTopics(t *testing.T) {
	t.Parallel()
	h := NewHub()

	c, err := h.Register(3, nil)
	require.NoError(t, err)
	h.Subscribe(c, PostTopic(5))
	h.Subscribe(c, CommunityTopic(8))

	h.UnregisterClient(c)

	assert.Equal(t, 0, h.SubscriberCount(UserTopic(3)))
	assert.Equal(t, 0, h.SubscriberCount(PostTopic(5)))
	assert.Equal(t, 0, h.SubscriberCount(CommunityTopic(8)))
	assert.Equal(t, 0, h.SubscriberCount(TopicBroadcast))
	assert.False(t, h.IsOnline(3))
}

func TestBroadcastTopicReachesOnlySubscribers(t *testing.T) {
	t.Parallel()
	h := NewHub()

	sub, err := h.Register(1, nil)
	require.NoError(t, err)
	other, err := h.Register(2, nil)
	require.NoError(t, err)

	topic := CommunityTopic(6)
	h.Subscribe(sub, topic)

	h.BroadcastTopic(topic, []byte("community update"))

	select {
	case msg := <-sub.Send:
		assert.Equal(t, "community update", string(msg))
	default:
		t.Fatal("subscriber did not receive the broadcast")
	}

	select {
	case msg := <-other.Send:
		t.Fatalf("non-subscriber received %q", msg)
	default:
	}
}

func TestRegisterEnforcesPerUserConnectionLimit(t *testing.T) {
	t.Parallel()
	h := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := h.Register(5, nil)
		require.NoError(t, err)
	}

	_, err := h.Register(5, nil)
	assert.Error(t, err)

	// Other users are unaffected.
	_, err = h.Register(6, nil)
	assert.NoError(t, err)
}

func TestTrySendDropsOnFullBuffer(t *testing.T) {
	t.Parallel()
	h := NewHub()

	c, err := h.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.Send); i++ {
		c.Send <- []byte("fill")
	}

	// Must not block or panic; the message is dropped.
	c.TrySend([]byte("overflow"))

	for len(c.Send) > 0 {
		assert.NotEqual(t, "overflow", string(<-c.Send))
	}
}

func TestTrySendSurvivesClosedChannel(t *testing.T) {
	t.Parallel()
	h := NewHub()

	c, err := h.Register(1, nil)
	require.NoError(t, err)
	close(c.Send)

	assert.NotPanics(t, func() {
		c.TrySend([]byte("late"))
	})
}
