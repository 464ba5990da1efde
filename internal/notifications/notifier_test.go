package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNotifier(t *testing.T) (*Notifier, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewNotifier(rdb), rdb
}

func TestPublishTopicAssignsPerTopicSequence(t *testing.T) {
	n, _ := setupNotifier(t)
	ctx := context.Background()

	seq, published, err := n.PublishTopic(ctx, PostTopic(1), "comment_created", nil)
	require.NoError(t, err)
	assert.True(t, published)
	assert.Equal(t, int64(1), seq)

	seq, _, err = n.PublishTopic(ctx, PostTopic(1), "comment_created", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	// A different topic has its own counter.
	seq, _, err = n.PublishTopic(ctx, PostTopic(2), "comment_created", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestPublishTopicDeliversEnvelope(t *testing.T) {
	n, rdb := setupNotifier(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, TopicChannel(UserTopic(7)))
	t.Cleanup(func() { _ = sub.Close() })
	// Wait for the subscription to be live before publishing.
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	_, _, err = n.PublishTopic(ctx, UserTopic(7), "notification_created", map[string]uint{"id": 3})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var evt Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
		assert.Equal(t, "notification_created", evt.Type)
		assert.Equal(t, "user:7", evt.Topic)
		assert.Equal(t, int64(1), evt.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestPublishTopicNilRedisReportsUnpublished(t *testing.T) {
	t.Parallel()

	n := NewNotifier(nil)
	seq, published, err := n.PublishTopic(context.Background(), PostTopic(1), "comment_created", nil)
	require.NoError(t, err)
	assert.False(t, published)
	assert.Equal(t, int64(0), seq)
}

func TestPatternSubscriberDecodesTopic(t *testing.T) {
	n, _ := setupNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type received struct {
		topic   string
		payload string
	}
	got := make(chan received, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(topic, payload string) {
		got <- received{topic: topic, payload: payload}
	}))

	// The pattern subscription is established asynchronously; retry the
	// publish until the subscriber sees it.
	deadline := time.After(2 * time.Second)
	for {
		_, _, err := n.PublishTopic(ctx, CommunityTopic(4), "community_deleted", nil)
		require.NoError(t, err)

		select {
		case r := <-got:
			assert.Equal(t, "community:4", r.topic)

			var evt Event
			require.NoError(t, json.Unmarshal([]byte(r.payload), &evt))
			assert.Equal(t, "community_deleted", evt.Type)
			return
		case <-deadline:
			t.Fatal("timed out waiting for pattern subscriber")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
