package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"

	"quad/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes events into Redis topic channels and assigns each one
// its per-topic sequence number. With a nil Redis client nothing is
// published and PublishTopic reports so, letting callers fall back to a
// local broadcast.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishTopic stamps the event with the topic's next sequence number and
// publishes it. The returned bool reports whether the event actually went
// through Redis. The INCR and PUBLISH are not atomic together, so under
// concurrent publishers delivery order can differ from seq order; seq is
// for staleness detection, not gap-free ordering.
func (n *Notifier) PublishTopic(ctx context.Context, topic, eventType string, payload interface{}) (int64, bool, error) {
	if n.rdb == nil {
		return 0, false, nil
	}

	seq, err := n.rdb.Incr(ctx, TopicSeqKey(topic)).Result()
	if err != nil {
		return 0, false, err
	}

	data, err := Event{
		Type:    eventType,
		Topic:   topic,
		Seq:     seq,
		Payload: payload,
	}.Encode()
	if err != nil {
		return 0, false, err
	}

	if err := n.rdb.Publish(ctx, TopicChannel(topic), string(data)).Err(); err != nil {
		return 0, false, err
	}
	kind, _, _ := ParseTopic(topic)
	observability.EventsPublished.WithLabelValues(kind, eventType).Inc()
	return seq, true, nil
}

// StartPatternSubscriber subscribes to every topic channel and calls
// onMessage with the decoded topic and the raw payload.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(topic, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, topicChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				topic, ok := TopicFromChannel(msg.Channel)
				if !ok {
					slog.Warn("event on unrecognized channel", "channel", msg.Channel)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in event subscriber", "recovered", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(topic, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
