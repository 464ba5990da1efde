package notifications

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic    string
		wantKind string
		wantID   uint
		wantOK   bool
	}{
		{"broadcast", "broadcast", 0, true},
		{"user:42", "user", 42, true},
		{"post:1", "post", 1, true},
		{"community:9001", "community", 9001, true},
		{"user:0", "", 0, false},
		{"user:", "", 0, false},
		{":42", "", 0, false},
		{"game:42", "", 0, false},
		{"user:abc", "", 0, false},
		{"", "", 0, false},
	}

	for _, tt := range tests {
		kind, id, ok := ParseTopic(tt.topic)
		assert.Equal(t, tt.wantOK, ok, "topic %q", tt.topic)
		assert.Equal(t, tt.wantKind, kind, "topic %q", tt.topic)
		assert.Equal(t, tt.wantID, id, "topic %q", tt.topic)
	}
}

func TestTopicChannelRoundtrip(t *testing.T) {
	t.Parallel()

	topic := PostTopic(17)
	channel := TopicChannel(topic)

	back, ok := TopicFromChannel(channel)
	require.True(t, ok)
	assert.Equal(t, topic, back)

	_, ok = TopicFromChannel("some:other:channel")
	assert.False(t, ok)

	_, ok = TopicFromChannel(topicChannelPrefix)
	assert.False(t, ok)
}

func TestEventEncode(t *testing.T) {
	t.Parallel()

	data, err := Event{
		Type:    "post_interaction_updated",
		Topic:   PostTopic(5),
		Seq:     3,
		Payload: map[string]int{"likes_count": 2},
	}.Encode()
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "post_interaction_updated", decoded.Type)
	assert.Equal(t, "post:5", decoded.Topic)
	assert.Equal(t, int64(3), decoded.Seq)
}
