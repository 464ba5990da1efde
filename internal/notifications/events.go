// Package notifications provides real-time event delivery over websockets,
// fanned out across processes through Redis pub/sub.
package notifications

import (
	"encoding/json"
	"strconv"
	"strings"
)

// TopicBroadcast addresses every connected client.
const TopicBroadcast = "broadcast"

// Topic kinds as returned by ParseTopic.
const (
	TopicKindBroadcast = TopicBroadcast
	TopicKindUser      = "user"
	TopicKindPost      = "post"
	TopicKindCommunity = "community"
)

const (
	topicChannelPrefix = "events:topic:"
	topicSeqPrefix     = "events:seq:"
)

// Event is the wire envelope for every realtime message. Seq is monotonic
// per topic, so a client can discard an echo that arrives after it has
// already applied a newer authoritative state for the same topic.
type Event struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic"`
	Seq     int64       `json:"seq"`
	Payload interface{} `json:"payload"`
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// UserTopic is the private topic every authenticated connection is
// subscribed to implicitly.
func UserTopic(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// PostTopic carries interaction and comment updates for one post.
func PostTopic(postID uint) string {
	return "post:" + strconv.FormatUint(uint64(postID), 10)
}

// CommunityTopic carries membership and lifecycle updates for one community.
func CommunityTopic(communityID uint) string {
	return "community:" + strconv.FormatUint(uint64(communityID), 10)
}

// TopicChannel maps a topic to its Redis pub/sub channel.
func TopicChannel(topic string) string {
	return topicChannelPrefix + topic
}

// TopicSeqKey maps a topic to the Redis key holding its sequence counter.
func TopicSeqKey(topic string) string {
	return topicSeqPrefix + topic
}

// TopicFromChannel inverts TopicChannel; ok is false for foreign channels.
func TopicFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, topicChannelPrefix) {
		return "", false
	}
	topic := strings.TrimPrefix(channel, topicChannelPrefix)
	if topic == "" {
		return "", false
	}
	return topic, true
}

// ParseTopic splits a topic into its kind and numeric ID. The broadcast
// topic has kind "broadcast" and ID 0.
func ParseTopic(topic string) (kind string, id uint, ok bool) {
	if topic == TopicBroadcast {
		return TopicBroadcast, 0, true
	}
	i := strings.IndexByte(topic, ':')
	if i <= 0 || i == len(topic)-1 {
		return "", 0, false
	}
	kind = topic[:i]
	switch kind {
	case TopicKindUser, TopicKindPost, TopicKindCommunity:
	default:
		return "", 0, false
	}
	id64, err := strconv.ParseUint(topic[i+1:], 10, 32)
	if err != nil || id64 == 0 {
		return "", 0, false
	}
	return kind, uint(id64), true
}
