package server

import (
	"context"
	"log/slog"

	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/repository"
)

// Event type constants prevent typos in event names.
const (
	EventPostCreated            = "post_created"
	EventPostUpdated            = "post_updated"
	EventPostDeleted            = "post_deleted"
	EventPostInteractionUpdated = "post_interaction_updated"
	EventCommentCreated         = "comment_created"
	EventCommentUpdated         = "comment_updated"
	EventCommentDeleted         = "comment_deleted"
	EventCommunityDeleted       = "community_deleted"
	EventMessageReceived        = "message_received"
	EventNotificationCreated    = "notification_created"
)

// publishEvent stamps and publishes an event on a topic. With Redis
// available the event goes through the notifier (which assigns the per-topic
// seq) and reaches local clients via the hub's pattern subscription; without
// Redis it is broadcast to local subscribers only, with seq 0.
func (s *Server) publishEvent(topic, eventType string, payload interface{}) {
	if s.notifier != nil {
		_, published, err := s.notifier.PublishTopic(context.Background(), topic, eventType, payload)
		if err != nil {
			slog.Error("failed to publish event", "type", eventType, "topic", topic, "error", err)
		}
		if published {
			return
		}
	}

	if s.hub == nil {
		return
	}
	data, err := notifications.Event{
		Type:    eventType,
		Topic:   topic,
		Payload: payload,
	}.Encode()
	if err != nil {
		slog.Error("failed to encode event", "type", eventType, "error", err)
		return
	}
	s.hub.BroadcastTopic(topic, data)
}

// interactionPayload is the authoritative counter snapshot embedded in
// post_interaction_updated and comment events. Clients patch their local
// state from it and discard stale echoes by seq.
func interactionPayload(postID uint, counts *repository.InteractionSnapshot) map[string]interface{} {
	p := map[string]interface{}{
		"post_id": postID,
	}
	if counts != nil {
		p["likes_count"] = counts.LikesCount
		p["comments_count"] = counts.CommentsCount
		p["reposts_count"] = counts.RepostsCount
		p["bookmarks_count"] = counts.BookmarksCount
	}
	return p
}

// publishNotificationEvent pushes a freshly created notification to its
// recipient's user topic.
func (s *Server) publishNotificationEvent(n *models.Notification) {
	if n == nil {
		return
	}
	s.publishEvent(notifications.UserTopic(n.UserID), EventNotificationCreated, n)
}
