package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"quad/internal/middleware"
	"quad/internal/models"
	"quad/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// wsControlFrame is a client-to-server control message. Clients manage their
// topic set with subscribe/unsubscribe frames; everything the server pushes
// arrives as notifications.Event envelopes.
type wsControlFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// WebsocketHandler handles the realtime event stream at GET /api/ws.
// Authentication happens upstream in AuthRequired (single-use ticket or
// bearer token). Each connection starts on its user topic plus broadcast and
// grows its topic set with subscribe frames.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"unauthorized"}}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			slog.Warn("websocket registration refused", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"`+err.Error()+`"}}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = s.handleControlFrame

		slog.Debug("websocket connected", "user_id", userID)

		welcome, _ := json.Marshal(fiber.Map{
			"type":    "connected",
			"payload": fiber.Map{"user_id": userID},
		})
		client.TrySend(welcome)

		go client.WritePump()
		client.ReadPump()

		slog.Debug("websocket disconnected", "user_id", userID)
	})
}

// handleControlFrame processes one inbound frame from a websocket client.
// Unknown frame types and malformed frames are dropped without closing the
// connection.
func (s *Server) handleControlFrame(c *notifications.Client, message []byte) {
	var frame wsControlFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return
	}

	ctx := context.Background()

	switch frame.Type {
	case "subscribe":
		if !s.authorizeTopic(ctx, c.UserID, frame.Topic) {
			s.sendControlAck(c, "subscribe_denied", frame.Topic)
			return
		}
		s.hub.Subscribe(c, frame.Topic)
		s.sendControlAck(c, "subscribed", frame.Topic)

	case "unsubscribe":
		s.hub.Unsubscribe(c, frame.Topic)
		s.sendControlAck(c, "unsubscribed", frame.Topic)

	case "ping":
		// Application-level keepalive for clients that cannot send
		// protocol pings. Activity tracking happens in the read pump.
		s.sendControlAck(c, "pong", "")
	}
}

// authorizeTopic decides whether a user may subscribe to a topic. Post
// topics are open. Community topics require membership when the community
// is private. User topics belong to their owner only; a client's own user
// topic is already held implicitly.
func (s *Server) authorizeTopic(ctx context.Context, userID uint, topic string) bool {
	kind, id, ok := notifications.ParseTopic(topic)
	if !ok {
		return false
	}

	switch kind {
	case notifications.TopicKindBroadcast, notifications.TopicKindPost:
		return true

	case notifications.TopicKindUser:
		return id == userID

	case notifications.TopicKindCommunity:
		community, err := s.communityRepo.GetByID(ctx, id, userID)
		if err != nil {
			return false
		}
		if community.Privacy != models.CommunityPrivacyPrivate {
			return true
		}
		member, err := s.communityRepo.GetMember(ctx, id, userID)
		return err == nil && member != nil
	}

	return false
}

func (s *Server) sendControlAck(c *notifications.Client, ackType, topic string) {
	payload := fiber.Map{}
	if topic != "" {
		payload["topic"] = topic
	}
	ack, err := json.Marshal(fiber.Map{"type": ackType, "payload": payload})
	if err != nil {
		return
	}
	c.TrySend(ack)
}
