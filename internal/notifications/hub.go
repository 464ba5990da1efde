package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"quad/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// Max connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 10000
)

// Hub fans events out to websocket clients by topic. Every client is
// implicitly subscribed to its own user topic; other topics are joined and
// left explicitly, and a topic's fan-out entry exists only while at least
// one client holds it.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	topics     map[string]map[*Client]struct{}
	byClient   map[*Client]map[string]struct{}
	totalConns int
	shutdown   chan struct{}
	done       chan struct{}
	presence   *ConnectionManager
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "event hub" }

// NewHub creates a hub. A Redis client enables cross-process presence.
func NewHub(redisClients ...*redis.Client) *Hub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		topics:   make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		presence: NewConnectionManager(redisClient, ConnectionManagerConfig{}),
	}
}

func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	if h.presence == nil {
		return
	}
	h.presence.SetCallbacks(onOnline, onOffline)
}

// Register opens a session for userID on conn. The client starts subscribed
// to its own user topic and to the broadcast topic.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}

	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid uint) {
		if h.presence != nil {
			h.presence.Touch(context.Background(), uid)
		}
	}

	m[client] = struct{}{}
	h.totalConns++
	h.subscribeLocked(client, UserTopic(userID))
	h.subscribeLocked(client, TopicBroadcast)
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}

	return client, nil
}

// UnregisterClient closes the client's session and releases every topic it
// held.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removedClient := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removedClient = true
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	for topic := range h.byClient[client] {
		h.unsubscribeLocked(client, topic)
	}
	delete(h.byClient, client)
	h.mu.Unlock()

	if removedClient && h.presence != nil {
		h.presence.Unregister(context.Background(), client.UserID)
	}
}

// Subscribe adds the client to a topic. Authorization (e.g. community
// membership) is the caller's responsibility.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	h.subscribeLocked(client, topic)
	h.mu.Unlock()
}

// Unsubscribe removes the client from a topic. Unsubscribing from a topic
// the client never joined is a no-op.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	h.unsubscribeLocked(client, topic)
	h.mu.Unlock()
}

func (h *Hub) subscribeLocked(client *Client, topic string) {
	held := h.byClient[client]
	if held == nil {
		held = make(map[string]struct{})
		h.byClient[client] = held
	}
	if _, ok := held[topic]; ok {
		return
	}
	held[topic] = struct{}{}

	subs := h.topics[topic]
	if subs == nil {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[client] = struct{}{}
	observability.TopicSubscriptions.Inc()
}

func (h *Hub) unsubscribeLocked(client *Client, topic string) {
	held := h.byClient[client]
	if held == nil {
		return
	}
	if _, ok := held[topic]; !ok {
		return
	}
	delete(held, topic)

	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	observability.TopicSubscriptions.Dec()
}

// SubscriberCount reports how many clients hold a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// BroadcastTopic sends message to every client subscribed to topic.
func (h *Hub) BroadcastTopic(topic string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		c.TrySend(message)
	}
}

// BroadcastUser sends message to all of one user's connections.
func (h *Hub) BroadcastUser(userID uint, message []byte) {
	h.BroadcastTopic(UserTopic(userID), message)
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.BroadcastTopic(TopicBroadcast, message)
}

// IsOnline reports whether a user currently has at least one open session.
func (h *Hub) IsOnline(userID uint) bool {
	if h.presence != nil {
		return h.presence.IsOnline(context.Background(), userID)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.conns[userID]
	return ok && len(clients) > 0
}

// StartWiring connects the Notifier to this hub: events published on any
// topic channel in Redis are fanned out to local subscribers of that topic.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(topic, payload string) {
		h.BroadcastTopic(topic, []byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	if h.presence != nil {
		h.presence.Stop()
	}

	h.mu.Lock()
	for userID, userConns := range h.conns {
		for client := range userConns {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				slog.Debug("failed to write close message", "user_id", userID, "error", err)
			}
			if err := client.Conn.Close(); err != nil {
				slog.Debug("failed to close websocket", "user_id", userID, "error", err)
			}
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.topics = make(map[string]map[*Client]struct{})
	h.byClient = make(map[*Client]map[string]struct{})
	h.mu.Unlock()

	close(h.done)

	return nil
}
