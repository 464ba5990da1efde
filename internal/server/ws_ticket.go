package server

import (
	"context"
	"errors"
	"strconv"
	"time"

	"quad/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	wsTicketTTL = 60 * time.Second

	// How long a redeemed ticket stays valid in-process. Fiber's websocket
	// upgrade runs the auth middleware more than once for the same
	// connection, so a GETDEL'd ticket must survive the extra passes.
	consumedTicketGrace = 30 * time.Second
)

type consumedTicketEntry struct {
	userID    uint
	expiresAt time.Time
}

// IssueWSTicket handles POST /api/ws/ticket. It mints a single-use ticket
// bound to the authenticated user; the browser passes it as a query param
// when opening the WebSocket, since headers are unavailable there.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errors.New("ticket store unavailable")))
	}

	ticket := uuid.New().String()
	key := wsTicketKey(ticket)
	if err := s.redis.Set(c.Context(), key, strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// redeemWSTicket consumes a ticket atomically via GETDEL, then caches it
// in-process so the rest of the handshake can re-validate it.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, bool) {
	now := time.Now()

	s.consumedTicketsMu.Lock()
	if entry, ok := s.consumedTickets[ticket]; ok {
		if now.Before(entry.expiresAt) {
			s.consumedTicketsMu.Unlock()
			return entry.userID, true
		}
		delete(s.consumedTickets, ticket)
	}
	// Evict anything else that expired while we hold the lock.
	for t, entry := range s.consumedTickets {
		if now.After(entry.expiresAt) {
			delete(s.consumedTickets, t)
		}
	}
	s.consumedTicketsMu.Unlock()

	if s.redis == nil {
		return 0, false
	}

	// Missing key and transport errors both read as an invalid ticket.
	userIDStr, err := s.redis.GetDel(ctx, wsTicketKey(ticket)).Result()
	if err != nil {
		return 0, false
	}

	userID64, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		return 0, false
	}

	s.consumedTicketsMu.Lock()
	s.consumedTickets[ticket] = consumedTicketEntry{
		userID:    uint(userID64),
		expiresAt: now.Add(consumedTicketGrace),
	}
	s.consumedTicketsMu.Unlock()

	return uint(userID64), true
}

func wsTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}
