package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications?unread=true
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 30)
	unreadOnly := c.QueryBool("unread", false)

	items, err := s.notificationService.List(c.Context(), userID, page.Limit, page.Offset, unreadOnly)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(items)
}

// GetUnreadNotificationCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadNotificationCount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	count, err := s.notificationService.CountUnread(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read. Marking an
// already-read notification reports updated=false and is not an error.
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	updated, svcErr := s.notificationService.MarkRead(c.Context(), userID, id)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(fiber.Map{"updated": updated})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	count, err := s.notificationService.MarkAllRead(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"updated": count})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if svcErr := s.notificationService.Delete(c.Context(), userID, id); svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
