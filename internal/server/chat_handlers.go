package server

import (
	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateConversation handles POST /api/conversations with body
// {"recipient_id": n}. The conversation for a user pair is created lazily
// and returned as-is when it already exists.
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		RecipientID uint   `json:"recipient_id"`
		Content     string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// With an opening message this doubles as "start a chat".
	if req.Content != "" {
		return s.sendDirectMessage(c, userID, req.RecipientID, req.Content)
	}

	if req.RecipientID == 0 || req.RecipientID == userID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A recipient other than yourself is required"))
	}
	if _, err := s.userService.GetUserByID(c.Context(), req.RecipientID); err != nil {
		return respondServiceError(c, err)
	}

	conv, created, err := s.chatRepo.GetOrCreateDirectConversation(c.Context(), userID, req.RecipientID)
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(conv)
}

// GetConversations handles GET /api/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	convs, err := s.chatService.GetConversations(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(convs)
}

// GetConversation handles GET /api/conversations/:id
func (s *Server) GetConversation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	conv, svcErr := s.chatService.GetConversationForUser(c.Context(), convID, userID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(conv)
}

// GetMessages handles GET /api/conversations/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	messages, svcErr := s.chatService.GetMessages(c.Context(), convID, userID, page.Limit, page.Offset)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/conversations/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	conv, svcErr := s.chatService.GetConversationForUser(c.Context(), convID, userID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	recipientID := service.RecipientOf(conv, userID)
	if recipientID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Conversation has no recipient"))
	}

	return s.sendDirectMessage(c, userID, recipientID, req.Content)
}

// MarkConversationRead handles POST /api/conversations/:id/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if svcErr := s.chatService.MarkRead(c.Context(), convID, userID); svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// sendDirectMessage persists the message and fans it out to both
// participants' user topics, so every open device of either user sees it.
func (s *Server) sendDirectMessage(c *fiber.Ctx, senderID, recipientID uint, content string) error {
	result, err := s.chatService.SendMessage(c.Context(), service.SendMessageInput{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	payload := map[string]interface{}{
		"conversation_id": result.Conversation.ID,
		"message":         result.Message,
	}
	s.publishEvent(notifications.UserTopic(recipientID), EventMessageReceived, payload)
	s.publishEvent(notifications.UserTopic(senderID), EventMessageReceived, payload)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":              result.Message,
		"conversation":         result.Conversation,
		"conversation_created": result.ConversationCreated,
	})
}
