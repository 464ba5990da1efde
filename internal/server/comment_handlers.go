package server

import (
	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content     string `json:"content"`
		IsAnonymous bool   `json:"is_anonymous"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, svcErr := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		UserID:      userID,
		PostID:      postID,
		Content:     req.Content,
		IsAnonymous: req.IsAnonymous,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	// Subscribers patch comments_count from the event rather than
	// incrementing locally.
	payload := interactionPayload(postID, result.Counts)
	payload["comment"] = result.Comment
	s.publishEvent(notifications.PostTopic(postID), EventCommentCreated, payload)
	s.publishNotificationEvent(result.Notification)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"comment": result.Comment,
		"counts":  result.Counts,
	})
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	comments, svcErr := s.commentService.ListComments(c.Context(), postID, page.Limit, page.Offset)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(comments)
}

// UpdateComment handles PUT /api/posts/:id/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
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

	comment, svcErr := s.commentService.UpdateComment(c.Context(), service.UpdateCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	s.publishEvent(notifications.PostTopic(comment.PostID), EventCommentUpdated, map[string]interface{}{
		"post_id":    comment.PostID,
		"comment_id": comment.ID,
	})

	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	result, svcErr := s.commentService.DeleteComment(c.Context(), service.DeleteCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	// Carry the re-read counts so subscribers patch comments_count instead
	// of decrementing locally.
	payload := interactionPayload(result.Comment.PostID, result.Counts)
	payload["comment_id"] = result.Comment.ID
	s.publishEvent(notifications.PostTopic(result.Comment.PostID), EventCommentDeleted, payload)

	return c.SendStatus(fiber.StatusNoContent)
}
