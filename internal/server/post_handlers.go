package server

import (
	"quad/internal/featureflags"
	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Content     string `json:"content"`
		Category    string `json:"category"`
		ImageURL    string `json:"image_url,omitempty"`
		IsAnonymous bool   `json:"is_anonymous"`
		CommunityID *uint  `json:"community_id,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.IsAnonymous && !s.featureFlags.Enabled(featureflags.FlagAnonymousPost, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Anonymous posting is not available for your account yet"))
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:      userID,
		Content:     req.Content,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		IsAnonymous: req.IsAnonymous,
		CommunityID: req.CommunityID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	payload := map[string]interface{}{
		"post_id":    post.ID,
		"category":   post.Category,
		"created_at": post.CreatedAt,
	}
	if post.CommunityID != nil {
		s.publishEvent(notifications.CommunityTopic(*post.CommunityID), EventPostCreated, payload)
	} else {
		s.publishEvent(notifications.TopicBroadcast, EventPostCreated, payload)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	userID, _ := s.optionalUserID(c)

	posts, err := s.postService.ListPosts(c.Context(), service.ListPostsInput{
		Limit:         page.Limit,
		Offset:        page.Offset,
		CurrentUserID: userID,
		Sort:          c.Query("sort"),
		Category:      c.Query("category"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := s.optionalUserID(c)

	post, svcErr := s.postService.GetPost(c.Context(), id, userID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(post)
}

// SearchPosts handles GET /api/posts/search?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 10)
	userID, _ := s.optionalUserID(c)

	posts, err := s.postService.SearchPosts(c.Context(), c.Query("q"), page.Limit, page.Offset, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		Category string `json:"category"`
		ImageURL string `json:"image_url,omitempty"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, svcErr := s.postService.UpdatePost(c.Context(), service.UpdatePostInput{
		PostID:   postID,
		UserID:   userID,
		Content:  req.Content,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	s.publishEvent(notifications.PostTopic(post.ID), EventPostUpdated, map[string]interface{}{
		"post_id":    post.ID,
		"updated_at": post.UpdatedAt,
	})

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if svcErr := s.postService.DeletePost(c.Context(), service.DeletePostInput{
		PostID: postID,
		UserID: userID,
	}); svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	s.publishEvent(notifications.PostTopic(postID), EventPostDeleted, map[string]interface{}{
		"post_id": postID,
	})

	return c.SendStatus(fiber.StatusNoContent)
}
