package server

import (
	"quad/internal/models"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userService.GetUserByID(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Bio         string `json:"bio"`
		Major       string `json:"major"`
		GradYear    int    `json:"grad_year"`
		AvatarURL   string `json:"avatar_url"`
		CoverURL    string `json:"cover_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:      userID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Major:       req.Major,
		GradYear:    req.GradYear,
		AvatarURL:   req.AvatarURL,
		CoverURL:    req.CoverURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(user)
}

// Heartbeat handles POST /api/users/me/heartbeat. Clients call it on an
// interval while the app is foregrounded to keep last_active_at fresh.
func (s *Server) Heartbeat(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	at, err := s.userService.Heartbeat(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"last_active_at": at,
	})
}

// GetMyBookmarks handles GET /api/users/me/bookmarks
func (s *Server) GetMyBookmarks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 20)

	posts, err := s.postService.GetBookmarkedPosts(c.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetAllUsers handles GET /api/users
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	users, err := s.userService.ListUsers(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, svcErr := s.userService.GetUserByID(c.Context(), id)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	currentUserID := c.Locals("userID").(uint)

	posts, svcErr := s.postService.GetUserPosts(c.Context(), id, page.Limit, page.Offset, currentUserID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(posts)
}

// PromoteToAdmin handles POST /api/users/:id/promote-admin
func (s *Server) PromoteToAdmin(c *fiber.Ctx) error {
	return s.setAdminStatus(c, true)
}

// DemoteFromAdmin handles POST /api/users/:id/demote-admin
func (s *Server) DemoteFromAdmin(c *fiber.Ctx) error {
	return s.setAdminStatus(c, false)
}

func (s *Server) setAdminStatus(c *fiber.Ctx, isAdmin bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, svcErr := s.userService.SetAdmin(c.Context(), id, isAdmin)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(user)
}
