package server

import (
	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommunity handles POST /api/communities
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Privacy     string `json:"privacy"`
		CoverURL    string `json:"cover_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, err := s.communityService.CreateCommunity(c.Context(), service.CreateCommunityInput{
		UserID:      userID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Category:    req.Category,
		Privacy:     models.CommunityPrivacy(req.Privacy),
		CoverURL:    req.CoverURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(community)
}

// GetCommunities handles GET /api/communities
func (s *Server) GetCommunities(c *fiber.Ctx) error {
	page := parsePagination(c, 30)
	userID, _ := s.optionalUserID(c)

	communities, err := s.communityService.ListCommunities(c.Context(), page.Limit, page.Offset, userID, c.Query("category"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(communities)
}

// GetCommunityBySlug handles GET /api/communities/:slug
func (s *Server) GetCommunityBySlug(c *fiber.Ctx) error {
	userID, _ := s.optionalUserID(c)

	community, err := s.communityService.GetCommunityBySlug(c.Context(), c.Params("slug"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(community)
}

// GetCommunityPosts handles GET /api/communities/:slug/posts
func (s *Server) GetCommunityPosts(c *fiber.Ctx) error {
	userID, _ := s.optionalUserID(c)

	community, err := s.communityService.GetCommunityBySlug(c.Context(), c.Params("slug"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	page := parsePagination(c, 20)
	posts, err := s.postService.ListPosts(c.Context(), service.ListPostsInput{
		Limit:         page.Limit,
		Offset:        page.Offset,
		CurrentUserID: userID,
		Sort:          c.Query("sort"),
		CommunityID:   &community.ID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetJoinedCommunities handles GET /api/communities/joined
func (s *Server) GetJoinedCommunities(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	communities, err := s.communityService.ListJoined(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(communities)
}

// UpdateCommunity handles PUT /api/communities/:id
func (s *Server) UpdateCommunity(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		CoverURL    string `json:"cover_url"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, svcErr := s.communityService.UpdateCommunity(c.Context(), service.UpdateCommunityInput{
		UserID:      userID,
		CommunityID: communityID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		CoverURL:    req.CoverURL,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(community)
}

// DeleteCommunity handles DELETE /api/communities/:id. Every member's
// client learns about the deletion so community content is dropped instead
// of lingering until the next refetch.
func (s *Server) DeleteCommunity(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, svcErr := s.communityService.DeleteCommunity(c.Context(), communityID, userID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	payload := map[string]interface{}{
		"community_id": communityID,
		"slug":         result.Community.Slug,
	}
	s.publishEvent(notifications.CommunityTopic(communityID), EventCommunityDeleted, payload)
	for _, memberID := range result.MemberUserIDs {
		s.publishEvent(notifications.UserTopic(memberID), EventCommunityDeleted, payload)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// JoinCommunity handles POST /api/communities/:id/join
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	community, joined, svcErr := s.communityService.JoinCommunity(c.Context(), communityID, userID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	return c.JSON(fiber.Map{
		"community": community,
		"joined":    joined,
	})
}

// LeaveCommunity handles POST /api/communities/:id/leave
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	community, left, svcErr := s.communityService.LeaveCommunity(c.Context(), communityID, userID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	return c.JSON(fiber.Map{
		"community": community,
		"left":      left,
	})
}

// GetCommunityMembers handles GET /api/communities/:id/members
func (s *Server) GetCommunityMembers(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	members, svcErr := s.communityService.ListMembers(c.Context(), communityID, page.Limit, page.Offset)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(members)
}

// SetCommunityMemberRole handles PUT /api/communities/:id/members/:userId/role
// with body {"role": "admin"|"member"}.
func (s *Server) SetCommunityMemberRole(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	var req struct {
		Role string `json:"role"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	member, svcErr := s.communityService.SetMemberRole(c.Context(), communityID, userID, targetID, models.CommunityRole(req.Role))
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(member)
}

// InviteToCommunity handles POST /api/communities/:id/invitations
func (s *Server) InviteToCommunity(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		UserID uint `json:"user_id"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	invitation, svcErr := s.communityService.Invite(c.Context(), service.InviteInput{
		InviterID:   userID,
		CommunityID: communityID,
		InviteeID:   req.UserID,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	s.publishEvent(notifications.UserTopic(req.UserID), EventNotificationCreated, fiber.Map{
		"invitation_id": invitation.ID,
		"community_id":  communityID,
	})

	return c.Status(fiber.StatusCreated).JSON(invitation)
}

// GetMyInvitations handles GET /api/invitations
func (s *Server) GetMyInvitations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	invitations, err := s.communityService.ListInvitations(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(invitations)
}

// RespondToInvitation handles POST /api/invitations/:id/respond with body
// {"accept": bool}.
func (s *Server) RespondToInvitation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	invitationID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Accept bool `json:"accept"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	invitation, svcErr := s.communityService.RespondToInvitation(c.Context(), invitationID, userID, req.Accept)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(invitation)
}
