package server

import (
	"quad/internal/featureflags"
	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SetInteraction handles PUT /api/posts/:id/interactions/:kind with body
// {"on": bool}. The operation is declarative and idempotent: repeating it
// leaves exactly one join row (or none) and returns the same authoritative
// counts either way.
func (s *Server) SetInteraction(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	kind, kindErr := service.ParseInteractionKind(c.Params("kind"))
	if kindErr != nil {
		return respondServiceError(c, kindErr)
	}

	var req struct {
		On bool `json:"on"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Creating a repost is gated by the rollout flag; clearing one is not,
	// so users leaving the cohort can still undo.
	if kind == models.InteractionRepost && req.On && !s.featureFlags.Enabled(featureflags.FlagReposts, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Reposts are not available for your account yet"))
	}

	return s.applyInteraction(c, service.SetInteractionInput{
		Kind:   kind,
		UserID: userID,
		PostID: postID,
		On:     req.On,
	})
}

// ToggleInteraction handles POST /api/posts/:id/interactions/:kind. It
// flips the current state; double-tap clients that cannot track local state
// use this form.
func (s *Server) ToggleInteraction(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	kind, kindErr := service.ParseInteractionKind(c.Params("kind"))
	if kindErr != nil {
		return respondServiceError(c, kindErr)
	}

	// A toggle outside the repost rollout cohort may only turn an existing
	// repost off, never mint a new one.
	if kind == models.InteractionRepost && !s.featureFlags.Enabled(featureflags.FlagReposts, userID) {
		has, hasErr := s.postRepo.HasInteraction(c.Context(), kind, userID, postID)
		if hasErr != nil {
			return respondServiceError(c, hasErr)
		}
		if !has {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Reposts are not available for your account yet"))
		}
	}

	result, svcErr := s.interactionService.ToggleInteraction(c.Context(), kind, userID, postID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	s.publishInteractionResult(result)
	return c.JSON(result)
}

// ClearInteraction handles DELETE /api/posts/:id/interactions/:kind.
func (s *Server) ClearInteraction(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	kind, kindErr := service.ParseInteractionKind(c.Params("kind"))
	if kindErr != nil {
		return respondServiceError(c, kindErr)
	}

	return s.applyInteraction(c, service.SetInteractionInput{
		Kind:   kind,
		UserID: userID,
		PostID: postID,
		On:     false,
	})
}

func (s *Server) applyInteraction(c *fiber.Ctx, in service.SetInteractionInput) error {
	result, err := s.interactionService.SetInteraction(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishInteractionResult(result)
	return c.JSON(result)
}

// publishInteractionResult fans the authoritative counter snapshot out on
// the post topic and delivers any notification to its recipient.
func (s *Server) publishInteractionResult(result *service.InteractionResult) {
	if result == nil {
		return
	}
	if result.Changed {
		payload := interactionPayload(result.PostID, result.Counts)
		payload["kind"] = result.Kind
		s.publishEvent(notifications.PostTopic(result.PostID), EventPostInteractionUpdated, payload)
	}
	s.publishNotificationEvent(result.Notification)
}
