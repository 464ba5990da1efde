package server

import (
	"quad/internal/featureflags"
	"quad/internal/models"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetDonations handles GET /api/donations
func (s *Server) GetDonations(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	donations, err := s.donationService.ListRecent(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(donations)
}

// GetDonationSummary handles GET /api/donations/summary
func (s *Server) GetDonationSummary(c *fiber.Ctx) error {
	summary, err := s.donationService.Summary(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(summary)
}

// CreateDonation handles POST /api/donations. Donation intake can be rolled
// out gradually with the "donations" feature flag.
func (s *Server) CreateDonation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if !s.featureFlags.Enabled(featureflags.FlagDonations, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Donations are not available for your account yet"))
	}

	var req struct {
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
		Message     string `json:"message"`
		IsAnonymous bool   `json:"is_anonymous"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	donation, err := s.donationService.CreateDonation(c.Context(), service.CreateDonationInput{
		UserID:      userID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(donation)
}
