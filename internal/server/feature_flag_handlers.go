package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags handles GET /api/admin/feature-flags. Returns the raw
// configured flag values plus how they evaluate for the requesting admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	return c.JSON(fiber.Map{
		"flags":     s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
