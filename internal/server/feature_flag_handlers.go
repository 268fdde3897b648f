package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns configured feature flags and their state for the caller.
// Percentage rollouts are bucketed on the client IP.
// @Summary Feature flags
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /features [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags":   s.featureFlags.Raw(),
		"enabled": s.featureFlags.Snapshot(c.IP()),
	})
}
