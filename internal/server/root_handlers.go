package server

import (
	"context"
	"slices"
	"time"

	"happythoughts/internal/database"

	"github.com/gofiber/fiber/v2"
)

const welcomeMessage = "Welcome to the Happy thoughts API"

// Endpoint is one path of the route listing with the methods it accepts.
type Endpoint struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

// ListEndpoints handles GET /
// @Summary API index
// @Description Welcome message and every registered route.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (s *Server) ListEndpoints(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   welcomeMessage,
		"endpoints": listEndpoints(c.App()),
	})
}

// listEndpoints groups the app's routes by path, sorted by path. HEAD mirrors
// GET and is left out.
func listEndpoints(app *fiber.App) []Endpoint {
	byPath := make(map[string][]string)
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead {
			continue
		}
		if !slices.Contains(byPath[r.Path], r.Method) {
			byPath[r.Path] = append(byPath[r.Path], r.Method)
		}
	}

	endpoints := make([]Endpoint, 0, len(byPath))
	for path, methods := range byPath {
		slices.Sort(methods)
		endpoints = append(endpoints, Endpoint{Path: path, Methods: methods})
	}
	slices.SortFunc(endpoints, func(a, b Endpoint) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return endpoints
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Only the database is
// required; a failing Redis degrades the service without taking it out.
// @Summary Readiness probe
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus == "unhealthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
