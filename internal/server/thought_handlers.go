package server

import (
	"encoding/json"

	"happythoughts/internal/models"
	"happythoughts/internal/service"

	"github.com/gofiber/fiber/v2"
)

// thoughtRequest is the body of create and partial update. Hearts stays raw
// so a numeric string is accepted as well as a number.
type thoughtRequest struct {
	Message *string         `json:"message"`
	Hearts  json.RawMessage `json:"hearts,omitempty" swaggertype:"integer"`
}

// ListThoughts handles GET /thoughts
// @Summary List thoughts
// @Description Newest first. minHearts keeps thoughts with at least that many hearts.
// @Tags thoughts
// @Produce json
// @Param minHearts query int false "Minimum hearts"
// @Param limit query int false "Page size (max 100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Thought
// @Failure 400 {object} models.ErrorResponse
// @Router /thoughts [get]
func (s *Server) ListThoughts(c *fiber.Ctx) error {
	minHearts, err := parseMinHearts(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPaginationLimit)

	thoughts, err := s.thoughtService.ListThoughts(c.UserContext(), service.ListThoughtsInput{
		MinHearts: minHearts,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(thoughts)
}

// GetThought handles GET /thoughts/:id
// @Summary Get a thought
// @Tags thoughts
// @Produce json
// @Param id path string true "Thought ID"
// @Success 200 {object} models.Thought
// @Failure 404 {object} models.ErrorResponse
// @Router /thoughts/{id} [get]
func (s *Server) GetThought(c *fiber.Ctx) error {
	thought, err := s.thoughtService.GetThought(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(thought)
}

// CreateThought handles POST /thoughts
// @Summary Create a thought
// @Description Thoughts are anonymous; the token only gates the write.
// @Tags thoughts
// @Accept json
// @Produce json
// @Param body body thoughtRequest true "Thought"
// @Success 201 {object} models.Thought
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /thoughts [post]
func (s *Server) CreateThought(c *fiber.Ctx) error {
	var req thoughtRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var message string
	if req.Message != nil {
		message = *req.Message
	}

	thought, err := s.thoughtService.CreateThought(c.UserContext(), service.CreateThoughtInput{Message: message})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(thought)
}

// LikeThought handles POST /thoughts/:id/like
// @Summary Like a thought
// @Description Adds one heart atomically.
// @Tags thoughts
// @Produce json
// @Param id path string true "Thought ID"
// @Success 200 {object} models.Thought
// @Failure 404 {object} models.ErrorResponse
// @Router /thoughts/{id}/like [post]
func (s *Server) LikeThought(c *fiber.Ctx) error {
	thought, err := s.thoughtService.LikeThought(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(thought)
}

// UpdateThought handles PATCH /thoughts/:id
// @Summary Update a thought
// @Description Only the supplied fields change.
// @Tags thoughts
// @Accept json
// @Produce json
// @Param id path string true "Thought ID"
// @Param body body thoughtRequest true "Fields to change"
// @Success 200 {object} models.Thought
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /thoughts/{id} [patch]
func (s *Server) UpdateThought(c *fiber.Ctx) error {
	var req thoughtRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	thought, err := s.thoughtService.UpdateThought(c.UserContext(), service.UpdateThoughtInput{
		ID:      c.Params("id"),
		Message: req.Message,
		Hearts:  req.Hearts,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(thought)
}

// DeleteThought handles DELETE /thoughts/:id
// @Summary Delete a thought
// @Tags thoughts
// @Produce json
// @Param id path string true "Thought ID"
// @Success 200 {object} models.Thought
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /thoughts/{id} [delete]
func (s *Server) DeleteThought(c *fiber.Ctx) error {
	thought, err := s.thoughtService.DeleteThought(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(thought)
}
