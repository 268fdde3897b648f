package server

import (
	"errors"
	"strconv"

	"happythoughts/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPaginationLimit = 20
	maxPaginationLimit     = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseMinHearts reads the optional minHearts filter. An absent parameter lists everything.
// On a bad value it writes a 400 response and returns errResponseWritten.
func parseMinHearts(c *fiber.Ctx) (*int, error) {
	raw := c.Query("minHearts")
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		_ = models.Respond(c, models.NewValidationError("minHearts must be a non-negative integer"))
		return nil, errResponseWritten
	}
	return &n, nil
}

// parseBody decodes a JSON body into dst whatever the Content-Type says, and
// treats an empty body as an empty object.
// On malformed JSON it writes a 400 response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := c.App().Config().JSONDecoder(body, dst); err != nil {
		_ = models.Respond(c, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}
