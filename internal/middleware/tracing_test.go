package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"happythoughts/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestTracingMiddleware(t *testing.T) {
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "happythoughts-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 1.0,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	var localTraceID string
	var spanValid bool
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/thoughts/:id", func(c *fiber.Ctx) error {
		localTraceID, _ = c.Locals("traceID").(string)
		spanValid = trace.SpanContextFromContext(c.UserContext()).IsValid()
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/thoughts/abc", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, spanValid)
	assert.Len(t, localTraceID, 32)
	assert.Equal(t, localTraceID, resp.Header.Get("X-Trace-ID"))
}
