package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"happythoughts/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type authenticatorStub struct {
	calls int
	err   error
}

func (a *authenticatorStub) Authenticate(_ context.Context, token string) (*models.Identity, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if token != validToken {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}
	return &models.Identity{UserID: "user-1", Email: "ada@example.com"}, nil
}

func TestAuthRequired(t *testing.T) {
	auth := &authenticatorStub{}
	handlerCalls := 0

	app := fiber.New()
	app.Get("/secrets", AuthRequired(auth), func(c *fiber.Ctx) error {
		handlerCalls++
		identity, ok := IdentityFromContext(c.UserContext())
		require.True(t, ok)
		return c.JSON(fiber.Map{
			"userID":    c.Locals("userID"),
			"userEmail": c.Locals("userEmail"),
			"ctxEmail":  identity.Email,
		})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Bearer token", "Bearer " + validToken, http.StatusOK},
		{"Lowercase scheme", "bearer " + validToken, http.StatusOK},
		{"Raw token", validToken, http.StatusOK},
		{"Missing header", "", http.StatusUnauthorized},
		{"Empty bearer", "Bearer   ", http.StatusUnauthorized},
		{"Unknown token", "Bearer deadbeef", http.StatusUnauthorized},
		{"Other scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := handlerCalls

			req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, before+1, handlerCalls)
				assert.Equal(t, "user-1", body["userID"])
				assert.Equal(t, "ada@example.com", body["userEmail"])
				assert.Equal(t, "ada@example.com", body["ctxEmail"])
				return
			}
			assert.Equal(t, before, handlerCalls, "guarded handler must not run")
			assert.Equal(t, "Unauthorized", body["error"])
			assert.Equal(t, models.CodeUnauthorized, body["code"])
		})
	}
}

func TestAuthRequired_StoreUnavailable(t *testing.T) {
	auth := &authenticatorStub{err: models.NewUnavailableError(assert.AnError)}
	app := fiber.New()
	app.Get("/secrets", AuthRequired(auth), func(c *fiber.Ctx) error {
		t.Error("guarded handler must not run")
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthRequired_NoLookupWithoutToken(t *testing.T) {
	auth := &authenticatorStub{}
	app := fiber.New()
	app.Get("/secrets", AuthRequired(auth), func(c *fiber.Ctx) error { return nil })

	for _, header := range []string{"", "Bearer ", "bearer", "Bearer  "} {
		req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, header)
	}
	assert.Equal(t, 0, auth.calls)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header   string
		expected string
		wantErr  error
	}{
		{"Bearer abc", "abc", nil},
		{"BEARER abc", "abc", nil},
		{"  abc  ", "abc", nil},
		{"", "", errMissingAuthorization},
		{"Bearer ", "", errEmptyToken},
		{"bearer", "", errEmptyToken},
		{"Bearer \t ", "", errEmptyToken},
		{"Bearer   abc", "abc", nil},
		{"Bearer a b", "", errMalformedToken},
		{"Token abc", "", errMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := extractToken(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
