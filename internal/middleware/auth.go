package middleware

import (
	"context"
	"errors"
	"strings"

	"happythoughts/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenAuthenticator resolves an access token to the user that owns it.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
}

type identityKey struct{}

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errEmptyToken           = errors.New("empty token")
	errMalformedToken       = errors.New("invalid authorization header format")
)

// AuthRequired rejects requests without a valid access token. On success the
// identity is stored in c.Locals("userID"), c.Locals("userEmail") and the user context.
func AuthRequired(auth TokenAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extractToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			Logger.DebugContext(c.UserContext(), "rejected request", "reason", err.Error())
			return unauthorized(c)
		}

		identity, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if models.HasCode(err, models.CodeUnauthorized) {
				return unauthorized(c)
			}
			return models.Respond(c, err)
		}

		c.Locals("userID", identity.UserID)
		c.Locals("userEmail", identity.Email)

		ctx := context.WithValue(c.UserContext(), identityKey{}, *identity)
		c.SetUserContext(WithUserID(ctx, identity.UserID))

		return c.Next()
	}
}

// IdentityFromContext returns the identity AuthRequired attached to ctx.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(models.Identity)
	return identity, ok
}

// extractToken accepts "Bearer <token>" (any case) or a bare token.
func extractToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuthorization
	}

	token := header
	scheme, rest, _ := strings.Cut(header, " ")
	if strings.EqualFold(scheme, "bearer") {
		token = strings.TrimSpace(rest)
	}
	if token == "" {
		return "", errEmptyToken
	}
	if strings.ContainsAny(token, " \t") {
		return "", errMalformedToken
	}
	return token, nil
}

func unauthorized(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Unauthorized"))
}
