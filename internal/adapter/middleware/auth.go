package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jihoon-dev/moneybook/internal/core/security"
)

// UserIDKey is where Protected stores the authenticated user's id in the
// request locals.
const UserIDKey = "user_id"

// Protected rejects requests without a valid Bearer access token and stashes
// the caller's user id for the handlers.
func Protected(tokens *security.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing access token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization header"})
		}

		claims, err := tokens.VerifyAccess(parts[1])
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid access token"})
		}

		c.Locals(UserIDKey, claims.UserID)
		return c.Next()
	}
}

// CallerID returns the authenticated user id set by Protected.
func CallerID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(UserIDKey).(uuid.UUID)
	return id, ok
}
