package middleware

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// IdempotencyStore persists one cached response per caller and key. Keys are
// scoped to the caller so one user's replay can never surface another user's
// response.
type IdempotencyStore interface {
	LookupResponse(ctx context.Context, userID uuid.UUID, key string) (status int, body []byte, hit bool, err error)
	SaveResponse(ctx context.Context, userID uuid.UUID, key string, status int, body []byte) error
}

// Idempotency replays the stored response when a caller repeats an
// Idempotency-Key they have used before. Requests without the header pass
// through untouched. Must sit behind Protected; without a caller identity
// there is nothing safe to key on.
func Idempotency(store IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}
		caller, ok := CallerID(c)
		if !ok {
			return c.Next()
		}

		status, body, hit, err := store.LookupResponse(c.Context(), caller, key)
		if err != nil {
			slog.Error("idempotency lookup failed", "error", err, "key", key)
		} else if hit {
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(status).Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resStatus := c.Response().StatusCode()
		resBody := c.Response().Body()

		// Only successful outcomes are worth replaying; a rejected commit
		// may legitimately succeed on resubmission.
		if resStatus >= 200 && resStatus < 300 {
			if err := store.SaveResponse(c.Context(), caller, key, resStatus, resBody); err != nil {
				slog.Error("failed to save idempotency key", "error", err, "key", key)
			}
		}

		return nil
	}
}
