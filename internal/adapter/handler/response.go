package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jihoon-dev/moneybook/internal/core/domain"
)

// mapDomainError translates the business error taxonomy onto HTTP status
// codes. Anything unrecognized is an infrastructure failure and comes back
// as a plain 500 without leaking the cause.
func mapDomainError(c *fiber.Ctx, err error) error {
	if fe, ok := domain.IsFieldError(err); ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fe.Reason,
			"field": fe.Field,
		})
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, domain.ErrAccountDenied):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "invalid account id or no access"})
	case errors.Is(err, domain.ErrInsufficientFunds):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "insufficient funds"})
	case errors.Is(err, domain.ErrEmailTaken):
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
	default:
		slog.Error("unhandled storage error", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func fieldErrorResponse(c *fiber.Ctx, field, reason string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": reason, "field": field})
}
