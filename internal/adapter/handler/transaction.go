package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jihoon-dev/moneybook/internal/adapter/middleware"
	"github.com/jihoon-dev/moneybook/internal/adapter/storage"
	"github.com/jihoon-dev/moneybook/internal/core/domain"
	"github.com/jihoon-dev/moneybook/internal/core/ledger"
)

type TransactionHandler struct {
	Store  storage.Store
	Poster *ledger.Poster
}

// PostTransactionRequest mirrors the posting API: amount arrives as a string
// so the poster can reject malformed values with a field error.
type PostTransactionRequest struct {
	AccountID   string `json:"account"`
	Direction   string `json:"direction"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (h *TransactionHandler) PostTransaction(c *fiber.Ctx) error {
	var req PostTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	posted, err := h.Poster.Post(c.Context(), ledger.PostRequest{
		AccountID:   req.AccountID,
		Owner:       owner,
		Direction:   domain.Direction(req.Direction),
		Category:    domain.Category(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(posted)
}

// ListTransactions returns the caller's full history across all accounts,
// newest first.
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	history, err := h.Store.ListTransactions(c.Context(), owner)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(history)
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fieldErrorResponse(c, "id", "transaction id is not a valid UUID")
	}

	tx, err := h.Store.GetTransaction(c.Context(), id, owner)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(tx)
}

// UpdateTransactionRequest allows category and description edits only.
// Amount edits are rejected: the recorded balance_after snapshots would
// silently go stale.
type UpdateTransactionRequest struct {
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
}

func (h *TransactionHandler) UpdateTransaction(c *fiber.Ctx) error {
	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fieldErrorResponse(c, "id", "transaction id is not a valid UUID")
	}

	var req UpdateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Amount != nil {
		return fieldErrorResponse(c, "amount", "amount of a posted transaction cannot be changed")
	}

	patch := domain.TransactionPatch{Description: req.Description}
	if req.Category != nil {
		cat := domain.Category(*req.Category)
		if !domain.ValidCategory(cat) {
			return fieldErrorResponse(c, "category", domain.ErrBadCategory.Error())
		}
		patch.Category = &cat
	}

	updated, err := h.Store.UpdateTransaction(c.Context(), id, owner, patch)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(updated)
}

func (h *TransactionHandler) DeleteTransaction(c *fiber.Ctx) error {
	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fieldErrorResponse(c, "id", "transaction id is not a valid UUID")
	}

	if err := h.Store.DeleteTransaction(c.Context(), id, owner); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "transaction deleted"})
}
