package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jihoon-dev/moneybook/internal/adapter/middleware"
	"github.com/jihoon-dev/moneybook/internal/adapter/storage"
	"github.com/jihoon-dev/moneybook/internal/core/domain"
)

type AccountHandler struct {
	Store storage.Store
}

// CreateAccountRequest intentionally has no balance field; new accounts
// always start at zero.
type CreateAccountRequest struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountType   string `json:"account_type"`
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if !domain.ValidAccountNumber(req.AccountNumber) {
		return fieldErrorResponse(c, "account_number", "account number must be 10 to 14 digits")
	}
	if !domain.ValidBankCode(req.BankCode) {
		return fieldErrorResponse(c, "bank_code", "unknown bank code")
	}
	accountType := domain.AccountType(req.AccountType)
	if accountType != domain.Checking && accountType != domain.Savings {
		return fieldErrorResponse(c, "account_type", "account type must be CHECKING or SAVINGS")
	}

	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	account, err := h.Store.CreateAccount(c.Context(), owner, domain.NormalizeAccountNumber(req.AccountNumber), req.BankCode, accountType)
	if err != nil {
		return mapDomainError(c, err)
	}

	slog.Info("account created", "account_id", account.ID, "bank", domain.BankName(account.BankCode))
	return c.Status(http.StatusCreated).JSON(account)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	accounts, err := h.Store.ListAccounts(c.Context(), owner)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(accounts)
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fieldErrorResponse(c, "id", "account id is not a valid UUID")
	}

	account, err := h.Store.GetAccount(c.Context(), id, owner)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(account)
}

func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	owner, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fieldErrorResponse(c, "id", "account id is not a valid UUID")
	}

	if err := h.Store.DeleteAccount(c.Context(), id, owner); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
