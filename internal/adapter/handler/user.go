package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jihoon-dev/moneybook/internal/adapter/cache"
	"github.com/jihoon-dev/moneybook/internal/adapter/middleware"
	"github.com/jihoon-dev/moneybook/internal/adapter/storage"
	"github.com/jihoon-dev/moneybook/internal/core/domain"
	"github.com/jihoon-dev/moneybook/internal/core/security"
)

const refreshCookie = "refresh_token"

type UserHandler struct {
	Store    storage.Store
	Tokens   *security.TokenIssuer
	Denylist cache.Denylist
	// SecureCookies marks the refresh cookie Secure; off for local dev.
	SecureCookies bool
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Nickname    string `json:"nickname"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return fieldErrorResponse(c, "email", "a valid email is required")
	case len(req.Password) < 8:
		return fieldErrorResponse(c, "password", "password must be at least 8 characters")
	case req.Nickname == "":
		return fieldErrorResponse(c, "nickname", "nickname is required")
	case req.Name == "":
		return fieldErrorResponse(c, "name", "name is required")
	case req.PhoneNumber == "":
		return fieldErrorResponse(c, "phone_number", "phone number is required")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not register user"})
	}

	user, err := h.Store.CreateUser(c.Context(), domain.User{
		Email:        req.Email,
		Nickname:     req.Nickname,
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
	})
	if err != nil {
		return mapDomainError(c, err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return c.Status(http.StatusCreated).JSON(user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := h.Store.GetUserByEmail(c.Context(), req.Email)
	if err != nil || !security.CheckPasswordHash(req.Password, user.PasswordHash) {
		// One message for both cases so login can't probe registered emails.
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	access, err := h.Tokens.IssueAccess(user.ID)
	if err != nil {
		slog.Error("access token issue failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not log in"})
	}
	refresh, err := h.Tokens.IssueRefresh(user.ID)
	if err != nil {
		slog.Error("refresh token issue failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not log in"})
	}

	h.setRefreshCookie(c, refresh)
	return c.JSON(fiber.Map{"access": access, "user": user})
}

// Refresh rotates the access token off a valid, non-revoked refresh cookie.
func (h *UserHandler) Refresh(c *fiber.Ctx) error {
	raw := c.Cookies(refreshCookie)
	if raw == "" {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing refresh token"})
	}

	claims, err := h.Tokens.VerifyRefresh(raw)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid refresh token"})
	}

	revoked, err := h.Denylist.IsRevoked(c.Context(), claims.ID)
	if err != nil {
		slog.Error("denylist lookup failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not refresh"})
	}
	if revoked {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "refresh token revoked"})
	}

	access, err := h.Tokens.IssueAccess(claims.UserID)
	if err != nil {
		slog.Error("access token issue failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not refresh"})
	}
	return c.JSON(fiber.Map{"access": access})
}

// Logout revokes the refresh token for its remaining lifetime and clears the
// cookie.
func (h *UserHandler) Logout(c *fiber.Ctx) error {
	raw := c.Cookies(refreshCookie)
	if raw != "" {
		if claims, err := h.Tokens.VerifyRefresh(raw); err == nil {
			ttl := time.Until(claims.ExpiresAt.Time)
			if err := h.Denylist.Revoke(c.Context(), claims.ID, ttl); err != nil {
				slog.Error("token revocation failed", "error", err)
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not log out"})
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.SecureCookies,
		SameSite: "Lax",
	})
	return c.Status(http.StatusResetContent).JSON(fiber.Map{"message": "logged out"})
}

// profileTarget parses the :id parameter and checks it against the caller.
// A foreign id on the read path reads as absence; writes get an explicit 403.
func profileTarget(c *fiber.Ctx, write bool) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fieldErrorResponse(c, "id", "user id is not a valid UUID")
	}
	caller, ok := middleware.CallerID(c)
	if !ok {
		return uuid.Nil, c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}
	if id != caller {
		if write {
			return uuid.Nil, c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "no permission to modify this profile"})
		}
		return uuid.Nil, c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	return id, nil
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	id, err := profileTarget(c, false)
	if id == uuid.Nil {
		return err
	}

	user, err := h.Store.GetUserByID(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(user)
}

type UpdateProfileRequest struct {
	Nickname    *string `json:"nickname"`
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email"`
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := profileTarget(c, true)
	if id == uuid.Nil {
		return err
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Email != nil {
		return fieldErrorResponse(c, "email", "email cannot be changed")
	}
	if req.Nickname != nil && *req.Nickname == "" {
		return fieldErrorResponse(c, "nickname", "nickname cannot be empty")
	}
	if req.Name != nil && *req.Name == "" {
		return fieldErrorResponse(c, "name", "name cannot be empty")
	}
	if req.PhoneNumber != nil && *req.PhoneNumber == "" {
		return fieldErrorResponse(c, "phone_number", "phone number cannot be empty")
	}

	user, err := h.Store.UpdateUser(c.Context(), id, domain.UserPatch{
		Nickname:    req.Nickname,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(user)
}

// DeleteProfile removes the caller's own user record; their accounts and
// ledger rows go with it.
func (h *UserHandler) DeleteProfile(c *fiber.Ctx) error {
	id, err := profileTarget(c, true)
	if id == uuid.Nil {
		return err
	}

	if err := h.Store.DeleteUser(c.Context(), id); err != nil {
		return mapDomainError(c, err)
	}
	slog.Info("user deleted", "user_id", id)
	return c.SendStatus(http.StatusNoContent)
}

func (h *UserHandler) setRefreshCookie(c *fiber.Ctx, refresh string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    refresh,
		MaxAge:   int(security.RefreshTokenTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.SecureCookies,
		SameSite: "Lax",
	})
}
