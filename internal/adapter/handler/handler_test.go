package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihoon-dev/moneybook/internal/adapter/cache"
	"github.com/jihoon-dev/moneybook/internal/adapter/handler"
	"github.com/jihoon-dev/moneybook/internal/adapter/middleware"
	"github.com/jihoon-dev/moneybook/internal/adapter/storage"
	"github.com/jihoon-dev/moneybook/internal/core/ledger"
	"github.com/jihoon-dev/moneybook/internal/core/security"
)

// newTestApp wires the API against the in-memory store, mirroring the route
// table in cmd/api.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store := storage.NewMemoryStore()
	tokens := security.NewTokenIssuer("test-secret")
	poster := ledger.NewPoster(store, nil)

	userHandler := &handler.UserHandler{Store: store, Tokens: tokens, Denylist: cache.NewMemoryDenylist()}
	accountHandler := &handler.AccountHandler{Store: store}
	transactionHandler := &handler.TransactionHandler{Store: store, Poster: poster}

	app := fiber.New()
	api := app.Group("/v1")
	api.Post("/users", userHandler.Register)
	api.Post("/users/login", userHandler.Login)
	api.Post("/users/logout", userHandler.Logout)
	api.Post("/users/refresh", userHandler.Refresh)

	private := api.Use(middleware.Protected(tokens))
	private.Get("/users/:id", userHandler.Profile)
	private.Patch("/users/:id", userHandler.UpdateProfile)
	private.Delete("/users/:id", userHandler.DeleteProfile)
	private.Get("/accounts", accountHandler.ListAccounts)
	private.Post("/accounts", accountHandler.CreateAccount)
	private.Get("/accounts/:id", accountHandler.GetAccount)
	private.Delete("/accounts/:id", accountHandler.DeleteAccount)
	private.Get("/transactions", transactionHandler.ListTransactions)
	private.Post("/transactions", middleware.Idempotency(store), transactionHandler.PostTransaction)
	private.Get("/transactions/:id", transactionHandler.GetTransaction)
	private.Put("/transactions/:id", transactionHandler.UpdateTransaction)
	private.Delete("/transactions/:id", transactionHandler.DeleteTransaction)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		// Arrays come back for list endpoints; wrap them for uniform access.
		if raw[0] == '[' {
			var list []any
			require.NoError(t, json.Unmarshal(raw, &list))
			decoded = map[string]any{"list": list}
		} else {
			require.NoError(t, json.Unmarshal(raw, &decoded))
		}
	}
	return resp, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, _ := doJSON(t, app, http.MethodPost, "/v1/users", "", map[string]string{
		"email": email, "password": "password123", "nickname": email, "name": "Tester", "phone_number": "01012345678",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["access"].(string)
	require.NotEmpty(t, token)
	return token
}

func createAccount(t *testing.T, app *fiber.App, token string) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/v1/accounts", token, map[string]string{
		"account_number": "1234567890", "bank_code": "004", "account_type": "CHECKING",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/v1/users", "", map[string]string{
		"email": "bad", "password": "password123", "nickname": "n", "name": "N", "phone_number": "010",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email", body["field"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app, "dup@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/v1/users", "", map[string]string{
		"email": "dup@example.com", "password": "password123", "nickname": "other", "name": "O", "phone_number": "01099999999",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginBadCredentials(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app, "user@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": "user@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown email must look the same as a wrong password.
	resp, _ = doJSON(t, app, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/v1/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/v1/transactions", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAccountLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "user@example.com")

	// Created with zero balance even though no balance was sent.
	id := createAccount(t, app, token)
	resp, body := doJSON(t, app, http.MethodGet, "/v1/accounts/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", body["balance"])

	resp, body = doJSON(t, app, http.MethodGet, "/v1/accounts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["list"], 1)

	resp, _ = doJSON(t, app, http.MethodDelete, "/v1/accounts/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/v1/accounts/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAccountRejectsBadFields(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "user@example.com")

	tests := []struct {
		field string
		body  map[string]string
	}{
		{"account_number", map[string]string{"account_number": "abc", "bank_code": "004", "account_type": "CHECKING"}},
		{"bank_code", map[string]string{"account_number": "1234567890", "bank_code": "999", "account_type": "CHECKING"}},
		{"account_type", map[string]string{"account_number": "1234567890", "bank_code": "004", "account_type": "OFFSHORE"}},
	}
	for _, tt := range tests {
		resp, body := doJSON(t, app, http.MethodPost, "/v1/accounts", token, tt.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, tt.field, body["field"])
	}
}

func TestTransactionFlow(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "user@example.com")
	accountID := createAccount(t, app, token)

	// Deposit.
	resp, body := doJSON(t, app, http.MethodPost, "/v1/transactions", token, map[string]string{
		"account": accountID, "direction": "DEPOSIT", "category": "ATM", "amount": "100000.00", "description": "opening",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "100000", body["balance_after"])

	// Withdraw beyond balance: rejected, nothing recorded.
	resp, body = doJSON(t, app, http.MethodPost, "/v1/transactions", token, map[string]string{
		"account": accountID, "direction": "WITHDRAW", "category": "CARD", "amount": "200000.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "insufficient funds", body["error"])

	// Malformed amount: field error.
	resp, body = doJSON(t, app, http.MethodPost, "/v1/transactions", token, map[string]string{
		"account": accountID, "direction": "WITHDRAW", "category": "CARD", "amount": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "amount", body["field"])

	// History holds exactly the one applied deposit.
	resp, body = doJSON(t, app, http.MethodGet, "/v1/transactions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["list"], 1)
}

func TestTransactionForeignAccountForbidden(t *testing.T) {
	app := newTestApp(t)
	ownerToken := registerAndLogin(t, app, "owner@example.com")
	accountID := createAccount(t, app, ownerToken)

	intruderToken := registerAndLogin(t, app, "intruder@example.com")

	// Write path: 403.
	resp, _ := doJSON(t, app, http.MethodPost, "/v1/transactions", intruderToken, map[string]string{
		"account": accountID, "direction": "DEPOSIT", "category": "ATM", "amount": "1.00",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Read path: 404, indistinguishable from absence.
	resp, _ = doJSON(t, app, http.MethodGet, "/v1/accounts/"+accountID, intruderToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransactionUpdateRules(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "user@example.com")
	accountID := createAccount(t, app, token)

	resp, body := doJSON(t, app, http.MethodPost, "/v1/transactions", token, map[string]string{
		"account": accountID, "direction": "DEPOSIT", "category": "ATM", "amount": "500.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	txID, _ := body["id"].(string)
	require.NotEmpty(t, txID)

	// The detail view shows the posted row to its owner only.
	resp, body = doJSON(t, app, http.MethodGet, "/v1/transactions/"+txID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "500", body["amount"])
	intruder := registerAndLogin(t, app, "intruder@example.com")
	resp, _ = doJSON(t, app, http.MethodGet, "/v1/transactions/"+txID, intruder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Category and description are editable.
	resp, body = doJSON(t, app, http.MethodPut, "/v1/transactions/"+txID, token, map[string]string{
		"category": "TRANSFER", "description": "corrected",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "TRANSFER", body["category"])
	assert.Equal(t, "corrected", body["description"])

	// Amount is not.
	resp, body = doJSON(t, app, http.MethodPut, "/v1/transactions/"+txID, token, map[string]string{
		"amount": "999.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "amount", body["field"])

	// Delete leaves the balance alone.
	resp, _ = doJSON(t, app, http.MethodDelete, "/v1/transactions/"+txID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, app, http.MethodGet, "/v1/accounts/"+accountID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "500", body["balance"])
}

func TestUserProfileOwnerOnly(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/v1/users", "", map[string]string{
		"email": "owner@example.com", "password": "password123", "nickname": "owner", "name": "Owner", "phone_number": "01011112222",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userID, _ := body["id"].(string)
	require.NotEmpty(t, userID)

	resp, body = doJSON(t, app, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": "owner@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["access"].(string)
	require.NotEmpty(t, token)

	// Owner reads their own profile; the password hash never serializes.
	resp, body = doJSON(t, app, http.MethodGet, "/v1/users/"+userID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "owner@example.com", body["email"])
	assert.NotContains(t, body, "password_hash")

	// A foreign profile reads as absent.
	intruder := registerAndLogin(t, app, "intruder@example.com")
	resp, _ = doJSON(t, app, http.MethodGet, "/v1/users/"+userID, intruder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Writes against it are refused outright.
	resp, _ = doJSON(t, app, http.MethodPatch, "/v1/users/"+userID, intruder, map[string]string{"nickname": "hax"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodDelete, "/v1/users/"+userID, intruder, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Owner edits nickname; email stays immutable.
	resp, body = doJSON(t, app, http.MethodPatch, "/v1/users/"+userID, token, map[string]string{"nickname": "renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "renamed", body["nickname"])
	resp, body = doJSON(t, app, http.MethodPatch, "/v1/users/"+userID, token, map[string]string{"email": "new@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email", body["field"])

	// Owner deletes themselves; their accounts go too.
	accountID := createAccount(t, app, token)
	resp, _ = doJSON(t, app, http.MethodDelete, "/v1/users/"+userID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/v1/users/"+userID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/v1/accounts/"+accountID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIdempotencyReplayScopedToCaller(t *testing.T) {
	app := newTestApp(t)
	tokenA := registerAndLogin(t, app, "alice@example.com")
	accountA := createAccount(t, app, tokenA)
	tokenB := registerAndLogin(t, app, "bob@example.com")
	accountB := createAccount(t, app, tokenB)

	post := func(token, account, key string) (*http.Response, map[string]any) {
		raw, err := json.Marshal(map[string]string{
			"account": account, "direction": "DEPOSIT", "category": "ATM", "amount": "100.00",
		})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", key)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp, body
	}

	resp, body := post(tokenA, accountA, "key-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	firstID, _ := body["id"].(string)
	require.NotEmpty(t, firstID)

	// Same caller, same key: the stored response comes back and nothing
	// posts twice.
	resp, body = post(tokenA, accountA, "key-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Idempotency-Hit"))
	assert.Equal(t, firstID, body["id"])
	resp, body = doJSON(t, app, http.MethodGet, "/v1/transactions", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["list"], 1)

	// A different caller reusing the key gets their own fresh commit, never
	// the first caller's cached response.
	resp, body = post(tokenB, accountB, "key-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Idempotency-Hit"))
	assert.NotEqual(t, firstID, body["id"])
	assert.Equal(t, accountB, body["account_id"])
}

func TestRefreshAndLogout(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/v1/users", "", map[string]string{
		"email": "user@example.com", "password": "password123", "nickname": "u", "name": "U", "phone_number": "01012345678",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": "user@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			refreshCookie = c
		}
	}
	require.NotNil(t, refreshCookie, "login must set the refresh cookie")

	// Refresh with the cookie works.
	req := httptest.NewRequest(http.MethodPost, "/v1/users/refresh", nil)
	req.AddCookie(refreshCookie)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// Logout revokes it.
	req = httptest.NewRequest(http.MethodPost, "/v1/users/logout", nil)
	req.AddCookie(refreshCookie)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusResetContent, res.StatusCode)

	// The revoked token no longer refreshes.
	req = httptest.NewRequest(http.MethodPost, "/v1/users/refresh", nil)
	req.AddCookie(refreshCookie)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestScenarioLedgerWalk(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "user@example.com")
	accountID := createAccount(t, app, token)

	post := func(direction, category, amount string) (*http.Response, map[string]any) {
		return doJSON(t, app, http.MethodPost, "/v1/transactions", token, map[string]string{
			"account": accountID, "direction": direction, "category": category, "amount": amount,
		})
	}

	resp, body := post("DEPOSIT", "ATM", "100000.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "100000", body["balance_after"])

	resp, body = post("DEPOSIT", "ATM", "10000.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "110000", body["balance_after"])

	resp, _ = post("WITHDRAW", "CARD", "200000.00")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = post("WITHDRAW", "TRANSFER", "60000.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "50000", body["balance_after"])

	resp, body = post("WITHDRAW", "ATM", "50000.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "0", body["balance_after"], "exact exhaustion is allowed")

	resp, body = doJSON(t, app, http.MethodGet, "/v1/transactions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list, _ := body["list"].([]any)
	require.Len(t, list, 4, "the rejected withdrawal left no ledger row")

	newest, _ := list[0].(map[string]any)
	assert.Equal(t, "0", fmt.Sprintf("%v", newest["balance_after"]))
}
