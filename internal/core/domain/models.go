package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a registered owner of accounts.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch is a partial update of a user profile. Email stays immutable
// because it is the login key; password changes go through a separate flow.
type UserPatch struct {
	Nickname    *string `json:"nickname"`
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

type AccountType string

const (
	Checking AccountType = "CHECKING"
	Savings  AccountType = "SAVINGS"
)

// Account holds one bank account and its current balance.
// Balance is mutated only through the ledger commit path, never by clients.
type Account struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	AccountNumber string          `json:"account_number"`
	BankCode      string          `json:"bank_code"`
	AccountType   AccountType     `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Direction says whether a transaction adds to or removes from the balance.
type Direction string

const (
	Deposit  Direction = "DEPOSIT"
	Withdraw Direction = "WITHDRAW"
)

// ValidDirection reports whether d is one of the two known directions.
func ValidDirection(d Direction) bool {
	return d == Deposit || d == Withdraw
}

// Category labels the origin of a transaction. Orthogonal to Direction.
type Category string

const (
	ATM               Category = "ATM"
	Transfer          Category = "TRANSFER"
	AutomaticTransfer Category = "AUTOMATIC_TRANSFER"
	Card              Category = "CARD"
	Interest          Category = "INTEREST"
)

// ValidCategory reports whether c is in the fixed category set.
func ValidCategory(c Category) bool {
	switch c {
	case ATM, Transfer, AutomaticTransfer, Card, Interest:
		return true
	}
	return false
}

// Transaction is one recorded money movement with a balance snapshot.
// BalanceAfter is captured at commit time and never recomputed afterwards.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Direction    Direction       `json:"direction"`
	Category     Category        `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TransactionPatch is a partial update of a posted transaction.
// Amount is deliberately absent: editing it would leave every later
// balance_after snapshot stale, so amount edits are rejected upstream.
type TransactionPatch struct {
	Category    *Category `json:"category"`
	Description *string   `json:"description"`
}
