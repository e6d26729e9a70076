package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jihoon-dev/moneybook/internal/core/domain"
)

// Store is the durable home of users, accounts and ledger rows.
//
// CommitTransaction is the one compound operation: it must apply the balance
// change and append the ledger row as a single unit, serialized per account.
// Everything else is plain CRUD filtered by owner.
type Store interface {
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	// DeleteUser removes the user and cascades to their accounts and
	// ledger rows.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateAccount(ctx context.Context, owner uuid.UUID, number, bankCode string, accountType domain.AccountType) (*domain.Account, error)
	GetAccount(ctx context.Context, id, owner uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, owner uuid.UUID) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id, owner uuid.UUID) error

	// CommitTransaction re-reads the balance under a per-account lock,
	// applies direction/amount, and persists the ledger row together with
	// the updated balance. On any rejection no state changes.
	CommitTransaction(ctx context.Context, accountID, owner uuid.UUID, dir domain.Direction, cat domain.Category, amount decimal.Decimal, description string) (*domain.Transaction, error)

	ListTransactions(ctx context.Context, owner uuid.UUID) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id, owner uuid.UUID) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id, owner uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id, owner uuid.UUID) error
}
