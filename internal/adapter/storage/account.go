package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jihoon-dev/moneybook/internal/core/domain"
)

// PostgresStore implements Store on a pgx connection pool.
//
// WebhookURL, when set, makes every applied commit enqueue an outbox row in
// the same database transaction; the worker drains the outbox.
type PostgresStore struct {
	pool       *pgxpool.Pool
	WebhookURL string
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (email, nickname, name, phone_number, password_hash)
		VALUES (LOWER($1), $2, $3, $4, $5)
		RETURNING id, email, nickname, name, phone_number, password_hash, created_at, updated_at
	`
	var out domain.User
	err := s.pool.QueryRow(ctx, query, u.Email, u.Nickname, u.Name, u.PhoneNumber, u.PasswordHash).Scan(
		&out.ID, &out.Email, &out.Nickname, &out.Name, &out.PhoneNumber, &out.PasswordHash, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, nickname, name, phone_number, password_hash, created_at, updated_at
		FROM users WHERE email = LOWER($1)
	`
	var out domain.User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&out.ID, &out.Email, &out.Nickname, &out.Name, &out.PhoneNumber, &out.PasswordHash, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, nickname, name, phone_number, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`
	var out domain.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.Email, &out.Nickname, &out.Name, &out.PhoneNumber, &out.PasswordHash, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	query := `
		UPDATE users SET
			nickname = COALESCE($2, nickname),
			name = COALESCE($3, name),
			phone_number = COALESCE($4, phone_number),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, nickname, name, phone_number, password_hash, created_at, updated_at
	`
	var out domain.User
	err := s.pool.QueryRow(ctx, query, id, patch.Nickname, patch.Name, patch.PhoneNumber).Scan(
		&out.ID, &out.Email, &out.Nickname, &out.Name, &out.PhoneNumber, &out.PasswordHash, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	// Accounts reference users ON DELETE CASCADE, and ledger rows cascade
	// from accounts, so one statement clears the whole subtree.
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, owner uuid.UUID, number, bankCode string, accountType domain.AccountType) (*domain.Account, error) {
	// Balance is hardcoded to zero; a client-supplied balance never reaches
	// this statement.
	query := `
		INSERT INTO accounts (user_id, account_number, bank_code, account_type, balance)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id, user_id, account_number, bank_code, account_type, balance, created_at
	`
	var acc domain.Account
	var accountTypeRaw string
	err := s.pool.QueryRow(ctx, query, owner, number, bankCode, string(accountType)).Scan(
		&acc.ID, &acc.UserID, &acc.AccountNumber, &acc.BankCode, &accountTypeRaw, &acc.Balance, &acc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	acc.AccountType = domain.AccountType(accountTypeRaw)
	return &acc, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id, owner uuid.UUID) (*domain.Account, error) {
	// Filtering by owner in the WHERE clause makes a foreign account
	// indistinguishable from a missing one.
	query := `
		SELECT id, user_id, account_number, bank_code, account_type, balance, created_at
		FROM accounts WHERE id = $1 AND user_id = $2
	`
	var acc domain.Account
	var accountTypeRaw string
	err := s.pool.QueryRow(ctx, query, id, owner).Scan(
		&acc.ID, &acc.UserID, &acc.AccountNumber, &acc.BankCode, &accountTypeRaw, &acc.Balance, &acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	acc.AccountType = domain.AccountType(accountTypeRaw)
	return &acc, nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context, owner uuid.UUID) ([]domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, bank_code, account_type, balance, created_at
		FROM accounts WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Account, 0)
	for rows.Next() {
		var acc domain.Account
		var accountTypeRaw string
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.AccountNumber, &acc.BankCode, &accountTypeRaw, &acc.Balance, &acc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acc.AccountType = domain.AccountType(accountTypeRaw)
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, id, owner uuid.UUID) error {
	// ON DELETE CASCADE drops the account's ledger rows with it.
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
