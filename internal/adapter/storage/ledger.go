package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jihoon-dev/moneybook/internal/core/domain"
)

// CommitTransaction applies a money movement and appends the ledger row as a
// single database transaction.
//
// The account row is locked with FOR UPDATE for the duration of the commit,
// so two concurrent commits against the same account serialize: the second
// one re-reads the balance the first one left behind. Any rejection rolls
// the whole unit back.
func (s *PostgresStore) CommitTransaction(ctx context.Context, accountID, owner uuid.UUID, dir domain.Direction, cat domain.Category, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		accountID, owner,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Absent or foreign account: the write path reports this as a
		// permission failure, unlike the read path.
		return nil, domain.ErrAccountDenied
	}
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}

	newBalance, err := domain.Apply(balance, dir, amount)
	if err != nil {
		// Rollback via defer; the account and ledger stay untouched.
		return nil, err
	}

	var out domain.Transaction
	var dirRaw, catRaw string
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (account_id, direction, category, amount, balance_after, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, account_id, direction, category, amount, balance_after, description, created_at, updated_at
	`, accountID, string(dir), string(cat), amount, newBalance, description).Scan(
		&out.ID, &out.AccountID, &dirRaw, &catRaw, &out.Amount, &out.BalanceAfter, &out.Description, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger row: %w", err)
	}
	out.Direction = domain.Direction(dirRaw)
	out.Category = domain.Category(catRaw)

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, accountID,
	); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if s.WebhookURL != "" {
		if err := s.enqueueWebhook(ctx, tx, &out); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &out, nil
}

// enqueueWebhook writes the notification job inside the commit transaction,
// so a job exists exactly when the ledger row does.
func (s *PostgresStore) enqueueWebhook(ctx context.Context, tx pgx.Tx, posted *domain.Transaction) error {
	payload, err := json.Marshal(map[string]any{
		"event":         "transaction.posted",
		"id":            posted.ID,
		"account_id":    posted.AccountID,
		"direction":     posted.Direction,
		"category":      posted.Category,
		"amount":        posted.Amount,
		"balance_after": posted.BalanceAfter,
		"created_at":    posted.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO webhook_jobs (url, payload) VALUES ($1, $2)`,
		s.WebhookURL, payload,
	); err != nil {
		return fmt.Errorf("enqueue webhook: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, owner uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.direction, t.category, t.amount, t.balance_after, t.description, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC
	`
	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id, owner uuid.UUID) (*domain.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT t.id, t.account_id, t.direction, t.category, t.amount, t.balance_after, t.description, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND a.user_id = $2
	`, id, owner)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return tx, err
}

// UpdateTransaction patches category and description only. Balances are not
// recomputed here: the ledger row is history, the account balance stays
// authoritative.
func (s *PostgresStore) UpdateTransaction(ctx context.Context, id, owner uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	var category *string
	if patch.Category != nil {
		c := string(*patch.Category)
		category = &c
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE transactions t SET
			category = COALESCE($3, t.category),
			description = COALESCE($4, t.description),
			updated_at = NOW()
		FROM accounts a
		WHERE t.id = $1 AND t.account_id = a.id AND a.user_id = $2
		RETURNING t.id, t.account_id, t.direction, t.category, t.amount, t.balance_after, t.description, t.created_at, t.updated_at
	`, id, owner, category, patch.Description)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return tx, err
}

// DeleteTransaction removes the ledger row without reversing its balance
// effect, matching the posting model where balance is only ever changed by
// commits.
func (s *PostgresStore) DeleteTransaction(ctx context.Context, id, owner uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM transactions t
		USING accounts a
		WHERE t.id = $1 AND t.account_id = a.id AND a.user_id = $2
	`, id, owner)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var out domain.Transaction
	var dirRaw, catRaw string
	err := row.Scan(
		&out.ID, &out.AccountID, &dirRaw, &catRaw, &out.Amount, &out.BalanceAfter, &out.Description, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	out.Direction = domain.Direction(dirRaw)
	out.Category = domain.Category(catRaw)
	return &out, nil
}
