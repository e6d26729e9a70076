package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LookupResponse fetches the cached response for this caller and key, if any.
func (s *PostgresStore) LookupResponse(ctx context.Context, userID uuid.UUID, key string) (int, []byte, bool, error) {
	var status int
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT response_status, response_body FROM idempotency_keys WHERE user_id = $1 AND key_id = $2`,
		userID, key).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("lookup idempotency key: %w", err)
	}
	return status, body, true, nil
}

// SaveResponse stores the response under (caller, key). A concurrent
// duplicate loses the insert race and keeps the first response.
func (s *PostgresStore) SaveResponse(ctx context.Context, userID uuid.UUID, key string, status int, body []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (user_id, key_id, response_status, response_body)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		userID, key, status, body)
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}
