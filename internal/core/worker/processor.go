package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jihoon-dev/moneybook/internal/core/notifications"
)

const maxAttempts = 5

// StartWebhookWorker drains the webhook_jobs outbox in the background until
// ctx is cancelled. Jobs land in the outbox inside the same database
// transaction as the ledger commit, so delivery is at-least-once for every
// applied transaction.
func StartWebhookWorker(ctx context.Context, db *pgxpool.Pool, secret string) {
	go func() {
		slog.Info("webhook worker started")
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("webhook worker stopped")
				return
			case <-ticker.C:
				processJobs(ctx, db, secret)
			}
		}
	}()
}

func processJobs(ctx context.Context, db *pgxpool.Pool, secret string) {
	// The row lock is held for the whole delivery attempt; SKIP LOCKED lets
	// several worker instances share the outbox without double-sending.
	tx, err := db.Begin(ctx)
	if err != nil {
		return
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, url, payload, attempts
		FROM webhook_jobs
		WHERE status = 'PENDING' AND next_run_at <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var id string
	var url string
	var payloadBytes []byte
	var attempts int

	if err := tx.QueryRow(ctx, query).Scan(&id, &url, &payloadBytes, &attempts); err != nil {
		return
	}

	var payload any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		slog.Error("worker: unreadable payload", "error", err, "job_id", id)
		tx.Exec(ctx, "UPDATE webhook_jobs SET status = 'FAILED' WHERE id = $1", id)
		tx.Commit(ctx)
		return
	}

	if sendErr := notifications.SendWebhook(url, payload, secret); sendErr != nil {
		slog.Error("worker: webhook delivery failed", "error", sendErr, "attempts", attempts, "job_id", id)
		if attempts+1 >= maxAttempts {
			tx.Exec(ctx, "UPDATE webhook_jobs SET status = 'FAILED' WHERE id = $1", id)
		} else {
			nextRun := time.Now().Add(time.Duration(attempts*10+10) * time.Second)
			tx.Exec(ctx, "UPDATE webhook_jobs SET attempts = attempts + 1, next_run_at = $2 WHERE id = $1", id, nextRun)
		}
		tx.Commit(ctx)
		return
	}

	tx.Exec(ctx, "UPDATE webhook_jobs SET status = 'COMPLETED' WHERE id = $1", id)
	tx.Commit(ctx)
	slog.Info("worker: webhook delivered", "job_id", id)
}
