// Package ledger holds the transaction-posting core: it turns a raw posting
// request into either a committed ledger entry or a typed rejection, without
// ever leaving a half-applied state behind.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jihoon-dev/moneybook/internal/core/domain"
)

// PostRequest carries the parsed fields of one posting attempt. Amount stays
// a string until validation so a malformed value is a field error, not a
// decode failure upstream.
type PostRequest struct {
	AccountID   string
	Owner       uuid.UUID
	Direction   domain.Direction
	Category    domain.Category
	Amount      string
	Description string
}

// Committer is the slice of the store the poster needs.
type Committer interface {
	CommitTransaction(ctx context.Context, accountID, owner uuid.UUID, dir domain.Direction, cat domain.Category, amount decimal.Decimal, description string) (*domain.Transaction, error)
}

// Poster validates and applies money movements. It holds no state of its own;
// every attempt runs the same pipeline: validate, authorize, commit.
type Poster struct {
	store Committer
	log   *slog.Logger
}

func NewPoster(store Committer, log *slog.Logger) *Poster {
	if log == nil {
		log = slog.Default()
	}
	return &Poster{store: store, log: log}
}

// Post runs one commit attempt.
//
// Validation failures come back as *domain.FieldError with nothing mutated.
// An account that is absent or owned by someone else is domain.ErrAccountDenied.
// A withdrawal past the balance is domain.ErrInsufficientFunds, again with
// nothing mutated. Anything else is an infrastructure failure from the store.
// There are no retries here; resubmitting is the caller's decision.
func (p *Poster) Post(ctx context.Context, req PostRequest) (*domain.Transaction, error) {
	accountID, amount, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	// Authorization and the atomic unit of work both live behind
	// CommitTransaction: the account is resolved by (id, owner) under the
	// same lock that guards the balance, so no check can go stale between
	// authorize and apply.
	posted, err := p.store.CommitTransaction(ctx, accountID, req.Owner, req.Direction, req.Category, amount, req.Description)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrAccountDenied) {
			return nil, err
		}
		p.log.Error("ledger commit failed", "account_id", accountID, "error", err)
		return nil, err
	}

	p.log.Info("transaction posted",
		"transaction_id", posted.ID,
		"account_id", posted.AccountID,
		"direction", posted.Direction,
		"amount", posted.Amount.StringFixed(2),
		"balance_after", posted.BalanceAfter.StringFixed(2),
	)
	return posted, nil
}

// validate runs the ordered field checks. The first failure wins and names
// the offending field.
func (p *Poster) validate(req PostRequest) (uuid.UUID, decimal.Decimal, error) {
	if req.AccountID == "" {
		return uuid.Nil, decimal.Zero, domain.NewFieldError("account_id", "account id is required")
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return uuid.Nil, decimal.Zero, domain.NewFieldError("account_id", "account id is not a valid UUID")
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return uuid.Nil, decimal.Zero, domain.NewFieldError("amount", err.Error())
	}

	if !domain.ValidDirection(req.Direction) {
		return uuid.Nil, decimal.Zero, domain.NewFieldError("direction", domain.ErrBadDirection.Error())
	}
	if !domain.ValidCategory(req.Category) {
		return uuid.Nil, decimal.Zero, domain.NewFieldError("category", domain.ErrBadCategory.Error())
	}
	return accountID, amount, nil
}
