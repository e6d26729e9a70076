package domain

import (
	"errors"
	"fmt"
)

// Business errors. The handler layer maps these onto HTTP status codes;
// anything not in this list is treated as an infrastructure failure.
var (
	// ErrNotFound covers both a genuinely absent entity and an ownership
	// mismatch on the read/update/delete paths. The two cases are kept
	// indistinguishable so existence of other users' data never leaks.
	ErrNotFound = errors.New("not found")

	// ErrAccountDenied is the write-path counterpart: posting against an
	// account that is absent or belongs to someone else is reported as a
	// permission failure, not a lookup failure.
	ErrAccountDenied = errors.New("account does not belong to caller")

	// ErrInsufficientFunds rejects a withdrawal that would drive the
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrEmailTaken rejects registration with an already-used email.
	ErrEmailTaken = errors.New("email already registered")

	ErrAmountMissing     = errors.New("amount is required")
	ErrAmountMalformed   = errors.New("amount is not a valid decimal")
	ErrAmountPrecision   = errors.New("amount has more than two decimal places")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrBadDirection      = errors.New("direction must be DEPOSIT or WITHDRAW")
	ErrBadCategory       = errors.New("unknown transaction category")
)

// FieldError is a validation failure tied to one request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewFieldError builds a FieldError for the given field.
func NewFieldError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

// IsFieldError reports whether err is (or wraps) a FieldError and returns it.
func IsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
