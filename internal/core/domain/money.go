package domain

import (
	"github.com/shopspring/decimal"
)

// Money values are exact fixed-point decimals with 2 fractional digits.
// Nothing in the balance path touches a float.

// ParseAmount parses a client-supplied amount string into a scale-2 decimal.
// The amount must be a valid decimal, strictly positive, and representable
// exactly at two fractional digits. Trailing zeros past the second place are
// fine; "1.100" is "1.10", while "1.005" is rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, ErrAmountMissing
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrAmountMalformed
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, ErrAmountPrecision
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	return d.Round(2), nil
}

// Apply computes the balance that results from moving amount in the given
// direction against balance. A withdrawal larger than the balance is refused;
// draining the balance to exactly zero is allowed.
func Apply(balance decimal.Decimal, dir Direction, amount decimal.Decimal) (decimal.Decimal, error) {
	switch dir {
	case Deposit:
		return balance.Add(amount), nil
	case Withdraw:
		if amount.GreaterThan(balance) {
			return balance, ErrInsufficientFunds
		}
		return balance.Sub(amount), nil
	default:
		return balance, ErrBadDirection
	}
}
