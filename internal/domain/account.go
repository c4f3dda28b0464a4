package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a balance-holding record uniquely tied to one phone number.
// The phone number is the natural business key: it is what senders use to
// address a transfer.
type Account struct {
	ID          int64
	OwnerID     int64
	Phone       string
	AccountType string // free-form label, e.g. "checking"
	Balance     decimal.Decimal
	Active      bool
	CreatedAt   time.Time // set once at creation, immutable
}

// Validate ensures the account adheres to domain rules.
// The non-negative balance invariant is checked here as a last line of
// defence; engines must verify funds before mutating.
func (a *Account) Validate() error {
	if a.Phone == "" {
		return errors.New("account phone number is required")
	}
	if a.Balance.IsNegative() {
		return errors.New("account balance must not be negative")
	}
	return nil
}
