package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a ledger record.
type TransactionStatus string

const (
	StatusSuccess   TransactionStatus = "SUCCESS"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is one immutable-except-status entry in the ledger.
// Party references are account ids, never live back-pointers; a nil source
// means a system deposit, a nil destination a system withdrawal.
type Transaction struct {
	ID                   int64
	SourceAccountID      *int64
	DestinationAccountID *int64
	Amount               decimal.Decimal
	Fee                  decimal.Decimal // zero for admin-originated adjustments
	Status               TransactionStatus
	Memo                 string
	CreatedAt            time.Time // set once at creation, immutable
}

// Validate ensures the transaction adheres to domain rules.
// Amount must be strictly positive, fee non-negative, and at least one
// party must be present.
func (t *Transaction) Validate() error {
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("transaction amount must be positive")
	}
	if t.Fee.IsNegative() {
		return errors.New("transaction fee must not be negative")
	}
	if t.SourceAccountID == nil && t.DestinationAccountID == nil {
		return errors.New("transaction must reference at least one account")
	}
	if t.SourceAccountID != nil && t.DestinationAccountID != nil &&
		*t.SourceAccountID == *t.DestinationAccountID {
		return errors.New("transaction source and destination must differ")
	}
	if t.Status != StatusSuccess && t.Status != StatusCancelled {
		return errors.New("transaction status must be SUCCESS or CANCELLED")
	}
	return nil
}

// IsDeposit reports whether the record is a system deposit (no source).
func (t *Transaction) IsDeposit() bool {
	return t.SourceAccountID == nil && t.DestinationAccountID != nil
}

// IsWithdrawal reports whether the record is a system withdrawal (no destination).
func (t *Transaction) IsWithdrawal() bool {
	return t.SourceAccountID != nil && t.DestinationAccountID == nil
}

// InvolvesAccount reports whether the given account is a party to the record.
func (t *Transaction) InvolvesAccount(accountID int64) bool {
	if t.SourceAccountID != nil && *t.SourceAccountID == accountID {
		return true
	}
	if t.DestinationAccountID != nil && *t.DestinationAccountID == accountID {
		return true
	}
	return false
}

// TotalDebited is the amount removed from the source: principal plus fee.
func (t *Transaction) TotalDebited() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}
