package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is one row of the append-only audit mirror. It duplicates
// the movement tuple of a ledger record at the moment it happened; entries
// are never updated, so a cancellation appends a second entry rather than
// rewriting the first.
type HistoryEntry struct {
	ID                   int64
	SourceAccountID      *int64
	DestinationAccountID *int64
	Amount               decimal.Decimal
	Fee                  decimal.Decimal
	Status               TransactionStatus
	RecordedAt           time.Time
}
