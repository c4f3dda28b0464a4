package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetByPhone retrieves an account by its unique phone number
	GetByPhone(ctx context.Context, phone string) (*Account, error)

	// GetForUpdate retrieves an account and, inside an atomic unit, holds a
	// write lock on it until the unit completes. Callers that lock more than
	// one account must acquire locks in ascending id order.
	GetForUpdate(ctx context.Context, id int64) (*Account, error)

	// Save upserts the full account row. A zero ID means insert; the
	// repository assigns the ID and creation timestamp. Save does not check
	// the non-negative balance invariant — that is the caller's job, done
	// before mutation.
	Save(ctx context.Context, account *Account) error

	// ListByOwner retrieves the accounts belonging to a user
	ListByOwner(ctx context.Context, ownerID int64) ([]*Account, error)

	// List retrieves a paginated list of all accounts
	List(ctx context.Context, limit, offset int) ([]*Account, error)
}

// Direction restricts a transaction query relative to an account.
type Direction string

const (
	DirectionAny      Direction = ""
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// TransactionFilter narrows a ledger query. A nil field means "any".
type TransactionFilter struct {
	AccountID *int64    // matches source or destination, subject to Direction
	Direction Direction // only meaningful when AccountID is set
	Status    TransactionStatus
	From      *time.Time
	To        *time.Time
}

// TransactionRepository defines the interface for ledger persistence
// operations. Records are immutable except for status; there is no delete.
type TransactionRepository interface {
	// Create appends a new record, assigning a strictly increasing ID.
	// A zero CreatedAt is set to the current time; an empty status defaults
	// to SUCCESS.
	Create(ctx context.Context, tx *Transaction) (*Transaction, error)

	// GetByID retrieves a record by its ID
	GetByID(ctx context.Context, id int64) (*Transaction, error)

	// Find retrieves records matching the filter, newest first.
	// A non-positive limit means no limit.
	Find(ctx context.Context, filter TransactionFilter, limit, offset int) ([]*Transaction, error)

	// Count returns the number of records matching the filter
	Count(ctx context.Context, filter TransactionFilter) (int, error)

	// UpdateStatus transitions the status of an existing record
	UpdateStatus(ctx context.Context, id int64, status TransactionStatus) error
}

// ReceiptRepository defines the interface for receipt persistence operations
type ReceiptRepository interface {
	// Create persists a new receipt. It fails with ErrReceiptExists when the
	// transaction already has one — the at-most-one guarantee lives here,
	// not in application locks.
	Create(ctx context.Context, receipt *Receipt) (*Receipt, error)

	// GetByTransactionID retrieves the receipt for a transaction
	GetByTransactionID(ctx context.Context, transactionID int64) (*Receipt, error)

	// GetByNumero retrieves a receipt by its unique numero
	GetByNumero(ctx context.Context, numero string) (*Receipt, error)

	// ExistsByNumero reports whether a numero is already taken
	ExistsByNumero(ctx context.Context, numero string) (bool, error)
}

// HistoryRepository defines the interface for the append-only audit mirror
type HistoryRepository interface {
	// Append records a new entry; entries are never updated or deleted
	Append(ctx context.Context, entry *HistoryEntry) error

	// ListByAccount retrieves entries involving the account, newest first
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*HistoryEntry, error)

	// ListRecent retrieves the most recent entries across all accounts
	ListRecent(ctx context.Context, limit int) ([]*HistoryEntry, error)
}

// PlatformTotals aggregates platform-wide figures for the admin dashboard.
type PlatformTotals struct {
	Accounts       int
	ActiveAccounts int
	Transactions   int
	TotalBalance   decimal.Decimal
	TotalFees      decimal.Decimal
}

// StatsRepository provides aggregate queries over the whole store.
type StatsRepository interface {
	PlatformTotals(ctx context.Context) (*PlatformTotals, error)
}

// Repositories bundles the repositories that share one persistence backend.
// Inside Store.Atomic all of them operate on the same transactional unit.
type Repositories struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
	Receipts     ReceiptRepository
	History      HistoryRepository
	Stats        StatsRepository
}

// Store is the persistence entry point. Atomic runs fn against a
// transactional view of the repositories: every write inside fn commits as
// one unit or not at all. Returning an error from fn rolls everything back.
type Store interface {
	Repositories() Repositories
	Atomic(ctx context.Context, fn func(Repositories) error) error
}
