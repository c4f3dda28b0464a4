// Package history exposes the party-scoped read side of the ledger:
// listings, single-record lookups with permission checks, and per-user
// totals.
package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

// Service answers ledger queries on behalf of an authenticated caller.
type Service struct {
	store domain.Store
}

// NewService creates a new history Service instance.
func NewService(store domain.Store) *Service {
	return &Service{store: store}
}

// ListParams narrows a caller-scoped listing.
type ListParams struct {
	Direction domain.Direction
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Totals summarizes a caller's ledger activity.
type Totals struct {
	Sent     decimal.Decimal
	Received decimal.Decimal
	Fees     decimal.Decimal
	Count    int
}

// CallerAccount resolves the zero-or-one account registered under the
// caller's phone number.
func (s *Service) CallerAccount(ctx context.Context, phone string) (*domain.Account, error) {
	return s.store.Repositories().Accounts.GetByPhone(ctx, phone)
}

// List returns the caller's transactions, newest first, with the total
// match count for pagination.
func (s *Service) List(ctx context.Context, caller domain.Identity, params ListParams) ([]*domain.Transaction, int, error) {
	account, err := s.CallerAccount(ctx, caller.Phone)
	if err != nil {
		return nil, 0, err
	}
	filter := domain.TransactionFilter{
		AccountID: &account.ID,
		Direction: params.Direction,
		From:      params.From,
		To:        params.To,
	}
	repos := s.store.Repositories()
	items, err := repos.Transactions.Find(ctx, filter, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := repos.Transactions.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns one transaction, enforcing that a non-admin caller is a
// party to it.
func (s *Service) Get(ctx context.Context, id int64, caller domain.Identity) (*domain.Transaction, error) {
	tx, err := s.store.Repositories().Transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		return tx, nil
	}
	account, err := s.CallerAccount(ctx, caller.Phone)
	if err != nil {
		return nil, err
	}
	if !tx.InvolvesAccount(account.ID) {
		return nil, domain.ErrForbidden
	}
	return tx, nil
}

// TotalsFor aggregates the caller's sent/received amounts and paid fees
// over successful transactions.
func (s *Service) TotalsFor(ctx context.Context, caller domain.Identity) (*Totals, error) {
	account, err := s.CallerAccount(ctx, caller.Phone)
	if err != nil {
		return nil, err
	}
	all, err := s.store.Repositories().Transactions.Find(ctx, domain.TransactionFilter{
		AccountID: &account.ID,
		Status:    domain.StatusSuccess,
	}, 0, 0)
	if err != nil {
		return nil, err
	}
	totals := &Totals{Count: len(all)}
	for _, tx := range all {
		if tx.SourceAccountID != nil && *tx.SourceAccountID == account.ID {
			totals.Sent = totals.Sent.Add(tx.Amount)
			totals.Fees = totals.Fees.Add(tx.Fee)
		}
		if tx.DestinationAccountID != nil && *tx.DestinationAccountID == account.ID {
			totals.Received = totals.Received.Add(tx.Amount)
		}
	}
	return totals, nil
}
