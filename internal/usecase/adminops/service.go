// Package adminops implements the privileged adjustment operations:
// fee-free deposits and withdrawals, transaction cancellation, account
// administration and platform statistics.
package adminops

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

// Service handles admin adjustment operations. They reuse the same
// balance-mutation and ledger-write primitives as transfers but bypass the
// peer-lookup and fee logic.
type Service struct {
	store  domain.Store
	logger *slog.Logger
}

// NewService creates a new adminops Service instance.
func NewService(store domain.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Deposit credits an account with a system deposit (nil source, zero fee).
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, memo string) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	var created *domain.Transaction
	err := s.store.Atomic(ctx, func(r domain.Repositories) error {
		account, err := r.Accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.Active {
			return domain.ErrInactiveAccount
		}
		account.Balance = account.Balance.Add(amount)
		if err := r.Accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
		created, err = r.Transactions.Create(ctx, &domain.Transaction{
			DestinationAccountID: &account.ID,
			Amount:               amount,
			Fee:                  decimal.Zero,
			Status:               domain.StatusSuccess,
			Memo:                 memo,
		})
		if err != nil {
			return fmt.Errorf("failed to create ledger record: %w", err)
		}
		return r.History.Append(ctx, &domain.HistoryEntry{
			DestinationAccountID: &account.ID,
			Amount:               amount,
			Fee:                  decimal.Zero,
			Status:               domain.StatusSuccess,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin deposit", "accountId", accountID, "amount", amount.String())
	return created, nil
}

// Withdraw debits an account with a system withdrawal (nil destination,
// zero fee). Fails when the balance would go negative.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, memo string) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	var created *domain.Transaction
	err := s.store.Atomic(ctx, func(r domain.Repositories) error {
		account, err := r.Accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.Active {
			return domain.ErrInactiveAccount
		}
		if account.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}
		account.Balance = account.Balance.Sub(amount)
		if err := r.Accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
		created, err = r.Transactions.Create(ctx, &domain.Transaction{
			SourceAccountID: &account.ID,
			Amount:          amount,
			Fee:             decimal.Zero,
			Status:          domain.StatusSuccess,
			Memo:            memo,
		})
		if err != nil {
			return fmt.Errorf("failed to create ledger record: %w", err)
		}
		return r.History.Append(ctx, &domain.HistoryEntry{
			SourceAccountID: &account.ID,
			Amount:          amount,
			Fee:             decimal.Zero,
			Status:          domain.StatusSuccess,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin withdrawal", "accountId", accountID, "amount", amount.String())
	return created, nil
}

// Cancel reverses a SUCCESS transaction exactly once and marks it
// CANCELLED. The principal is moved back between the same parties; the fee
// is deliberately NOT reversed (it left circulation at transfer time).
// Reversal that would drive the destination balance negative fails with
// ErrInsufficientFunds.
func (s *Service) Cancel(ctx context.Context, transactionID int64) (*domain.Transaction, error) {
	var cancelled *domain.Transaction
	err := s.store.Atomic(ctx, func(r domain.Repositories) error {
		tx, err := r.Transactions.GetByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Status == domain.StatusCancelled {
			return domain.ErrAlreadyCancelled
		}

		locked, err := lockParties(ctx, r.Accounts, tx)
		if err != nil {
			return err
		}

		if tx.DestinationAccountID != nil {
			destination := locked[*tx.DestinationAccountID]
			if destination.Balance.LessThan(tx.Amount) {
				return domain.ErrInsufficientFunds
			}
			destination.Balance = destination.Balance.Sub(tx.Amount)
		}
		if tx.SourceAccountID != nil {
			source := locked[*tx.SourceAccountID]
			source.Balance = source.Balance.Add(tx.Amount)
		}
		for _, account := range locked {
			if err := r.Accounts.Save(ctx, account); err != nil {
				return fmt.Errorf("failed to save account: %w", err)
			}
		}

		if err := r.Transactions.UpdateStatus(ctx, tx.ID, domain.StatusCancelled); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		tx.Status = domain.StatusCancelled
		cancelled = tx

		return r.History.Append(ctx, &domain.HistoryEntry{
			SourceAccountID:      tx.SourceAccountID,
			DestinationAccountID: tx.DestinationAccountID,
			Amount:               tx.Amount,
			Fee:                  tx.Fee,
			Status:               domain.StatusCancelled,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction cancelled", "transactionId", transactionID)
	return cancelled, nil
}

// lockParties locks every account referenced by the transaction, in
// ascending id order, and returns them keyed by id.
func lockParties(ctx context.Context, accounts domain.AccountRepository, tx *domain.Transaction) (map[int64]*domain.Account, error) {
	var ids []int64
	if tx.SourceAccountID != nil {
		ids = append(ids, *tx.SourceAccountID)
	}
	if tx.DestinationAccountID != nil {
		ids = append(ids, *tx.DestinationAccountID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make(map[int64]*domain.Account, len(ids))
	for _, id := range ids {
		account, err := accounts.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

// CreateAccount opens a fresh zero-balance account. One active account per
// owner: a second one is rejected rather than silently appended.
func (s *Service) CreateAccount(ctx context.Context, ownerID int64, phone, accountType string) (*domain.Account, error) {
	var created *domain.Account
	err := s.store.Atomic(ctx, func(r domain.Repositories) error {
		if _, err := r.Accounts.GetByPhone(ctx, phone); err == nil {
			return domain.ErrPhoneTaken
		}
		existing, err := r.Accounts.ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.Active {
				return domain.ErrAccountExists
			}
		}
		created = &domain.Account{
			OwnerID:     ownerID,
			Phone:       phone,
			AccountType: accountType,
			Balance:     decimal.Zero,
			Active:      true,
		}
		return r.Accounts.Save(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created", "accountId", created.ID, "phone", phone)
	return created, nil
}

// ToggleAccountStatus flips the active flag. Accounts are never
// hard-deleted; deactivation is the only way to retire one.
func (s *Service) ToggleAccountStatus(ctx context.Context, accountID int64) (*domain.Account, error) {
	var account *domain.Account
	err := s.store.Atomic(ctx, func(r domain.Repositories) error {
		var err error
		account, err = r.Accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		account.Active = !account.Active
		return r.Accounts.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts returns a page of all accounts.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return s.store.Repositories().Accounts.List(ctx, limit, offset)
}

// ListTransactions returns a page of all ledger records, newest first.
func (s *Service) ListTransactions(ctx context.Context, limit, offset int) ([]*domain.Transaction, int, error) {
	repos := s.store.Repositories()
	items, err := repos.Transactions.Find(ctx, domain.TransactionFilter{}, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := repos.Transactions.Count(ctx, domain.TransactionFilter{})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// PlatformStatistics returns platform-wide totals for the dashboard.
func (s *Service) PlatformStatistics(ctx context.Context) (*domain.PlatformTotals, error) {
	return s.store.Repositories().Stats.PlatformTotals(ctx)
}

// RecentActivity returns the latest audit mirror entries.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	return s.store.Repositories().History.ListRecent(ctx, limit)
}

// AccountActivity returns the audit mirror entries involving one account,
// newest first.
func (s *Service) AccountActivity(ctx context.Context, accountID int64, limit, offset int) ([]*domain.HistoryEntry, error) {
	if _, err := s.store.Repositories().Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Repositories().History.ListByAccount(ctx, accountID, limit, offset)
}
