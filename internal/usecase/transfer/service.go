package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

// FeeRate is the fixed transfer fee rate (1%).
var FeeRate = decimal.New(1, -2)

// ComputeFee returns the fee charged for transferring amount, using
// banker's rounding to 2 decimal places.
func ComputeFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(FeeRate).RoundBank(2)
}

// ReceiptIssuer is the collaborator that produces the receipt artifact for
// a committed transaction. It must be idempotent per transaction id.
type ReceiptIssuer interface {
	GetOrCreate(ctx context.Context, tx *domain.Transaction) (*domain.Receipt, error)
}

// Input represents the input for a transfer. The source account has already
// been resolved and authorized by the transport layer.
type Input struct {
	SourceAccountID  int64
	DestinationPhone string
	Amount           decimal.Decimal
}

// Result is the outcome of a successful transfer. Receipt is nil when
// generation failed; the transfer itself is already committed either way.
type Result struct {
	Transaction  *domain.Transaction
	Fee          decimal.Decimal
	TotalDebited decimal.Decimal
	Receipt      *domain.Receipt
}

// Service is the transfer engine: it validates a request, computes the fee,
// checks funds, mutates both balances and writes the ledger record as one
// atomic unit, then asks for a receipt.
type Service struct {
	store    domain.Store
	receipts ReceiptIssuer
	logger   *slog.Logger
}

// NewService creates a new transfer Service instance.
func NewService(store domain.Store, receipts ReceiptIssuer, logger *slog.Logger) *Service {
	return &Service{store: store, receipts: receipts, logger: logger}
}

// Transfer moves funds from the source account to the account registered
// under the destination phone number.
// Logic:
//  1. Compute fee (1%, banker's rounding) and total debit
//  2. Fail fast on insufficient funds, unknown recipient, self transfer —
//     all before any mutation
//  3. Atomically: lock both accounts in ascending id order, re-check funds
//     under the lock, debit source, credit destination, append the ledger
//     record and the audit mirror entry
//  4. Request receipt generation; its failure is logged, never propagated
func (s *Service) Transfer(ctx context.Context, in Input) (*Result, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	fee := ComputeFee(in.Amount)
	totalDebit := in.Amount.Add(fee)

	var created *domain.Transaction
	err := s.store.Atomic(ctx, func(r domain.Repositories) error {
		source, err := r.Accounts.GetByID(ctx, in.SourceAccountID)
		if err != nil {
			return err
		}
		if source.Balance.LessThan(totalDebit) {
			return domain.ErrInsufficientFunds
		}

		destination, err := r.Accounts.GetByPhone(ctx, in.DestinationPhone)
		if err != nil {
			return domain.ErrRecipientNotFound
		}
		if destination.Phone == source.Phone {
			return domain.ErrSelfTransfer
		}

		source, destination, err = lockPair(ctx, r.Accounts, source.ID, destination.ID)
		if err != nil {
			return err
		}
		// re-check under the lock: a concurrent transfer may have drained
		// the account between the fast check and here
		if source.Balance.LessThan(totalDebit) {
			return domain.ErrInsufficientFunds
		}

		source.Balance = source.Balance.Sub(totalDebit)
		destination.Balance = destination.Balance.Add(in.Amount)
		if err := r.Accounts.Save(ctx, source); err != nil {
			return fmt.Errorf("failed to save source account: %w", err)
		}
		if err := r.Accounts.Save(ctx, destination); err != nil {
			return fmt.Errorf("failed to save destination account: %w", err)
		}

		created, err = r.Transactions.Create(ctx, &domain.Transaction{
			SourceAccountID:      &source.ID,
			DestinationAccountID: &destination.ID,
			Amount:               in.Amount,
			Fee:                  fee,
			Status:               domain.StatusSuccess,
		})
		if err != nil {
			return fmt.Errorf("failed to create ledger record: %w", err)
		}

		if err := r.History.Append(ctx, &domain.HistoryEntry{
			SourceAccountID:      &source.ID,
			DestinationAccountID: &destination.ID,
			Amount:               in.Amount,
			Fee:                  fee,
			Status:               domain.StatusSuccess,
		}); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Transaction:  created,
		Fee:          fee,
		TotalDebited: totalDebit,
	}

	// best effort: the financial mutation is committed, so a receipt
	// failure only means "no receipt yet"
	receipt, err := s.receipts.GetOrCreate(ctx, created)
	if err != nil {
		s.logger.Warn("receipt generation failed",
			"transactionId", created.ID, "error", err)
		return result, nil
	}
	result.Receipt = receipt
	return result, nil
}

// lockPair locks two accounts in ascending id order and returns them as
// (first, second), matching the order the ids were passed in. The fixed
// global order prevents deadlock when two transfers move funds in opposite
// directions simultaneously.
func lockPair(ctx context.Context, accounts domain.AccountRepository, firstID, secondID int64) (*domain.Account, *domain.Account, error) {
	lowID, highID := firstID, secondID
	if highID < lowID {
		lowID, highID = highID, lowID
	}
	low, err := accounts.GetForUpdate(ctx, lowID)
	if err != nil {
		return nil, nil, err
	}
	high, err := accounts.GetForUpdate(ctx, highID)
	if err != nil {
		return nil, nil, err
	}
	if low.ID == firstID {
		return low, high, nil
	}
	return high, low, nil
}
