package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

// statsRepository implements domain.StatsRepository
type statsRepository struct {
	q querier
}

func (r *statsRepository) PlatformTotals(ctx context.Context) (*domain.PlatformTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM accounts WHERE active),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COALESCE(SUM(balance), 0) FROM accounts),
			(SELECT COALESCE(SUM(fee), 0) FROM transactions WHERE status = 'SUCCESS')
	`
	var (
		totals  domain.PlatformTotals
		balance string
		fees    string
	)
	err := r.q.QueryRowContext(ctx, query).Scan(
		&totals.Accounts,
		&totals.ActiveAccounts,
		&totals.Transactions,
		&balance,
		&fees,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform totals: %w", err)
	}
	if totals.TotalBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid total balance %q: %w", balance, err)
	}
	if totals.TotalFees, err = decimal.NewFromString(fees); err != nil {
		return nil, fmt.Errorf("invalid total fees %q: %w", fees, err)
	}
	return &totals, nil
}
