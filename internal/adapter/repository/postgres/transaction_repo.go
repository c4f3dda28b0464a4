package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	q querier
}

const transactionColumns = "id, source_account_id, destination_account_id, amount, fee, status, memo, created_at"

// Create appends a new ledger record. BIGSERIAL ids give the strictly
// increasing creation order the ledger requires.
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.Status == "" {
		tx.Status = domain.StatusSuccess
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO transactions (source_account_id, destination_account_id, amount, fee, status, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		nullableID(tx.SourceAccountID),
		nullableID(tx.DestinationAccountID),
		tx.Amount.String(),
		tx.Fee.String(),
		string(tx.Status),
		tx.Memo,
		tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	out := *tx
	return &out, nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE id = $1", transactionColumns)
	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return tx, nil
}

func (r *transactionRepository) Find(ctx context.Context, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf("SELECT %s FROM transactions%s ORDER BY id DESC", transactionColumns, where)
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *transactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int, error) {
	where, args := buildFilter(filter)
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error {
	res, err := r.q.ExecContext(ctx, "UPDATE transactions SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func buildFilter(filter domain.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		ref := fmt.Sprintf("$%d", len(args))
		switch filter.Direction {
		case domain.DirectionSent:
			conds = append(conds, "source_account_id = "+ref)
		case domain.DirectionReceived:
			conds = append(conds, "destination_account_id = "+ref)
		default:
			conds = append(conds, fmt.Sprintf("(source_account_id = %s OR destination_account_id = %s)", ref, ref))
		}
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanTransaction(scan func(dest ...any) error) (*domain.Transaction, error) {
	var (
		tx       domain.Transaction
		source   sql.NullInt64
		dest     sql.NullInt64
		amount   string
		fee      string
		status   string
	)
	if err := scan(&tx.ID, &source, &dest, &amount, &fee, &status, &tx.Memo, &tx.CreatedAt); err != nil {
		return nil, err
	}
	if source.Valid {
		tx.SourceAccountID = &source.Int64
	}
	if dest.Valid {
		tx.DestinationAccountID = &dest.Int64
	}
	var err error
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if tx.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("invalid fee %q: %w", fee, err)
	}
	tx.Status = domain.TransactionStatus(status)
	return &tx, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
