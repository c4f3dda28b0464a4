package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/terangapay/transfert-backend/internal/domain"
)

// receiptRepository implements domain.ReceiptRepository
type receiptRepository struct {
	q querier
}

const receiptColumns = "id, transaction_id, numero, file_path, generated_at"

// Create persists a receipt. The unique constraint on transaction_id is
// what guarantees at-most-one receipt per transaction under concurrency;
// a violation surfaces as domain.ErrReceiptExists.
func (r *receiptRepository) Create(ctx context.Context, receipt *domain.Receipt) (*domain.Receipt, error) {
	if receipt.GeneratedAt.IsZero() {
		receipt.GeneratedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO receipts (transaction_id, numero, file_path, generated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		receipt.TransactionID,
		receipt.Numero,
		receipt.FilePath,
		receipt.GeneratedAt,
	).Scan(&receipt.ID)
	if isUniqueViolation(err) {
		return nil, domain.ErrReceiptExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert receipt: %w", err)
	}
	out := *receipt
	return &out, nil
}

func (r *receiptRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*domain.Receipt, error) {
	query := fmt.Sprintf("SELECT %s FROM receipts WHERE transaction_id = $1", receiptColumns)
	return r.scanOne(r.q.QueryRowContext(ctx, query, transactionID))
}

func (r *receiptRepository) GetByNumero(ctx context.Context, numero string) (*domain.Receipt, error) {
	query := fmt.Sprintf("SELECT %s FROM receipts WHERE numero = $1", receiptColumns)
	return r.scanOne(r.q.QueryRowContext(ctx, query, numero))
}

func (r *receiptRepository) ExistsByNumero(ctx context.Context, numero string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM receipts WHERE numero = $1)", numero).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check numero: %w", err)
	}
	return exists, nil
}

func (r *receiptRepository) scanOne(row *sql.Row) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := row.Scan(
		&receipt.ID,
		&receipt.TransactionID,
		&receipt.Numero,
		&receipt.FilePath,
		&receipt.GeneratedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan receipt: %w", err)
	}
	return &receipt, nil
}
