package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

// historyRepository implements domain.HistoryRepository
type historyRepository struct {
	q querier
}

const historyColumns = "id, source_account_id, destination_account_id, amount, fee, status, recorded_at"

func (r *historyRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO historique_transaction (source_account_id, destination_account_id, amount, fee, status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		nullableID(entry.SourceAccountID),
		nullableID(entry.DestinationAccountID),
		entry.Amount.String(),
		entry.Fee.String(),
		string(entry.Status),
		entry.RecordedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

func (r *historyRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM historique_transaction
		WHERE source_account_id = $1 OR destination_account_id = $1
		ORDER BY id DESC LIMIT $2 OFFSET $3
	`, historyColumns)
	rows, err := r.q.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (r *historyRepository) ListRecent(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM historique_transaction ORDER BY id DESC LIMIT $1", historyColumns)
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent history: %w", err)
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]*domain.HistoryEntry, error) {
	var out []*domain.HistoryEntry
	for rows.Next() {
		var (
			entry  domain.HistoryEntry
			source sql.NullInt64
			dest   sql.NullInt64
			amount string
			fee    string
			status string
		)
		if err := rows.Scan(&entry.ID, &source, &dest, &amount, &fee, &status, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if source.Valid {
			entry.SourceAccountID = &source.Int64
		}
		if dest.Valid {
			entry.DestinationAccountID = &dest.Int64
		}
		var err error
		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		if entry.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("invalid fee %q: %w", fee, err)
		}
		entry.Status = domain.TransactionStatus(status)
		out = append(out, &entry)
	}
	return out, rows.Err()
}
