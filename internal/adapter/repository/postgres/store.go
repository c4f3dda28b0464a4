package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/terangapay/transfert-backend/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same repository
// code serves auto-commit calls and atomic units.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store over PostgreSQL.
type Store struct {
	db *DB
}

// NewStore creates a new postgres-backed store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Repositories returns repositories that auto-commit each operation.
func (s *Store) Repositories() domain.Repositories {
	return repositoriesFor(s.db.DB)
}

// Atomic runs fn inside a single database transaction. Row locks taken via
// GetForUpdate are held until commit or rollback.
func (s *Store) Atomic(ctx context.Context, fn func(domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(repositoriesFor(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func repositoriesFor(q querier) domain.Repositories {
	return domain.Repositories{
		Accounts:     &accountRepository{q: q},
		Transactions: &transactionRepository{q: q},
		Receipts:     &receiptRepository{q: q},
		History:      &historyRepository{q: q},
		Stats:        &statsRepository{q: q},
	}
}
