package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	q querier
}

const accountColumns = "id, owner_id, phone, account_type, balance, active, created_at"

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE id = $1", accountColumns)
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE phone = $1", accountColumns)
	return r.scanOne(r.q.QueryRowContext(ctx, query, phone))
}

// GetForUpdate takes a row-level write lock held for the rest of the
// surrounding transaction. Callers lock accounts in ascending id order.
func (r *accountRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE id = $1 FOR UPDATE", accountColumns)
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) Save(ctx context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	if account.ID == 0 {
		query := `
			INSERT INTO accounts (owner_id, phone, account_type, balance, active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		err := r.q.QueryRowContext(ctx, query,
			account.OwnerID,
			account.Phone,
			account.AccountType,
			account.Balance.String(),
			account.Active,
		).Scan(&account.ID, &account.CreatedAt)
		if isUniqueViolation(err) {
			return domain.ErrPhoneTaken
		}
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}
		return nil
	}

	query := `
		UPDATE accounts
		SET owner_id = $1, phone = $2, account_type = $3, balance = $4, active = $5
		WHERE id = $6
	`
	res, err := r.q.ExecContext(ctx, query,
		account.OwnerID,
		account.Phone,
		account.AccountType,
		account.Balance.String(),
		account.Active,
		account.ID,
	)
	if isUniqueViolation(err) {
		return domain.ErrPhoneTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE owner_id = $1 ORDER BY id", accountColumns)
	rows, err := r.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by owner: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *accountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM accounts ORDER BY id LIMIT $1 OFFSET $2", accountColumns)
	rows, err := r.q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *accountRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return account, nil
}

func scanAccounts(rows *sql.Rows) ([]*domain.Account, error) {
	var out []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func scanAccount(scan func(dest ...any) error) (*domain.Account, error) {
	var (
		account domain.Account
		balance string
	)
	if err := scan(
		&account.ID,
		&account.OwnerID,
		&account.Phone,
		&account.AccountType,
		&balance,
		&account.Active,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	account.Balance = parsed
	return &account, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
