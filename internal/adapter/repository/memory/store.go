// Package memory provides an in-memory implementation of the domain store,
// used for unit testing the engines without a running database and for
// running the server without Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/terangapay/transfert-backend/internal/domain"
)

// Store implements domain.Store over process memory. Atomic sections are
// serialized by a single mutex and rolled back via snapshot on error, which
// gives the same all-or-nothing semantics the Postgres adapter gets from
// SQL transactions.
type Store struct {
	mu   sync.Mutex
	data *data
}

type data struct {
	accounts     map[int64]*domain.Account
	transactions map[int64]*domain.Transaction
	receipts     map[int64]*domain.Receipt
	receiptByTx  map[int64]int64 // transaction id -> receipt id
	history      []*domain.HistoryEntry

	nextAccountID     int64
	nextTransactionID int64
	nextReceiptID     int64
	nextHistoryID     int64
}

// NewStore instantiates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: &data{
		accounts:     make(map[int64]*domain.Account),
		transactions: make(map[int64]*domain.Transaction),
		receipts:     make(map[int64]*domain.Receipt),
		receiptByTx:  make(map[int64]int64),
	}}
}

// Repositories returns repositories whose operations each lock the store
// for their own duration.
func (s *Store) Repositories() domain.Repositories {
	return s.repositories(true)
}

// Atomic runs fn while holding the store lock. On error the store is
// restored to its pre-fn snapshot.
func (s *Store) Atomic(ctx context.Context, fn func(domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.repositories(false)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) repositories(lock bool) domain.Repositories {
	return domain.Repositories{
		Accounts:     &accountRepo{store: s, lock: lock},
		Transactions: &transactionRepo{store: s, lock: lock},
		Receipts:     &receiptRepo{store: s, lock: lock},
		History:      &historyRepo{store: s, lock: lock},
		Stats:        &statsRepo{store: s, lock: lock},
	}
}

func (d *data) clone() *data {
	cp := &data{
		accounts:          make(map[int64]*domain.Account, len(d.accounts)),
		transactions:      make(map[int64]*domain.Transaction, len(d.transactions)),
		receipts:          make(map[int64]*domain.Receipt, len(d.receipts)),
		receiptByTx:       make(map[int64]int64, len(d.receiptByTx)),
		history:           make([]*domain.HistoryEntry, len(d.history)),
		nextAccountID:     d.nextAccountID,
		nextTransactionID: d.nextTransactionID,
		nextReceiptID:     d.nextReceiptID,
		nextHistoryID:     d.nextHistoryID,
	}
	for id, a := range d.accounts {
		cp.accounts[id] = cloneAccount(a)
	}
	for id, t := range d.transactions {
		cp.transactions[id] = cloneTransaction(t)
	}
	for id, r := range d.receipts {
		clone := *r
		cp.receipts[id] = &clone
	}
	for txID, rID := range d.receiptByTx {
		cp.receiptByTx[txID] = rID
	}
	for i, h := range d.history {
		clone := *h
		clone.SourceAccountID = cloneID(h.SourceAccountID)
		clone.DestinationAccountID = cloneID(h.DestinationAccountID)
		cp.history[i] = &clone
	}
	return cp
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	return &clone
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	clone := *t
	clone.SourceAccountID = cloneID(t.SourceAccountID)
	clone.DestinationAccountID = cloneID(t.DestinationAccountID)
	return &clone
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// --- accounts ---

type accountRepo struct {
	store *Store
	lock  bool
}

func (r *accountRepo) guard() func() {
	if !r.lock {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	defer r.guard()()
	a, ok := r.store.data.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *accountRepo) GetByPhone(_ context.Context, phone string) (*domain.Account, error) {
	defer r.guard()()
	for _, a := range r.store.data.accounts {
		if a.Phone == phone {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// GetForUpdate behaves like GetByID: Atomic already holds the store-wide
// lock, so row-level locking is not needed here.
func (r *accountRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepo) Save(_ context.Context, account *domain.Account) error {
	defer r.guard()()
	if err := account.Validate(); err != nil {
		return err
	}
	d := r.store.data
	for id, existing := range d.accounts {
		if existing.Phone == account.Phone && id != account.ID {
			return domain.ErrPhoneTaken
		}
	}
	if account.ID == 0 {
		d.nextAccountID++
		account.ID = d.nextAccountID
		if account.CreatedAt.IsZero() {
			account.CreatedAt = time.Now().UTC()
		}
	} else if _, ok := d.accounts[account.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	d.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (r *accountRepo) ListByOwner(_ context.Context, ownerID int64) ([]*domain.Account, error) {
	defer r.guard()()
	var out []*domain.Account
	for _, a := range r.store.data.accounts {
		if a.OwnerID == ownerID {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *accountRepo) List(_ context.Context, limit, offset int) ([]*domain.Account, error) {
	defer r.guard()()
	all := make([]*domain.Account, 0, len(r.store.data.accounts))
	for _, a := range r.store.data.accounts {
		all = append(all, cloneAccount(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, limit, offset), nil
}

// --- transactions ---

type transactionRepo struct {
	store *Store
	lock  bool
}

func (r *transactionRepo) guard() func() {
	if !r.lock {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *transactionRepo) Create(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	defer r.guard()()
	d := r.store.data
	if tx.Status == "" {
		tx.Status = domain.StatusSuccess
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	d.nextTransactionID++
	tx.ID = d.nextTransactionID
	d.transactions[tx.ID] = cloneTransaction(tx)
	return cloneTransaction(tx), nil
}

func (r *transactionRepo) GetByID(_ context.Context, id int64) (*domain.Transaction, error) {
	defer r.guard()()
	t, ok := r.store.data.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTransaction(t), nil
}

func (r *transactionRepo) Find(_ context.Context, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error) {
	defer r.guard()()
	matched := r.match(filter)
	return paginate(matched, limit, offset), nil
}

func (r *transactionRepo) Count(_ context.Context, filter domain.TransactionFilter) (int, error) {
	defer r.guard()()
	return len(r.match(filter)), nil
}

func (r *transactionRepo) match(filter domain.TransactionFilter) []*domain.Transaction {
	var out []*domain.Transaction
	for _, t := range r.store.data.transactions {
		if !matchesFilter(t, filter) {
			continue
		}
		out = append(out, cloneTransaction(t))
	}
	// newest first; ids are strictly increasing in creation order
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func matchesFilter(t *domain.Transaction, f domain.TransactionFilter) bool {
	if f.AccountID != nil {
		switch f.Direction {
		case domain.DirectionSent:
			if t.SourceAccountID == nil || *t.SourceAccountID != *f.AccountID {
				return false
			}
		case domain.DirectionReceived:
			if t.DestinationAccountID == nil || *t.DestinationAccountID != *f.AccountID {
				return false
			}
		default:
			if !t.InvolvesAccount(*f.AccountID) {
				return false
			}
		}
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.From != nil && t.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && t.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func (r *transactionRepo) UpdateStatus(_ context.Context, id int64, status domain.TransactionStatus) error {
	defer r.guard()()
	t, ok := r.store.data.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.Status = status
	return nil
}

// --- receipts ---

type receiptRepo struct {
	store *Store
	lock  bool
}

func (r *receiptRepo) guard() func() {
	if !r.lock {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *receiptRepo) Create(_ context.Context, receipt *domain.Receipt) (*domain.Receipt, error) {
	defer r.guard()()
	d := r.store.data
	if _, exists := d.receiptByTx[receipt.TransactionID]; exists {
		return nil, domain.ErrReceiptExists
	}
	for _, existing := range d.receipts {
		if existing.Numero == receipt.Numero {
			return nil, fmt.Errorf("receipt numero %s already taken", receipt.Numero)
		}
	}
	if receipt.GeneratedAt.IsZero() {
		receipt.GeneratedAt = time.Now().UTC()
	}
	d.nextReceiptID++
	receipt.ID = d.nextReceiptID
	clone := *receipt
	d.receipts[receipt.ID] = &clone
	d.receiptByTx[receipt.TransactionID] = receipt.ID
	out := *receipt
	return &out, nil
}

func (r *receiptRepo) GetByTransactionID(_ context.Context, transactionID int64) (*domain.Receipt, error) {
	defer r.guard()()
	id, ok := r.store.data.receiptByTx[transactionID]
	if !ok {
		return nil, domain.ErrReceiptNotFound
	}
	clone := *r.store.data.receipts[id]
	return &clone, nil
}

func (r *receiptRepo) GetByNumero(_ context.Context, numero string) (*domain.Receipt, error) {
	defer r.guard()()
	for _, rec := range r.store.data.receipts {
		if rec.Numero == numero {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, domain.ErrReceiptNotFound
}

func (r *receiptRepo) ExistsByNumero(_ context.Context, numero string) (bool, error) {
	defer r.guard()()
	for _, rec := range r.store.data.receipts {
		if rec.Numero == numero {
			return true, nil
		}
	}
	return false, nil
}

// --- history ---

type historyRepo struct {
	store *Store
	lock  bool
}

func (r *historyRepo) guard() func() {
	if !r.lock {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *historyRepo) Append(_ context.Context, entry *domain.HistoryEntry) error {
	defer r.guard()()
	d := r.store.data
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	d.nextHistoryID++
	entry.ID = d.nextHistoryID
	clone := *entry
	clone.SourceAccountID = cloneID(entry.SourceAccountID)
	clone.DestinationAccountID = cloneID(entry.DestinationAccountID)
	d.history = append(d.history, &clone)
	return nil
}

func (r *historyRepo) ListByAccount(_ context.Context, accountID int64, limit, offset int) ([]*domain.HistoryEntry, error) {
	defer r.guard()()
	var out []*domain.HistoryEntry
	for i := len(r.store.data.history) - 1; i >= 0; i-- {
		h := r.store.data.history[i]
		involved := (h.SourceAccountID != nil && *h.SourceAccountID == accountID) ||
			(h.DestinationAccountID != nil && *h.DestinationAccountID == accountID)
		if !involved {
			continue
		}
		clone := *h
		out = append(out, &clone)
	}
	return paginate(out, limit, offset), nil
}

func (r *historyRepo) ListRecent(_ context.Context, limit int) ([]*domain.HistoryEntry, error) {
	defer r.guard()()
	var out []*domain.HistoryEntry
	for i := len(r.store.data.history) - 1; i >= 0; i-- {
		clone := *r.store.data.history[i]
		out = append(out, &clone)
	}
	return paginate(out, limit, 0), nil
}

// --- stats ---

type statsRepo struct {
	store *Store
	lock  bool
}

func (r *statsRepo) PlatformTotals(_ context.Context) (*domain.PlatformTotals, error) {
	if r.lock {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	d := r.store.data
	totals := &domain.PlatformTotals{
		Accounts:     len(d.accounts),
		Transactions: len(d.transactions),
	}
	for _, a := range d.accounts {
		if a.Active {
			totals.ActiveAccounts++
		}
		totals.TotalBalance = totals.TotalBalance.Add(a.Balance)
	}
	for _, t := range d.transactions {
		if t.Status == domain.StatusSuccess {
			totals.TotalFees = totals.TotalFees.Add(t.Fee)
		}
	}
	return totals, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
