package history

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terangapay/transfert-backend/internal/adapter/repository/memory"
	"github.com/terangapay/transfert-backend/internal/domain"
)

func seedAccount(t *testing.T, store *memory.Store, phone, balance string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		Phone:   phone,
		Balance: decimal.RequireFromString(balance),
		Active:  true,
	}
	require.NoError(t, store.Repositories().Accounts.Save(context.Background(), account))
	return account
}

func seedTransaction(t *testing.T, store *memory.Store, sourceID, destID *int64, amount, fee string, status domain.TransactionStatus) *domain.Transaction {
	t.Helper()
	tx, err := store.Repositories().Transactions.Create(context.Background(), &domain.Transaction{
		SourceAccountID:      sourceID,
		DestinationAccountID: destID,
		Amount:               decimal.RequireFromString(amount),
		Fee:                  decimal.RequireFromString(fee),
		Status:               status,
	})
	require.NoError(t, err)
	return tx
}

// a fixture with three accounts: alice sent 100 to bob, bob sent 50 to carol,
// carol's deposit of 20 was cancelled.
type fixture struct {
	store             *memory.Store
	alice, bob, carol *domain.Account
	aliceToBob        *domain.Transaction
	bobToCarol        *domain.Transaction
	carolDeposit      *domain.Transaction
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store: store,
		alice: seedAccount(t, store, "770000001", "899"),
		bob:   seedAccount(t, store, "770000002", "149.50"),
		carol: seedAccount(t, store, "770000003", "50"),
	}
	f.aliceToBob = seedTransaction(t, store, &f.alice.ID, &f.bob.ID, "100", "1", domain.StatusSuccess)
	f.bobToCarol = seedTransaction(t, store, &f.bob.ID, &f.carol.ID, "50", "0.50", domain.StatusSuccess)
	f.carolDeposit = seedTransaction(t, store, nil, &f.carol.ID, "20", "0", domain.StatusCancelled)
	return f
}

func user(phone string) domain.Identity {
	return domain.Identity{Phone: phone, Role: domain.RoleUser}
}

func TestCallerAccount(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store)

	account, err := svc.CallerAccount(context.Background(), "770000002")
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, account.ID)

	_, err = svc.CallerAccount(context.Background(), "779999999")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewService(f.store)

	t.Run("returns only the caller's transactions, newest first", func(t *testing.T) {
		items, total, err := svc.List(ctx, user("770000002"), ListParams{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, f.bobToCarol.ID, items[0].ID)
		assert.Equal(t, f.aliceToBob.ID, items[1].ID)
	})

	t.Run("direction filters", func(t *testing.T) {
		sent, total, err := svc.List(ctx, user("770000002"), ListParams{Direction: domain.DirectionSent})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, sent, 1)
		assert.Equal(t, f.bobToCarol.ID, sent[0].ID)

		received, _, err := svc.List(ctx, user("770000002"), ListParams{Direction: domain.DirectionReceived})
		require.NoError(t, err)
		require.Len(t, received, 1)
		assert.Equal(t, f.aliceToBob.ID, received[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		page, total, err := svc.List(ctx, user("770000002"), ListParams{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page, 1)
		assert.Equal(t, f.aliceToBob.ID, page[0].ID)
	})

	t.Run("caller without an account", func(t *testing.T) {
		_, _, err := svc.List(ctx, user("779999999"), ListParams{})
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewService(f.store)

	t.Run("party can read it", func(t *testing.T) {
		tx, err := svc.Get(ctx, f.aliceToBob.ID, user("770000001"))
		require.NoError(t, err)
		assert.Equal(t, f.aliceToBob.ID, tx.ID)
	})

	t.Run("non-party is forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, f.aliceToBob.ID, user("770000003"))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("admin bypasses the party check", func(t *testing.T) {
		admin := domain.Identity{Phone: "770000099", Role: domain.RoleAdmin}
		tx, err := svc.Get(ctx, f.aliceToBob.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, f.aliceToBob.ID, tx.ID)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := svc.Get(ctx, 999, user("770000001"))
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}

func TestTotalsFor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewService(f.store)

	totals, err := svc.TotalsFor(ctx, user("770000002"))
	require.NoError(t, err)

	assert.Equal(t, 2, totals.Count)
	assert.True(t, totals.Sent.Equal(decimal.RequireFromString("50")))
	assert.True(t, totals.Received.Equal(decimal.RequireFromString("100")))
	assert.True(t, totals.Fees.Equal(decimal.RequireFromString("0.50")))

	// cancelled entries are excluded
	carol, err := svc.TotalsFor(ctx, user("770000003"))
	require.NoError(t, err)
	assert.Equal(t, 1, carol.Count)
	assert.True(t, carol.Received.Equal(decimal.RequireFromString("50")))
}
