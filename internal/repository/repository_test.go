package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/repository"
	"github.com/josh-kwaku/wallet-orders/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPendingOrder(clientID, amount string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:        uuid.New(),
		ClientID:  clientID,
		Amount:    dec(amount),
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWalletRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWalletRepository(db)
	ctx := context.Background()

	w, err := repo.GetByClientID(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Zero(t, w.Version)

	w, err = repo.Credit(ctx, db, "client-a", dec("10.00"))
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(w.Balance))
	assert.Equal(t, int64(1), w.Version)

	_, err = repo.Debit(ctx, db, "client-a", dec("10.01"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)

	w, err = repo.Debit(ctx, db, "client-a", dec("10.00"))
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, int64(2), w.Version)

	w, err = repo.Reverse(ctx, db, "client-a", dec("10.00"))
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(w.Balance))
	assert.Equal(t, int64(3), w.Version)

	got, err := repo.GetByClientID(ctx, "client-a")
	require.NoError(t, err)
	assert.Equal(t, w.Version, got.Version)
	assert.True(t, w.Balance.Equal(got.Balance))
}

func TestWalletRepository_BalanceLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWalletRepository(db)
	ctx := context.Background()

	testutil.SeedWallet(t, db, "client-a", "9999999999999999.00")

	w, err := repo.Credit(ctx, db, "client-a", dec("1.00"))
	require.NoError(t, err)
	assert.True(t, domain.MaxBalance.Equal(w.Balance))

	_, err = repo.Credit(ctx, db, "client-a", dec("0.01"))
	require.ErrorIs(t, err, domain.ErrBalanceLimitExceeded)
	assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.True(t, domain.MaxBalance.Equal(testutil.GetWalletBalance(t, db, "client-a")))

	// reversals return reserved funds even above the credit limit
	w, err = repo.Reverse(ctx, db, "client-a", dec("5.00"))
	require.NoError(t, err)
	assert.True(t, dec("10000000000000005").Equal(w.Balance))

	testutil.SeedWallet(t, db, "client-b", "999999999999999999.00")
	_, err = repo.Reverse(ctx, db, "client-b", dec("1.00"))
	require.ErrorIs(t, err, domain.ErrBalanceLimitExceeded)
	assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestWalletRepository_DebitInsideRolledBackTx(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWalletRepository(db)
	ctx := context.Background()

	testutil.SeedWallet(t, db, "client-a", "5.00")

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = repo.Debit(ctx, tx, "client-a", dec("5.00"))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.True(t, dec("5").Equal(testutil.GetWalletBalance(t, db, "client-a")))
}

func TestOrderRepository_Transitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	tests := []struct {
		name  string
		first func(id uuid.UUID) (*domain.Order, error)
		again func(id uuid.UUID) (*domain.Order, error)
		want  domain.OrderStatus
	}{
		{
			name:  "fulfilled is terminal",
			first: func(id uuid.UUID) (*domain.Order, error) { return repo.MarkFulfilled(ctx, db, id, "REF-1") },
			again: func(id uuid.UUID) (*domain.Order, error) { return repo.MarkFailed(ctx, db, id, "late") },
			want:  domain.OrderStatusFulfilled,
		},
		{
			name:  "failed is terminal",
			first: func(id uuid.UUID) (*domain.Order, error) { return repo.MarkFailed(ctx, db, id, "gateway down") },
			again: func(id uuid.UUID) (*domain.Order, error) { return repo.MarkFulfilled(ctx, db, id, "REF-2") },
			want:  domain.OrderStatusFailed,
		},
		{
			name:  "double fulfil rejected",
			first: func(id uuid.UUID) (*domain.Order, error) { return repo.MarkFulfilled(ctx, db, id, "REF-3") },
			again: func(id uuid.UUID) (*domain.Order, error) { return repo.MarkFulfilled(ctx, db, id, "REF-4") },
			want:  domain.OrderStatusFulfilled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newPendingOrder("client-a", "1.00")
			require.NoError(t, repo.CreatePending(ctx, db, o))

			got, err := tt.first(o.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)

			_, err = tt.again(o.ID)
			require.ErrorIs(t, err, domain.ErrInvalidTransition)

			stored, err := repo.GetForClient(ctx, o.ID, "client-a")
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestOrderRepository_FieldsAndOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	o := newPendingOrder("client-a", "12.34")
	require.NoError(t, repo.CreatePending(ctx, db, o))

	got, err := repo.GetForClient(ctx, o.ID, "client-a")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Nil(t, got.FulfillmentRef)
	assert.Nil(t, got.FailureReason)
	assert.True(t, dec("12.34").Equal(got.Amount))

	_, err = repo.GetForClient(ctx, o.ID, "client-b")
	require.ErrorIs(t, err, domain.ErrNotFound)

	fulfilled, err := repo.MarkFulfilled(ctx, db, o.ID, "REF-9")
	require.NoError(t, err)
	require.NotNil(t, fulfilled.FulfillmentRef)
	assert.Equal(t, "REF-9", *fulfilled.FulfillmentRef)

	_, err = repo.MarkFailed(ctx, db, uuid.New(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_ListStalePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	old := newPendingOrder("client-a", "1.00")
	recent := newPendingOrder("client-a", "1.00")
	done := newPendingOrder("client-a", "1.00")
	for _, o := range []*domain.Order{old, recent, done} {
		require.NoError(t, repo.CreatePending(ctx, db, o))
	}
	_, err := repo.MarkFulfilled(ctx, db, done.ID, "REF")
	require.NoError(t, err)
	testutil.AgeOrder(t, db, old.ID, "10 minutes")
	testutil.AgeOrder(t, db, done.ID, "10 minutes")

	stale, err := repo.ListStalePending(ctx, time.Now().UTC().Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestLedgerRepository_AppendOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewLedgerRepository()
	orders := repository.NewOrderRepository(db)
	ctx := context.Background()

	o := newPendingOrder("client-a", "3.00")
	require.NoError(t, orders.CreatePending(ctx, db, o))

	orderID := o.ID
	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		ClientID:  "client-a",
		Kind:      domain.EntryKindOrder,
		Amount:    dec("3.00"),
		OrderID:   &orderID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Append(ctx, db, entry))

	dup := *entry
	dup.ID = uuid.New()
	err := repo.Append(ctx, db, &dup)
	require.ErrorIs(t, err, domain.ErrInvalidTransition, "one ledger entry per order")

	require.NoError(t, repo.Append(ctx, db, &domain.LedgerEntry{
		ID:        uuid.New(),
		ClientID:  "client-a",
		Kind:      domain.EntryKindCredit,
		Amount:    dec("1.00"),
		CreatedAt: time.Now().UTC(),
	}))

	_, err = db.Exec(`UPDATE ledger_entries SET amount = 1 WHERE id = $1`, entry.ID)
	require.Error(t, err)
	_, err = db.Exec(`DELETE FROM ledger_entries WHERE id = $1`, entry.ID)
	require.Error(t, err)

	assert.Equal(t, 1, testutil.CountLedgerEntries(t, db, "client-a", domain.EntryKindOrder))
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, db, "client-a", domain.EntryKindCredit))
}
