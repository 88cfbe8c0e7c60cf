package wallet

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-orders/internal/cache"
	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/metrics"
	"github.com/josh-kwaku/wallet-orders/internal/repository"
	"github.com/josh-kwaku/wallet-orders/internal/testutil"
)

func setupWalletService(t *testing.T, db *sql.DB, c *cache.BalanceCache) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(
		repository.NewWalletRepository(db),
		repository.NewLedgerRepository(),
		repository.NewOutboxRepository(db),
		c,
		m,
		db,
	)
	return svc, m
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreditWallet_CreatesWalletLazily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, m := setupWalletService(t, db, nil)
	ctx := context.Background()

	w, err := svc.CreditWallet(ctx, "client-a", amount("25.50"))
	require.NoError(t, err)
	assert.True(t, amount("25.50").Equal(w.Balance))
	assert.Equal(t, int64(1), w.Version)

	w, err = svc.CreditWallet(ctx, "client-a", amount("4.50"))
	require.NoError(t, err)
	assert.True(t, amount("30.00").Equal(w.Balance))
	assert.Equal(t, int64(2), w.Version)

	assert.Equal(t, 2, testutil.CountLedgerEntries(t, db, "client-a", domain.EntryKindCredit))
	assert.Equal(t, 2, testutil.CountOutboxEvents(t, db, "client-a", domain.OutboxEventTypeWalletCredited))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.WalletOps.WithLabelValues("credit")))
}

func TestDebitWallet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupWalletService(t, db, nil)
	ctx := context.Background()

	testutil.SeedWallet(t, db, "client-a", "10.00")

	w, err := svc.DebitWallet(ctx, "client-a", amount("10.00"))
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, db, "client-a", domain.EntryKindDebit))

	_, err = svc.DebitWallet(ctx, "client-a", amount("0.01"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, db, "client-a", domain.EntryKindDebit))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, db, "client-a", domain.OutboxEventTypeWalletDebited))

	_, err = svc.DebitWallet(ctx, "nobody", amount("1.00"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestDebitWallet_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupWalletService(t, db, nil)
	ctx := context.Background()

	testutil.SeedWallet(t, db, "client-a", "10.00")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DebitWallet(ctx, "client-a", amount("7.00"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, successes)
	assert.True(t, amount("3.00").Equal(testutil.GetWalletBalance(t, db, "client-a")))
}

func TestWalletOperations_InvalidInput(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		clientID string
		amount   string
		wantErr  error
	}{
		{"blank client", "  ", "1.00", domain.ErrInvalidRequest},
		{"zero", "client-a", "0", domain.ErrInvalidAmount},
		{"negative", "client-a", "-1.00", domain.ErrInvalidAmount},
		{"three decimals", "client-a", "0.005", domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreditWallet(ctx, tt.clientID, amount(tt.amount))
			require.ErrorIs(t, err, tt.wantErr)
			_, err = svc.DebitWallet(ctx, tt.clientID, amount(tt.amount))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.GetBalance(ctx, "")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestGetBalance_UnknownClientIsZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupWalletService(t, db, nil)

	w, err := svc.GetBalance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, int64(0), w.Version)
}

func TestGetBalance_ReadThroughCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rdb := testutil.SetupTestRedis(t)
	c := cache.NewBalanceCache(rdb, time.Minute)
	svc, _ := setupWalletService(t, db, c)
	ctx := context.Background()

	_, err := svc.CreditWallet(ctx, "client-a", amount("12.00"))
	require.NoError(t, err)

	cached, ok, err := c.Get(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, amount("12.00").Equal(cached.Balance))

	// a write that bypasses the service is invisible until the entry expires
	testutil.SeedWallet(t, db, "client-a", "99.00")
	w, err := svc.GetBalance(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, amount("12.00").Equal(w.Balance))

	require.NoError(t, c.Delete(ctx, "client-a"))
	w, err = svc.GetBalance(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, amount("99.00").Equal(w.Balance))

	cached, ok, err = c.Get(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, w.Version, cached.Version)

	w, err = svc.DebitWallet(ctx, "client-a", amount("9.00"))
	require.NoError(t, err)
	cached, _, err = c.Get(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, amount("90.00").Equal(cached.Balance))
	assert.Equal(t, w.Version, cached.Version)
}
