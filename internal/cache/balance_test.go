package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
	"github.com/josh-kwaku/wallet-orders/internal/testutil"
)

func TestBalanceCache(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	c := NewBalanceCache(client, time.Minute)
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		w, ok, err := c.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, w)
	})

	t.Run("store and get", func(t *testing.T) {
		stored, err := c.Store(ctx, &domain.Wallet{ClientID: "c1", Balance: decimal.RequireFromString("12.5"), Version: 3})
		require.NoError(t, err)
		assert.True(t, stored)

		w, ok, err := c.Get(ctx, "c1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, decimal.RequireFromString("12.50").Equal(w.Balance))
		assert.Equal(t, int64(3), w.Version)
	})

	t.Run("older version does not overwrite", func(t *testing.T) {
		_, err := c.Store(ctx, &domain.Wallet{ClientID: "c2", Balance: decimal.NewFromInt(50), Version: 5})
		require.NoError(t, err)

		for _, v := range []int64{4, 5} {
			stored, err := c.Store(ctx, &domain.Wallet{ClientID: "c2", Balance: decimal.NewFromInt(99), Version: v})
			require.NoError(t, err)
			assert.False(t, stored, "version %d", v)
		}

		w, _, err := c.Get(ctx, "c2")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(50).Equal(w.Balance))

		stored, err := c.Store(ctx, &domain.Wallet{ClientID: "c2", Balance: decimal.NewFromInt(20), Version: 6})
		require.NoError(t, err)
		assert.True(t, stored)
	})

	t.Run("ttl applied", func(t *testing.T) {
		_, err := c.Store(ctx, &domain.Wallet{ClientID: "c3", Balance: decimal.NewFromInt(1), Version: 1})
		require.NoError(t, err)

		ttl, err := client.PTTL(ctx, key("c3")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("failed refresh drops the entry", func(t *testing.T) {
		// a non-hash value makes the versioned write fail
		require.NoError(t, client.Set(ctx, key("c5"), "garbage", 0).Err())

		c.Refresh(ctx, &domain.Wallet{ClientID: "c5", Balance: decimal.NewFromInt(7), Version: 2})

		n, err := client.Exists(ctx, key("c5")).Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := c.Store(ctx, &domain.Wallet{ClientID: "c4", Balance: decimal.NewFromInt(1), Version: 1})
		require.NoError(t, err)
		require.NoError(t, c.Delete(ctx, "c4"))

		_, ok, err := c.Get(ctx, "c4")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestBalanceCache_NilIsDisabled(t *testing.T) {
	var c *BalanceCache
	ctx := context.Background()

	w, ok, err := c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, w)

	stored, err := c.Store(ctx, &domain.Wallet{ClientID: "c1", Version: 1})
	require.NoError(t, err)
	assert.False(t, stored)

	require.NoError(t, c.Delete(ctx, "c1"))
}

func TestBalanceCache_RefreshAlertsWhenEntryMayBeStale(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	c := NewBalanceCache(client, 30*time.Second)

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, "test", "debug", "production"))

	c.Refresh(ctx, &domain.Wallet{ClientID: "c1", Balance: decimal.NewFromInt(10), Version: 4})

	var alerted bool
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		if entry["alert"] == true {
			alerted = true
			assert.Equal(t, "ERROR", entry["level"])
			assert.Equal(t, "c1", entry["client_id"])
		}
	}
	assert.True(t, alerted)
}
