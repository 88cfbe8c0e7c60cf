package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
)

const keyPrefix = "wallet:balance:"

// setIfNewer replaces the entry only when the incoming version is strictly
// greater than the cached one.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], 'balance', ARGV[1], 'version', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// BalanceCache is a read-through cache of wallet balances. A nil
// *BalanceCache is valid and behaves as a permanently empty cache.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRedisClient: ping: %w", err)
	}
	return client, nil
}

// Get returns the cached wallet, or ok=false on a miss.
func (c *BalanceCache) Get(ctx context.Context, clientID string) (*domain.Wallet, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	fields, err := c.client.HGetAll(ctx, key(clientID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("BalanceCache.Get: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	balance, err := decimal.NewFromString(fields["balance"])
	if err != nil {
		return nil, false, fmt.Errorf("BalanceCache.Get: balance: %w", err)
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("BalanceCache.Get: version: %w", err)
	}

	return &domain.Wallet{ClientID: clientID, Balance: balance, Version: version}, true, nil
}

// Store caches the wallet unless a newer version is already present. It
// reports whether the entry was written.
func (c *BalanceCache) Store(ctx context.Context, w *domain.Wallet) (bool, error) {
	if c == nil || w == nil {
		return false, nil
	}

	res, err := setIfNewer.Run(ctx, c.client,
		[]string{key(w.ClientID)},
		w.Balance.StringFixed(domain.AmountScale), w.Version, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("BalanceCache.Store: %w", err)
	}
	return res == 1, nil
}

// Refresh stores a freshly committed wallet. If the write fails the entry is
// dropped so readers fall back to the database. If that fails too, reads may
// serve the previous balance until the entry's TTL runs out; that case is
// alerted.
func (c *BalanceCache) Refresh(ctx context.Context, w *domain.Wallet) {
	if c == nil || w == nil {
		return
	}
	_, err := c.Store(ctx, w)
	if err == nil {
		return
	}

	log := logging.FromContext(ctx)
	log.Warn("balance cache store failed", "client_id", w.ClientID, "error", err)
	if err := c.Delete(ctx, w.ClientID); err != nil {
		logging.Alert(ctx, "balance cache may be stale until ttl expiry",
			"client_id", w.ClientID,
			"version", w.Version,
			"ttl", c.ttl,
			"error", err,
		)
	}
}

func (c *BalanceCache) Delete(ctx context.Context, clientID string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, key(clientID)).Err(); err != nil {
		return fmt.Errorf("BalanceCache.Delete: %w", err)
	}
	return nil
}

func key(clientID string) string {
	return keyPrefix + clientID
}
