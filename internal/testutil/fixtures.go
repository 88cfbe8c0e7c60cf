package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

// SeedWallet sets the client's balance directly, bypassing the ledger.
func SeedWallet(t *testing.T, db *sql.DB, clientID string, balance string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO wallets (client_id, balance, version, created_at, updated_at)
		 VALUES ($1, $2, 1, now(), now())
		 ON CONFLICT (client_id) DO UPDATE SET balance = EXCLUDED.balance, version = wallets.version + 1`,
		clientID, decimal.RequireFromString(balance),
	)
	if err != nil {
		t.Fatalf("seed wallet %s: %v", clientID, err)
	}
}

// GetWalletBalance returns zero for a client without a wallet row.
func GetWalletBalance(t *testing.T, db *sql.DB, clientID string) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM wallets WHERE client_id = $1`, clientID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero
	}
	if err != nil {
		t.Fatalf("get wallet balance %s: %v", clientID, err)
	}
	return balance
}

func CountLedgerEntries(t *testing.T, db *sql.DB, clientID string, kind domain.EntryKind) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_entries WHERE client_id = $1 AND kind = $2`, clientID, kind,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for %s: %v", clientID, err)
	}
	return count
}

func CountOrderLedgerEntries(t *testing.T, db *sql.DB, orderID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE order_id = $1`, orderID).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for order %s: %v", orderID, err)
	}
	return count
}

func CountOrders(t *testing.T, db *sql.DB, clientID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM orders WHERE client_id = $1`, clientID).Scan(&count)
	if err != nil {
		t.Fatalf("count orders for %s: %v", clientID, err)
	}
	return count
}

func GetOrderStatus(t *testing.T, db *sql.DB, orderID uuid.UUID) domain.OrderStatus {
	t.Helper()

	var status domain.OrderStatus
	err := db.QueryRow(`SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		t.Fatalf("get order status %s: %v", orderID, err)
	}
	return status
}

func CountOutboxEvents(t *testing.T, db *sql.DB, aggregateID string, eventType domain.OutboxEventType) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM outbox_events WHERE aggregate_id = $1 AND event_type = $2`,
		aggregateID, eventType,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count outbox events for %s: %v", aggregateID, err)
	}
	return count
}

// AgeOrder backdates a pending order so the recovery sweep picks it up.
func AgeOrder(t *testing.T, db *sql.DB, orderID uuid.UUID, by string) {
	t.Helper()

	_, err := db.Exec(`UPDATE orders SET created_at = created_at - $2::interval WHERE id = $1`, orderID, by)
	if err != nil {
		t.Fatalf("age order %s: %v", orderID, err)
	}
}
