package repository

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

type LedgerRepository struct{}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

// Append inserts an entry. The table rejects UPDATE and DELETE, so entries
// are immutable once committed.
func (r *LedgerRepository) Append(ctx context.Context, q DBTX, entry *domain.LedgerEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, client_id, kind, amount, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.ClientID, entry.Kind, entry.Amount, entry.OrderID, entry.CreatedAt,
	)
	if err != nil {
		if entry.OrderID != nil && isUniqueViolation(err) {
			return fmt.Errorf("Append: order %s already ledgered: %w", *entry.OrderID, domain.ErrInvalidTransition)
		}
		return storageErr("Append", err)
	}
	return nil
}
