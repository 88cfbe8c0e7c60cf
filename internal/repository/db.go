package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

const (
	pgUniqueViolation        = "23505"
	pgNumericValueOutOfRange = "22003"
)

type scanner interface {
	Scan(dest ...any) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every repository call
// either runs as its own statement or joins the caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// storageErr classifies a driver error. Numeric overflow is a limit breach
// caused by the input, not an unavailable store.
func storageErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgNumericValueOutOfRange {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrBalanceLimitExceeded, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
