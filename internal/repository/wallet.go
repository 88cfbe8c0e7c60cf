package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

const walletColumns = `client_id, balance, version, created_at, updated_at`

const upsertWalletSQL = `INSERT INTO wallets (client_id, balance, version, created_at, updated_at)
	VALUES ($1, $2, 1, now(), now())
	ON CONFLICT (client_id) DO UPDATE
	SET balance = wallets.balance + EXCLUDED.balance,
		version = wallets.version + 1,
		updated_at = now()`

// credits stop at domain.MaxBalance; the conflict update then matches no row
const creditSQL = upsertWalletSQL + `
	WHERE wallets.balance + EXCLUDED.balance <= $3
	RETURNING ` + walletColumns

const reverseSQL = upsertWalletSQL + `
	RETURNING ` + walletColumns

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Credit increments the balance, creating the wallet at zero first if absent.
// A credit that would take the balance past domain.MaxBalance is rejected
// with domain.ErrBalanceLimitExceeded.
func (r *WalletRepository) Credit(ctx context.Context, q DBTX, clientID string, amount decimal.Decimal) (*domain.Wallet, error) {
	w, err := scanWallet(q.QueryRowContext(ctx, creditSQL, clientID, amount, domain.MaxBalance))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Credit: %w", domain.ErrBalanceLimitExceeded)
		}
		return nil, storageErr("Credit", err)
	}
	return w, nil
}

// Reverse credits back a previously debited amount. It is only used by
// order compensation. It upserts so it can never fail on a missing row, and
// it ignores domain.MaxBalance so returning reserved funds is never refused.
func (r *WalletRepository) Reverse(ctx context.Context, q DBTX, clientID string, amount decimal.Decimal) (*domain.Wallet, error) {
	w, err := scanWallet(q.QueryRowContext(ctx, reverseSQL, clientID, amount))
	if err != nil {
		return nil, storageErr("Reverse", err)
	}
	return w, nil
}

// Debit decrements the balance in a single guarded statement. The row lock
// taken by UPDATE makes concurrent debits on one wallet linearizable: the
// balance guard is re-evaluated against the latest committed row.
func (r *WalletRepository) Debit(ctx context.Context, q DBTX, clientID string, amount decimal.Decimal) (*domain.Wallet, error) {
	row := q.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance - $2, version = version + 1, updated_at = now()
		WHERE client_id = $1 AND balance >= $2
		RETURNING `+walletColumns,
		clientID, amount,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// a missing wallet is a zero balance
			return nil, fmt.Errorf("Debit: %w", domain.ErrInsufficientFunds)
		}
		return nil, storageErr("Debit", err)
	}
	return w, nil
}

// GetByClientID never reports a missing wallet; unknown clients get a zero
// balance at version 0.
func (r *WalletRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE client_id = $1`, clientID,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.Wallet{ClientID: clientID, Balance: decimal.Zero}, nil
		}
		return nil, storageErr("GetByClientID", err)
	}
	return w, nil
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(&w.ClientID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
