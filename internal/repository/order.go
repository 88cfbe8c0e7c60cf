package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

const orderColumns = `id, client_id, amount, status, fulfillment_ref, failure_reason,
	created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) CreatePending(ctx context.Context, q DBTX, order *domain.Order) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO orders (id, client_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.ClientID, order.Amount, domain.OrderStatusPending,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return storageErr("CreatePending", err)
	}
	return nil
}

func (r *OrderRepository) MarkFulfilled(ctx context.Context, q DBTX, id uuid.UUID, fulfillmentRef string) (*domain.Order, error) {
	row := q.QueryRowContext(ctx,
		`UPDATE orders SET status = $2, fulfillment_ref = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns,
		id, domain.OrderStatusFulfilled, fulfillmentRef, domain.OrderStatusPending,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionMiss(ctx, q, "MarkFulfilled", id)
		}
		return nil, storageErr("MarkFulfilled", err)
	}
	return o, nil
}

func (r *OrderRepository) MarkFailed(ctx context.Context, q DBTX, id uuid.UUID, reason string) (*domain.Order, error) {
	row := q.QueryRowContext(ctx,
		`UPDATE orders SET status = $2, failure_reason = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns,
		id, domain.OrderStatusFailed, reason, domain.OrderStatusPending,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionMiss(ctx, q, "MarkFailed", id)
		}
		return nil, storageErr("MarkFailed", err)
	}
	return o, nil
}

// transitionMiss tells a missing order apart from one that already left pending.
func (r *OrderRepository) transitionMiss(ctx context.Context, q DBTX, op string, id uuid.UUID) error {
	var status domain.OrderStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return storageErr(op, err)
	}
	return fmt.Errorf("%s: order is %s: %w", op, status, domain.ErrInvalidTransition)
}

// GetForClient is scoped to the owning client; another client's order is
// reported as not found.
func (r *OrderRepository) GetForClient(ctx context.Context, id uuid.UUID, clientID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND client_id = $2`, id, clientID,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForClient: %w", domain.ErrNotFound)
		}
		return nil, storageErr("GetForClient", err)
	}
	return o, nil
}

func (r *OrderRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at LIMIT $3`,
		domain.OrderStatusPending, olderThan, limit,
	)
	if err != nil {
		return nil, storageErr("ListStalePending", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, storageErr("ListStalePending: scan", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("ListStalePending: rows", err)
	}
	return orders, nil
}

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	err := s.Scan(
		&o.ID, &o.ClientID, &o.Amount, &o.Status, &o.FulfillmentRef, &o.FailureReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
