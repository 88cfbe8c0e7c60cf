package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

const outboxEventColumns = `id, aggregate_id, event_type, payload, status,
	attempts, last_attempt, created_at`

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create is called inside the transaction that produced the state change.
// Event ids are unique, so a caller that derives the id from the change
// itself gets domain.ErrInvalidTransition when the change was already
// recorded.
func (r *OutboxRepository) Create(ctx context.Context, q DBTX, event *domain.OutboxEvent) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO outbox_events (
			id, aggregate_id, event_type, payload, status, attempts, last_attempt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.AggregateID, event.EventType, string(event.Payload),
		event.Status, event.Attempts, event.LastAttempt, event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: event %s already recorded: %w", event.ID, domain.ErrInvalidTransition)
		}
		return storageErr("Create", err)
	}
	return nil
}

// ClaimPending leases up to limit publishable events to the caller in a
// single statement, so no lock is held while they are published. An
// in-flight event whose lease has run out is claimable again.
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEvent, error) {
	// SKIP LOCKED lets several relays claim concurrently without overlap
	rows, err := r.db.QueryContext(ctx,
		`UPDATE outbox_events SET status = $1, last_attempt = now()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = $2 OR (status = $1 AND last_attempt < now() - make_interval(secs => $3))
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+outboxEventColumns,
		domain.OutboxEventStatusInFlight, domain.OutboxEventStatusPending, lease.Seconds(), limit,
	)
	if err != nil {
		return nil, storageErr("ClaimPending", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		e, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, storageErr("ClaimPending: scan", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("ClaimPending: rows", err)
	}
	return events, nil
}

// MarkDispatched settles a leased event. It reports domain.ErrNotFound when
// the lease was lost to another relay.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, q DBTX, id uuid.UUID) error {
	res, err := q.ExecContext(ctx,
		`UPDATE outbox_events SET status = $2, attempts = attempts + 1, last_attempt = now()
		WHERE id = $1 AND status = $3`,
		id, domain.OutboxEventStatusDispatched, domain.OutboxEventStatusInFlight,
	)
	if err != nil {
		return storageErr("MarkDispatched", err)
	}
	return checkAffected("MarkDispatched", res)
}

// RecordFailure bumps the attempt counter and releases the lease. The event
// goes back to pending, or is parked as failed once it reaches maxAttempts.
func (r *OutboxRepository) RecordFailure(ctx context.Context, q DBTX, id uuid.UUID, maxAttempts int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE outbox_events
		SET attempts = attempts + 1,
			last_attempt = now(),
			status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE $4 END
		WHERE id = $1 AND status = $5`,
		id, maxAttempts, domain.OutboxEventStatusFailed,
		domain.OutboxEventStatusPending, domain.OutboxEventStatusInFlight,
	)
	if err != nil {
		return storageErr("RecordFailure", err)
	}
	return checkAffected("RecordFailure", res)
}

func (r *OutboxRepository) CountByStatus(ctx context.Context, status domain.OutboxEventStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM outbox_events WHERE status = $1`, status,
	).Scan(&n)
	if err != nil {
		return 0, storageErr("CountByStatus", err)
	}
	return n, nil
}

func checkAffected(op string, res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return storageErr(op+": rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func scanOutboxEvent(s scanner) (*domain.OutboxEvent, error) {
	var e domain.OutboxEvent
	var payload []byte
	err := s.Scan(
		&e.ID, &e.AggregateID, &e.EventType, &payload,
		&e.Status, &e.Attempts, &e.LastAttempt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}
