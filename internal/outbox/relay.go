package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/metrics"
	"github.com/josh-kwaku/wallet-orders/internal/repository"
)

type outboxRepo interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, q repository.DBTX, id uuid.UUID) error
	RecordFailure(ctx context.Context, q repository.DBTX, id uuid.UUID, maxAttempts int) error
}

type RelayConfig struct {
	Interval       time.Duration
	BatchSize      int
	MaxAttempts    int
	PublishTimeout time.Duration
	// Lease is how long a claimed batch stays reserved. It defaults to the
	// worst case for publishing a whole batch.
	Lease time.Duration
}

// Relay moves committed outbox rows to the event bus. Delivery is
// at-least-once: a crash after publishing leaves the events in flight until
// their lease runs out, and they are published again.
type Relay struct {
	events    outboxRepo
	publisher Publisher
	db        *sql.DB
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       RelayConfig
}

func NewRelay(
	events outboxRepo,
	publisher Publisher,
	db *sql.DB,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg RelayConfig,
) *Relay {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Duration(max(cfg.BatchSize, 1))*cfg.PublishTimeout + cfg.PublishTimeout
	}
	return &Relay{
		events:    events,
		publisher: publisher,
		db:        db,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
	}
}

func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("outbox relay started", "interval", r.cfg.Interval, "batch_size", r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.poll(ctx); err != nil {
				r.logger.Error("outbox poll failed", "error", err)
			}
		}
	}
}

// poll publishes one batch and returns how many events were dispatched.
// Claiming and settling are separate short statements; no row is locked
// while the publisher is called.
func (r *Relay) poll(ctx context.Context) (int, error) {
	events, err := r.events.ClaimPending(ctx, r.cfg.BatchSize, r.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("poll: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	dispatched := 0
	for _, event := range events {
		if err := r.publish(ctx, event); err != nil {
			r.logger.Warn("outbox publish failed",
				"event_id", event.ID,
				"event_type", event.EventType,
				"attempt", event.Attempts+1,
				"error", err,
			)
			r.metrics.OutboxPublish("error")
			if event.Attempts+1 >= r.cfg.MaxAttempts {
				r.logger.Error("outbox event gave up", "event_id", event.ID, "alert", true)
				r.metrics.OutboxPublish("failed")
			}
			if err := r.settle(r.events.RecordFailure(ctx, r.db, event.ID, r.cfg.MaxAttempts), event); err != nil {
				return dispatched, fmt.Errorf("poll: %w", err)
			}
			continue
		}

		if err := r.settle(r.events.MarkDispatched(ctx, r.db, event.ID), event); err != nil {
			return dispatched, fmt.Errorf("poll: %w", err)
		}
		r.metrics.OutboxPublish("dispatched")
		dispatched++
	}

	r.logger.Debug("outbox batch relayed", "claimed", len(events), "dispatched", dispatched)
	return dispatched, nil
}

// settle tolerates a lost lease: another relay owns the event now.
func (r *Relay) settle(err error, event domain.OutboxEvent) error {
	if errors.Is(err, domain.ErrNotFound) {
		r.logger.Warn("outbox lease lost", "event_id", event.ID)
		return nil
	}
	return err
}

func (r *Relay) publish(ctx context.Context, event domain.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()
	return r.publisher.Publish(ctx, event)
}
