package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
	"github.com/josh-kwaku/wallet-orders/internal/outbox"
)

// reservation is a debit awaiting either commit or reversal.
type reservation struct {
	orderID  uuid.UUID
	clientID string
	amount   decimal.Decimal
}

// compensate fails the pending order and returns the reserved funds. It
// retries storage failures with backoff. When the order already left
// pending the reversal is skipped and domain.ErrInvalidTransition is
// returned. When retries run out the order stays pending for the recovery
// sweep.
func (s *Service) compensate(ctx context.Context, res reservation, reason string) (*domain.Order, error) {
	log := logging.FromContext(ctx)

	var failed *domain.Order
	op := func() error {
		o, err := s.compensateOnce(ctx, res, reason)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return backoff.Permanent(err)
			}
			return err
		}
		failed = o
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.config.CompensationMaxRetries), ctx)
	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		log.Warn("compensation attempt failed, retrying", "error", err, "retry_in", next)
	})

	switch {
	case err == nil:
		s.metrics.Compensation("success")
		log.Info("order compensated", "amount", res.amount.StringFixed(domain.AmountScale), "reason", reason)
		return failed, nil
	case errors.Is(err, domain.ErrInvalidTransition):
		s.metrics.Compensation("skipped")
		log.Info("order already finalized, reversal skipped", "error", err)
		return nil, fmt.Errorf("compensate: %w", err)
	default:
		s.metrics.Compensation("exhausted")
		logging.Alert(ctx, "compensation failed, order left for recovery sweep",
			"amount", res.amount.StringFixed(domain.AmountScale),
			"reason", reason,
			"error", err,
		)
		return nil, fmt.Errorf("compensate: %w", err)
	}
}

// compensateOnce runs a single compensation transaction. MarkFailed goes
// first and guards the reversal, so a debit is returned at most once. With
// no order row, the reversal event's unique id is the guard instead.
func (s *Service) compensateOnce(ctx context.Context, res reservation, reason string) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("compensateOnce: begin tx: %w: %w", domain.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	failed, err := s.orders.MarkFailed(ctx, tx, res.orderID, reason)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		// the order row was never written; only the debit needs undoing
		failed = nil
	default:
		return nil, fmt.Errorf("compensateOnce: %w", err)
	}

	w, err := s.wallets.Reverse(ctx, tx, res.clientID, res.amount)
	if err != nil {
		return nil, fmt.Errorf("compensateOnce: %w", err)
	}

	var event *domain.OutboxEvent
	if failed != nil {
		event, err = outbox.OrderEvent(failed)
	} else {
		event, err = outbox.WalletEvent(domain.OutboxEventTypeWalletReversed, res.amount, w)
	}
	if err != nil {
		return nil, fmt.Errorf("compensateOnce: %w", err)
	}
	if failed == nil {
		// Without an order row nothing else guards the reversal. Keying the
		// event by order id makes a repeat fail on insert and roll back,
		// e.g. after a commit that succeeded but reported an error.
		event.ID = res.orderID
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("compensateOnce: outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("compensateOnce: commit: %w: %w", domain.ErrStorageUnavailable, err)
	}

	s.refreshCache(ctx, w)
	return failed, nil
}
