package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
)

const sweepReason = "abandoned: pending past timeout"

// Sweeper compensates orders left pending by a crash or an exhausted
// compensation. Only orders older than PendingOrderTimeout are touched, which
// is longer than any in-flight gateway call.
type Sweeper struct {
	svc       *Service
	logger    *slog.Logger
	interval  time.Duration
	olderThan time.Duration
	batchSize int
}

func NewSweeper(svc *Service, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		svc:       svc,
		logger:    logger,
		interval:  svc.config.SweepInterval,
		olderThan: svc.config.PendingOrderTimeout,
		batchSize: svc.config.SweepBatchSize,
	}
}

func (sw *Sweeper) Start(ctx context.Context) {
	sw.logger.Info("recovery sweeper started", "interval", sw.interval, "older_than", sw.olderThan)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("recovery sweeper stopped")
			return
		case <-ticker.C:
			if _, err := sw.sweep(ctx); err != nil {
				sw.logger.Error("recovery sweep failed", "error", err)
			}
		}
	}
}

// sweep compensates one batch of stale orders and returns how many it failed.
func (sw *Sweeper) sweep(ctx context.Context) (int, error) {
	stale, err := sw.svc.orders.ListStalePending(ctx, time.Now().UTC().Add(-sw.olderThan), sw.batchSize)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	compensated := 0
	for _, o := range stale {
		octx := logging.WithLogger(ctx, sw.logger.With("order_id", o.ID, "client_id", o.ClientID))
		res := reservation{orderID: o.ID, clientID: o.ClientID, amount: o.Amount}

		if _, err := sw.svc.compensate(octx, res, sweepReason); err != nil {
			if !errors.Is(err, domain.ErrInvalidTransition) {
				sw.logger.Error("stale order compensation failed", "order_id", o.ID, "error", err)
			}
			continue
		}
		compensated++
	}

	if len(stale) > 0 {
		sw.logger.Info("recovery sweep complete", "stale", len(stale), "compensated", compensated)
	}
	return compensated, nil
}
