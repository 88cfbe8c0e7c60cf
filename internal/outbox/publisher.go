package outbox

import (
	"context"
	"log/slog"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.OutboxEvent) error
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.OutboxEvent) error {
	p.logger.InfoContext(ctx, "event published",
		"event_id", event.ID,
		"event_type", event.EventType,
		"aggregate_id", event.AggregateID,
		"payload", string(event.Payload),
	)
	return nil
}
