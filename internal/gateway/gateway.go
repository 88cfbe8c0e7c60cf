package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-orders/internal/config"
)

// Gateway performs the external fulfillment step for an order. Every
// non-success outcome is reported as an error wrapping
// domain.ErrFulfillmentFailed.
type Gateway interface {
	Fulfill(ctx context.Context, orderID uuid.UUID, clientID string) (string, error)
}

// New picks the variant configured by GATEWAY_MODE.
func New(cfg *config.Config) (Gateway, error) {
	switch cfg.GatewayMode {
	case config.GatewayModeLocal:
		return NewLocalGateway(), nil
	case config.GatewayModeHTTP:
		return NewHTTPGateway(cfg.GatewayURL, cfg.GatewayTimeout), nil
	default:
		return nil, fmt.Errorf("gateway.New: unknown mode %q", cfg.GatewayMode)
	}
}
