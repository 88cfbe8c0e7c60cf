package gateway

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

const refDigits = 12

// LocalGateway fulfills every order in-process. It is the default when no
// remote provider is configured.
type LocalGateway struct{}

func NewLocalGateway() *LocalGateway {
	return &LocalGateway{}
}

func (g *LocalGateway) Fulfill(ctx context.Context, orderID uuid.UUID, clientID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("Fulfill: %w: %w", domain.ErrFulfillmentFailed, err)
	}

	digits, err := randomDigits(refDigits)
	if err != nil {
		return "", fmt.Errorf("Fulfill: %w: %w", domain.ErrFulfillmentFailed, err)
	}
	return "FUL-" + digits, nil
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("randomDigits: %w", err)
		}
		digits[i] = '0' + byte(d.Int64())
	}
	return string(digits), nil
}
