package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
)

type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type FulfillRequest struct {
	OrderID  string `json:"order_id"`
	ClientID string `json:"client_id"`
}

type FulfillResponse struct {
	FulfillmentRef string `json:"fulfillment_ref"`
}

func (g *HTTPGateway) Fulfill(ctx context.Context, orderID uuid.UUID, clientID string) (string, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(FulfillRequest{OrderID: orderID.String(), ClientID: clientID})
	if err != nil {
		return "", fulfillErr("marshal", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/fulfill", bytes.NewReader(body))
	if err != nil {
		return "", fulfillErr("build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	log.Info("gateway request sent", "gateway", "http", "order_id", orderID)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fulfillErr("send", err)
	}
	defer resp.Body.Close()

	log.Info("gateway response received",
		"order_id", orderID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("Fulfill: unexpected status %d: %s: %w",
			resp.StatusCode, string(respBody), domain.ErrFulfillmentFailed)
	}

	var out FulfillResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", fulfillErr("decode", err)
	}
	if strings.TrimSpace(out.FulfillmentRef) == "" {
		return "", fmt.Errorf("Fulfill: empty fulfillment_ref: %w", domain.ErrFulfillmentFailed)
	}

	return out.FulfillmentRef, nil
}

func fulfillErr(step string, err error) error {
	return fmt.Errorf("Fulfill: %s: %w: %w", step, domain.ErrFulfillmentFailed, err)
}
