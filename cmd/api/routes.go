package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/wallet-orders/internal/handler"
	"github.com/josh-kwaku/wallet-orders/internal/metrics"
	"github.com/josh-kwaku/wallet-orders/internal/middleware"
	"github.com/josh-kwaku/wallet-orders/internal/service/order"
	"github.com/josh-kwaku/wallet-orders/internal/service/wallet"
)

type routerDeps struct {
	db       *sql.DB
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	wallets  *wallet.Service
	orders   *order.Service
}

func newRouter(d routerDeps) http.Handler {
	checks := map[string]handler.Pinger{}
	if d.redis != nil {
		checks["cache"] = handler.PingFunc(func(ctx context.Context) error {
			return d.redis.Ping(ctx).Err()
		})
	}

	health := handler.NewHealthHandler(d.db, checks)
	walletH := handler.NewWalletHandler(d.wallets)
	orderH := handler.NewOrderHandler(d.orders)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{Registry: d.registry}))

	// operator surface; callers supply client_id in the body
	mux.HandleFunc("POST /admin/wallet/credit", walletH.Credit)
	mux.HandleFunc("POST /admin/wallet/debit", walletH.Debit)

	mux.Handle("GET /wallet/balance", middleware.ClientID(http.HandlerFunc(walletH.Balance)))
	mux.Handle("POST /orders", middleware.ClientID(http.HandlerFunc(orderH.Create)))
	mux.Handle("GET /orders/{id}", middleware.ClientID(http.HandlerFunc(orderH.Get)))

	// Metrics wraps the mux directly so it sees the matched r.Pattern.
	return middleware.Chain(mux,
		middleware.Tracing,
		middleware.Logging,
		middleware.Recovery,
		middleware.Metrics(d.metrics),
	)
}
