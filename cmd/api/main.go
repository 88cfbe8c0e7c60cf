package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/wallet-orders/internal/cache"
	"github.com/josh-kwaku/wallet-orders/internal/config"
	"github.com/josh-kwaku/wallet-orders/internal/events/kafka"
	"github.com/josh-kwaku/wallet-orders/internal/gateway"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
	"github.com/josh-kwaku/wallet-orders/internal/metrics"
	"github.com/josh-kwaku/wallet-orders/internal/outbox"
	"github.com/josh-kwaku/wallet-orders/internal/repository"
	"github.com/josh-kwaku/wallet-orders/internal/service/order"
	"github.com/josh-kwaku/wallet-orders/internal/service/wallet"
)

const dbConnectAttempts = 30

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("wallet-orders-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var (
		redisClient  *redis.Client
		balanceCache *cache.BalanceCache
	)
	if cfg.CacheEnabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("balance cache disabled: redis unreachable", "addr", cfg.RedisAddr, "error", err)
		} else {
			balanceCache = cache.NewBalanceCache(redisClient, cfg.BalanceCacheTTL)
		}
	}

	var (
		publisher   outbox.Publisher
		kafkaWriter *kafka.Publisher
	)
	if cfg.KafkaEnabled() {
		kafkaWriter = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = kafkaWriter
	} else {
		publisher = outbox.NewLogPublisher(logger.With("component", "outbox"))
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		slog.Error("failed to build fulfillment gateway", "error", err)
		os.Exit(1)
	}

	wallets := repository.NewWalletRepository(db)
	orders := repository.NewOrderRepository(db)
	ledger := repository.NewLedgerRepository()
	events := repository.NewOutboxRepository(db)

	walletSvc := wallet.NewService(wallets, ledger, events, balanceCache, m, db)
	orderSvc := order.NewService(wallets, orders, ledger, events, gw, balanceCache, m, db, cfg)

	sweeper := order.NewSweeper(orderSvc, logger.With("component", "sweeper"))
	relay := outbox.NewRelay(events, publisher, db, m, logger.With("component", "outbox_relay"), outbox.RelayConfig{
		Interval:    cfg.OutboxPollInterval,
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(routerDeps{db: db, redis: redisClient, registry: reg, metrics: m, wallets: walletSvc, orders: orderSvc}),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		sweeper.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		relay.Start(workerCtx)
	}()

	go func() {
		slog.Info("server started", "addr", addr, "gateway_mode", cfg.GatewayMode,
			"cache", balanceCache != nil, "kafka", cfg.KafkaEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	stopWorkers()
	workers.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			slog.Warn("failed to close kafka writer", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
	slog.Info("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	attempt := 0
	op := func() (*sql.DB, error) {
		attempt++
		return repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
	}
	notify := func(err error, _ time.Duration) {
		slog.Info("waiting for database", "attempt", attempt, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), dbConnectAttempts-1), ctx)
	db, err := backoff.RetryNotifyWithData(op, b, notify)
	if err != nil {
		return nil, fmt.Errorf("connectDB: gave up after %d attempts: %w", attempt, err)
	}
	return db, nil
}
