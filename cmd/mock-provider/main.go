package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/josh-kwaku/wallet-orders/internal/gateway"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
)

type providerConfig struct {
	Port        int           `env:"PORT" envDefault:"8081"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string        `env:"APP_ENV" envDefault:"development"`
	FailureRate float64       `env:"FAILURE_RATE" envDefault:"0"`
	Latency     time.Duration `env:"LATENCY" envDefault:"0s"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := env.ParseAs[providerConfig]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("mock-provider", cfg.LogLevel, cfg.AppEnv)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /fulfill", fulfillHandler(cfg))

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("mock provider started", "addr", addr, "failure_rate", cfg.FailureRate, "latency", cfg.Latency)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func fulfillHandler(cfg providerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.FulfillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fulfillment request"})
			return
		}

		if cfg.Latency > 0 {
			select {
			case <-time.After(cfg.Latency):
			case <-r.Context().Done():
				return
			}
		}

		if rand.Float64() < cfg.FailureRate {
			slog.Info("fulfillment rejected", "order_id", req.OrderID, "client_id", req.ClientID)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream fulfillment failed"})
			return
		}

		ref := "FUL-" + uuid.NewString()[:8]
		slog.Info("fulfillment accepted", "order_id", req.OrderID, "client_id", req.ClientID, "fulfillment_ref", ref)
		writeJSON(w, http.StatusOK, gateway.FulfillResponse{FulfillmentRef: ref})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
