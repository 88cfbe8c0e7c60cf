package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
)

const (
	GatewayModeLocal = "local"
	GatewayModeHTTP  = "http"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	GatewayMode    string        `env:"GATEWAY_MODE" envDefault:"local"`
	GatewayURL     string        `env:"GATEWAY_URL" envDefault:"http://mock-provider:8081"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"5s"`

	PendingOrderTimeout    time.Duration `env:"PENDING_ORDER_TIMEOUT" envDefault:"2m"`
	SweepInterval          time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	SweepBatchSize         int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	CompensationMaxRetries uint64        `env:"COMPENSATION_MAX_RETRIES" envDefault:"3"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	BalanceCacheTTL time.Duration `env:"BALANCE_CACHE_TTL" envDefault:"30s"`

	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic         string        `env:"KAFKA_TOPIC" envDefault:"wallet-events"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.GatewayMode {
	case GatewayModeLocal:
	case GatewayModeHTTP:
		if strings.TrimSpace(c.GatewayURL) == "" {
			errs = append(errs, errors.New("GATEWAY_URL is required when GATEWAY_MODE=http"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GATEWAY_MODE %q", c.GatewayMode))
	}

	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	// a pending order younger than the gateway timeout may still be in flight
	if c.PendingOrderTimeout <= c.GatewayTimeout {
		errs = append(errs, errors.New("PENDING_ORDER_TIMEOUT must exceed GATEWAY_TIMEOUT"))
	}
	if c.SweepInterval <= 0 || c.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL and SWEEP_BATCH_SIZE must be positive"))
	}
	if c.OutboxPollInterval <= 0 || c.OutboxBatchSize <= 0 || c.OutboxMaxAttempts <= 0 {
		errs = append(errs, errors.New("outbox poll interval, batch size and max attempts must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
