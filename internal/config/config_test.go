package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, GatewayModeLocal, cfg.GatewayMode)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 2*time.Minute, cfg.PendingOrderTimeout)
	assert.Equal(t, uint64(3), cfg.CompensationMaxRetries)
	assert.Equal(t, "wallet-events", cfg.KafkaTopic)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.CacheEnabled())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_KafkaBrokersList(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.True(t, cfg.CacheEnabled())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL:         "postgres://localhost/test",
			GatewayMode:         GatewayModeLocal,
			GatewayURL:          "http://provider",
			GatewayTimeout:      5 * time.Second,
			PendingOrderTimeout: time.Minute,
			SweepInterval:       time.Second,
			SweepBatchSize:      10,
			OutboxPollInterval:  time.Second,
			OutboxBatchSize:     10,
			OutboxMaxAttempts:   3,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid local", func(c *Config) {}, ""},
		{"valid http", func(c *Config) { c.GatewayMode = GatewayModeHTTP }, ""},
		{"unknown mode", func(c *Config) { c.GatewayMode = "grpc" }, "unknown GATEWAY_MODE"},
		{"http without url", func(c *Config) {
			c.GatewayMode = GatewayModeHTTP
			c.GatewayURL = " "
		}, "GATEWAY_URL is required"},
		{"pending timeout too short", func(c *Config) {
			c.PendingOrderTimeout = c.GatewayTimeout
		}, "PENDING_ORDER_TIMEOUT must exceed"},
		{"zero sweep batch", func(c *Config) { c.SweepBatchSize = 0 }, "SWEEP_INTERVAL"},
		{"zero outbox attempts", func(c *Config) { c.OutboxMaxAttempts = 0 }, "outbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
