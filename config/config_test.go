package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wickrSignals/internal/adapters/logger"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"SYMBOL", "INTERVAL", "BUFFER_SIZE", "SEED_LIMIT", "MIN_SEED_CANDLES", "RECONNECT_DELAY_SECONDS", "PORT", "LOG_LEVEL", "REDIS_CHANNEL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "1s", cfg.Interval)
	assert.Equal(t, 35, cfg.BufferSize)
	assert.Equal(t, 100, cfg.SeedLimit)
	assert.Equal(t, 35, cfg.MinSeedCandles)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "signals:btcusdt", cfg.RedisChannel)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SYMBOL", "ethusdt")
	t.Setenv("INTERVAL", "1m")
	t.Setenv("BUFFER_SIZE", "120")
	t.Setenv("MIN_SEED_CANDLES", "40")
	t.Setenv("RECONNECT_DELAY_SECONDS", "2.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_CHANNEL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, "1m", cfg.Interval)
	assert.Equal(t, 120, cfg.BufferSize)
	assert.Equal(t, 40, cfg.MinSeedCandles)
	assert.Equal(t, 2500*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "signals:ethusdt", cfg.RedisChannel)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad interval", map[string]string{"INTERVAL": "7m"}, "INTERVAL"},
		{"non-numeric buffer", map[string]string{"BUFFER_SIZE": "many"}, "invalid BUFFER_SIZE"},
		{"zero buffer", map[string]string{"BUFFER_SIZE": "0"}, "BUFFER_SIZE must be positive"},
		{"seed above buffer", map[string]string{"BUFFER_SIZE": "10", "MIN_SEED_CANDLES": "11"}, "MIN_SEED_CANDLES cannot exceed BUFFER_SIZE"},
		{"zero delay", map[string]string{"RECONNECT_DELAY_SECONDS": "0"}, "RECONNECT_DELAY_SECONDS must be positive"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
