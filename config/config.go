package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wickrSignals/internal/adapters/logger" // Import the logger package for LogLevel
)

// validIntervals lists the kline intervals supported by the exchange.
var validIntervals = map[string]bool{
	"1s": true, "1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Config holds all application configuration.
type Config struct {
	// Binance API (optional, market data is public)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Market
	Symbol   string
	Interval string

	// Stream
	BufferSize     int           // Rolling window capacity
	SeedLimit      int           // Candles fetched at startup
	MinSeedCandles int           // Minimum candles required to start
	ReconnectDelay time.Duration // Fixed wait between websocket sessions

	// Dashboard server
	Host      string
	Port      int
	StaticDir string

	// Signal document (YAML or JSON). Empty means built-in defaults.
	SignalConfigPath string

	// Optional sinks
	DBPath       string // Signal journal; empty disables it
	RedisAddr    string // Redis pub/sub; empty disables it
	RedisChannel string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// Addr returns the dashboard listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// Market
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", "BTCUSDT"))
	cfg.Interval = getEnv("INTERVAL", "1s")
	if !validIntervals[cfg.Interval] {
		errs = append(errs, fmt.Sprintf("INTERVAL %q is not a supported kline interval", cfg.Interval))
	}

	// Stream
	cfg.BufferSize, err = getEnvAsIntRequired("BUFFER_SIZE", 35)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BUFFER_SIZE: %v", err))
	} else if cfg.BufferSize <= 0 {
		errs = append(errs, "BUFFER_SIZE must be positive")
	}

	cfg.SeedLimit, err = getEnvAsIntRequired("SEED_LIMIT", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SEED_LIMIT: %v", err))
	} else if cfg.SeedLimit <= 0 {
		errs = append(errs, "SEED_LIMIT must be positive")
	}

	cfg.MinSeedCandles, err = getEnvAsIntRequired("MIN_SEED_CANDLES", 35)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_SEED_CANDLES: %v", err))
	} else if cfg.MinSeedCandles < 0 {
		errs = append(errs, "MIN_SEED_CANDLES cannot be negative")
	} else if cfg.MinSeedCandles > cfg.BufferSize && cfg.BufferSize > 0 {
		errs = append(errs, "MIN_SEED_CANDLES cannot exceed BUFFER_SIZE")
	}

	reconnectDelaySeconds, err := getEnvAsFloatRequired("RECONNECT_DELAY_SECONDS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RECONNECT_DELAY_SECONDS: %v", err))
	} else if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds * float64(time.Second))

	// Dashboard server
	cfg.Host = getEnv("HOST", "0.0.0.0")
	cfg.Port, err = getEnvAsIntRequired("PORT", 5000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PORT: %v", err))
	} else if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}
	cfg.StaticDir = getEnv("STATIC_DIR", "./web")

	cfg.SignalConfigPath = getEnv("SIGNAL_CONFIG_PATH", "config.json")

	// Optional sinks
	cfg.DBPath = getEnv("DB_PATH", "")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisChannel = getEnv("REDIS_CHANNEL", "signals:"+strings.ToLower(cfg.Symbol))

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
