package redispub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"wickrSignals/internal/adapters/export"
	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
)

const (
	defaultLatestTTL = 30 * time.Minute
	pingTimeout      = 5 * time.Second
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Channel  string // Pub/sub channel, e.g. "signals:btcusdt"
	Logger   ports.Logger
}

// Publisher fans signals out over Redis pub/sub and keeps the latest one under "<channel>:latest".
// It implements ports.SignalSink.
type Publisher struct {
	client    *goredis.Client
	channel   string
	latestKey string
	logger    ports.Logger
}

// New creates a publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	if cfg.Addr == "" {
		return nil, &ports.InvalidConfigError{Field: "REDIS_ADDR", Reason: "is required"}
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w: %w", cfg.Addr, ports.ErrConnectionFailed, err)
	}

	p, err := NewWithClient(client, cfg.Channel, cfg.Logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	p.logger.Info(context.Background(), "Redis signal publisher connected", map[string]interface{}{"addr": cfg.Addr, "channel": p.channel})
	return p, nil
}

// NewWithClient wraps an existing client without checking connectivity.
func NewWithClient(client *goredis.Client, channel string, logger ports.Logger) (*Publisher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for Redis publisher")
	}
	if channel == "" {
		return nil, &ports.InvalidConfigError{Field: "REDIS_CHANNEL", Reason: "is required"}
	}
	return &Publisher{
		client:    client,
		channel:   channel,
		latestKey: channel + ":latest",
		logger:    logger,
	}, nil
}

// PublishSignal sends the signal's export record to subscribers.
func (p *Publisher) PublishSignal(ctx context.Context, sig domain.Signal) error {
	payload, err := encodeSignal(sig)
	if err != nil {
		return fmt.Errorf("PublishSignal failed: %w: %w", ports.ErrPublish, err)
	}

	_, err = p.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.Set(ctx, p.latestKey, payload, defaultLatestTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("PublishSignal failed: %w: %w", ports.ErrPublish, err)
	}
	p.logger.Debug(ctx, "Signal published to Redis", map[string]interface{}{"channel": p.channel, "signal": sig.Label})
	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

func encodeSignal(sig domain.Signal) (string, error) {
	data, err := json.Marshal(export.ToRecord(sig))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
