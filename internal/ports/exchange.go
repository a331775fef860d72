package ports

import (
	"context"
	"time"

	"wickrSignals/internal/domain"
)

// MarketDataClient defines the market data operations the pipeline needs from an exchange.
type MarketDataClient interface {
	// GetKlines retrieves the most recent closed candles, oldest first.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)

	// StreamKlines opens a single WebSocket session for kline updates.
	// doneCh is closed when the session ends for any reason; closing stopCh ends it early.
	// Reconnection is the caller's responsibility.
	StreamKlines(ctx context.Context, symbol, interval string, handler func(event domain.KlineEvent), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}

// ServerClock is implemented by clients that can report the exchange's clock.
type ServerClock interface {
	GetServerTime(ctx context.Context) (time.Time, error)
}
