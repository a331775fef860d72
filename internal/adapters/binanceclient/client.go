package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	// maxKlinesPerRequest is the REST page size limit for spot klines.
	maxKlinesPerRequest = 1000
)

// Client implements ports.MarketDataClient using the go-binance spot API.
type Client struct {
	spotClient    *binance.Client
	logger        ports.Logger
	onDecodeError func(err error)
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	// OnDecodeError is called for every websocket message that cannot be translated.
	OnDecodeError func(err error)
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "No API keys configured, using public market data endpoints only")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	if cfg.UseTestnet {
		// The websocket endpoints are selected by a package-level flag.
		binance.UseTestnet = true
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{
		spotClient:    client,
		logger:        cfg.Logger,
		onDecodeError: cfg.OnDecodeError,
	}, nil
}

// mapAPIError classifies Binance API error codes into ports errors.
func mapAPIError(code int64) error {
	switch code {
	case -1003: // Too many requests
		return ports.ErrRateLimited
	case -1021: // Timestamp for this request is outside of the recvWindow
		return ports.ErrTimeout
	case -1022: // Signature for this request is not valid
		return ports.ErrAuthenticationFailed
	case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1112, -1114, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130: // Parameter/Request format errors
		return ports.ErrInvalidRequest
	case -2014, -2015: // API-key format invalid / permissions
		return ports.ErrInvalidAPIKeys
	case -1000, -1001, -1016: // Unknown / disconnected / service shutting down
		return ports.ErrExchangeUnavailable
	default:
		return ports.ErrUnknown
	}
}

// classifyError translates an error into a ports sentinel without logging.
func classifyError(err error) error {
	var apiErr *common.APIError
	switch {
	case errors.As(err, &apiErr):
		return mapAPIError(apiErr.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		return ports.ErrContextCanceled
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "websocket: close"):
		return ports.ErrConnectionFailed
	default:
		return ports.ErrUnknown
	}
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
	}

	mapped := classifyError(err)
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	if mapped == ports.ErrContextCanceled {
		return fmt.Errorf("%s operation canceled: %w: %w", operation, mapped, err)
	}
	return fmt.Errorf("%s failed: %w: %w", operation, mapped, err)
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.spotClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetServerTime retrieves the current server time from the exchange.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	op := "GetServerTime"
	serverTimeMs, err := c.spotClient.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, c.handleError(ctx, err, op)
	}
	return time.UnixMilli(serverTimeMs), nil
}

// GetKlines retrieves the latest limit klines, oldest first.
// Requests above the page size are fetched backwards in pages.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	op := "GetKlines"
	if limit <= 0 {
		return nil, fmt.Errorf("%s failed: %w: limit must be positive", op, ports.ErrInvalidRequest)
	}

	var pages [][]domain.Candle
	remaining := limit
	var endTime int64

	for remaining > 0 {
		pageSize := remaining
		if pageSize > maxKlinesPerRequest {
			pageSize = maxKlinesPerRequest
		}

		svc := c.spotClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(pageSize)
		if endTime > 0 {
			svc = svc.EndTime(endTime)
		}
		klines, err := svc.Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}

		page := make([]domain.Candle, 0, len(klines))
		for _, bk := range klines {
			candle, err := translateBinanceKline(bk)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
			}
			page = append(page, candle)
		}
		pages = append(pages, page)

		remaining -= len(klines)
		endTime = klines[0].OpenTime - 1
		if len(klines) < pageSize {
			break
		}
	}

	out := make([]domain.Candle, 0, limit-remaining)
	for i := len(pages) - 1; i >= 0; i-- {
		out = append(out, pages[i]...)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "interval": interval, "count": len(out)})
	return out, nil
}

// StreamKlines opens one WebSocket session for kline updates.
// Malformed messages are skipped and reported through OnDecodeError.
func (c *Client) StreamKlines(ctx context.Context, symbol, interval string, handler func(event domain.KlineEvent), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error) {
	op := "StreamKlines"

	binanceHandler := func(event *binance.WsKlineEvent) {
		ev, err := translateWsKline(event)
		if err != nil {
			decodeErr := fmt.Errorf("%s: %w: %w", op, ports.ErrDecodeFailed, err)
			c.logger.Warn(ctx, op+": Skipping malformed kline event", map[string]interface{}{"error": err.Error()})
			if c.onDecodeError != nil {
				c.onDecodeError(decodeErr)
			}
			return
		}
		handler(ev)
	}

	binanceErrHandler := func(err error) {
		translated := fmt.Errorf("%s WebSocket failed: %w: %w", op, classifyError(err), err)
		c.logger.Warn(ctx, op+": WebSocket error reported", map[string]interface{}{"error": err.Error()})
		errHandler(translated)
	}

	c.logger.Info(ctx, op+": Opening WebSocket session", map[string]interface{}{"symbol": symbol, "interval": interval})
	doneCh, stopCh, err = binance.WsKlineServe(symbol, interval, binanceHandler, binanceErrHandler)
	if err != nil {
		return nil, nil, c.handleError(ctx, err, op)
	}
	return doneCh, stopCh, nil
}

// --- Translation Helpers ---

type priceFields struct {
	open, high, low, close, volume string
}

func parsePrices(p priceFields) (open, high, low, cls, vol float64, err error) {
	if open, err = strconv.ParseFloat(p.open, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing open price '%s': %w", p.open, err)
	}
	if high, err = strconv.ParseFloat(p.high, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing high price '%s': %w", p.high, err)
	}
	if low, err = strconv.ParseFloat(p.low, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing low price '%s': %w", p.low, err)
	}
	if cls, err = strconv.ParseFloat(p.close, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing close price '%s': %w", p.close, err)
	}
	if vol, err = strconv.ParseFloat(p.volume, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing volume '%s': %w", p.volume, err)
	}
	return open, high, low, cls, vol, nil
}

func translateWsKline(event *binance.WsKlineEvent) (domain.KlineEvent, error) {
	if event == nil {
		return domain.KlineEvent{}, errors.New("received nil kline event")
	}
	k := event.Kline
	open, high, low, cls, vol, err := parsePrices(priceFields{k.Open, k.High, k.Low, k.Close, k.Volume})
	if err != nil {
		return domain.KlineEvent{}, err
	}

	return domain.KlineEvent{
		EventTime: time.UnixMilli(event.Time).UTC(),
		Symbol:    event.Symbol,
		Interval:  k.Interval,
		Candle: domain.Candle{
			OpenTime:    time.UnixMilli(k.StartTime).UTC(),
			CloseTime:   time.UnixMilli(k.EndTime).UTC(),
			Open:        open,
			High:        high,
			Low:         low,
			Close:       cls,
			Volume:      vol,
			TradesCount: k.TradeNum,
		},
		IsFinal: k.IsFinal,
	}, nil
}

func translateBinanceKline(bk *binance.Kline) (domain.Candle, error) {
	if bk == nil {
		return domain.Candle{}, errors.New("received nil historical kline")
	}
	open, high, low, cls, vol, err := parsePrices(priceFields{bk.Open, bk.High, bk.Low, bk.Close, bk.Volume})
	if err != nil {
		return domain.Candle{}, err
	}

	return domain.Candle{
		OpenTime:    time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime:   time.UnixMilli(bk.CloseTime).UTC(),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       cls,
		Volume:      vol,
		TradesCount: bk.TradeNum,
	}, nil
}
