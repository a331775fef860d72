package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/metrics"
	"wickrSignals/internal/ports"
)

// State is the connection state of the live feed.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultReconnectDelay = 5 * time.Second
	defaultSeedLimit      = 100

	eventPriceTick    = "price_tick"
	eventCandleClosed = "candle_closed"
)

var errSessionClosed = errors.New("session closed by remote")

// CandleClosed is delivered when a candle is finalized and appended.
// Snapshot is a copy of the window after the append.
type CandleClosed struct {
	Candle   domain.Candle
	Snapshot []domain.Candle
}

// Subscriber receives stream events. Callbacks run synchronously on the stream goroutine.
type Subscriber interface {
	OnPriceTick(ctx context.Context, tick domain.PriceTick) error
	OnCandleClosed(ctx context.Context, ev CandleClosed) error
}

// SubscriptionID identifies a registered subscriber.
type SubscriptionID uint64

type subscription struct {
	id  SubscriptionID
	sub Subscriber
}

func (s subscription) name() string {
	return fmt.Sprintf("%d:%T", s.id, s.sub)
}

// Config holds configuration for the candle stream.
type Config struct {
	Symbol         string
	Interval       string
	Capacity       int           // rolling window size
	MinSeed        int           // minimum candles required by Seed
	SeedLimit      int           // candles requested by Bootstrap
	ReconnectDelay time.Duration // fixed wait between sessions
	Client         ports.MarketDataClient
	Logger         ports.Logger
	Metrics        *metrics.Metrics
	OnStateChange  func(from, to State)
}

// CandleStream maintains the rolling window from a live kline feed and fans events out to subscribers.
type CandleStream struct {
	cfg     Config
	logger  ports.Logger
	metrics *metrics.Metrics
	window  *RollingWindow
	now     func() time.Time

	mu     sync.RWMutex
	subs   []subscription
	nextID SubscriptionID
	state  State
}

// New creates a new CandleStream.
func New(cfg Config) (*CandleStream, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for candle stream")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("market data client is required for candle stream")
	}
	if cfg.Symbol == "" || cfg.Interval == "" {
		return nil, &ports.InvalidConfigError{Field: "stream", Reason: "symbol and interval are required"}
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.MinSeed < 0 || cfg.MinSeed > cfg.Capacity {
		return nil, &ports.InvalidConfigError{Field: "stream.min_seed", Reason: fmt.Sprintf("must be between 0 and capacity %d", cfg.Capacity)}
	}
	if cfg.SeedLimit <= 0 {
		cfg.SeedLimit = defaultSeedLimit
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	return &CandleStream{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: m,
		window:  NewRollingWindow(cfg.Capacity),
		now:     time.Now,
		state:   StateDisconnected,
	}, nil
}

// Window returns the stream's rolling window.
func (s *CandleStream) Window() *RollingWindow {
	return s.window
}

// State returns the current connection state.
func (s *CandleStream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *CandleStream) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from == to {
		return
	}
	s.metrics.ConnectionState.Set(float64(to))
	s.logger.Debug(context.Background(), "Stream state changed", map[string]interface{}{"from": from.String(), "to": to.String()})
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(from, to)
	}
}

// Subscribe registers a subscriber. Events are delivered in registration order.
func (s *CandleStream) Subscribe(sub Subscriber) SubscriptionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.subs = append(s.subs, subscription{id: s.nextID, sub: sub})
	return s.nextID
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (s *CandleStream) Unsubscribe(id SubscriptionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Seed loads historical closed candles into the window.
func (s *CandleStream) Seed(candles []domain.Candle) error {
	if len(candles) < s.cfg.MinSeed {
		return &ports.InsufficientSeedDataError{Required: s.cfg.MinSeed, Available: len(candles)}
	}
	kept := s.window.Load(candles)
	s.metrics.BufferSize.Set(float64(kept))
	s.logger.Info(context.Background(), "Rolling window seeded", map[string]interface{}{
		"provided": len(candles),
		"kept":     kept,
		"capacity": s.window.Cap(),
	})
	return nil
}

// Bootstrap fetches recent candles from the exchange and seeds the window.
// A trailing candle whose interval has not yet closed is dropped.
func (s *CandleStream) Bootstrap(ctx context.Context) error {
	op := "Bootstrap"
	candles, err := s.cfg.Client.GetKlines(ctx, s.cfg.Symbol, s.cfg.Interval, s.cfg.SeedLimit)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	if n := len(candles); n > 0 && candles[n-1].CloseTime.After(s.cutoff(ctx)) {
		candles = candles[:n-1]
	}
	if err := s.Seed(candles); err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return nil
}

// cutoff is the exchange clock when the client exposes one, the local clock otherwise.
func (s *CandleStream) cutoff(ctx context.Context) time.Time {
	clock, ok := s.cfg.Client.(ports.ServerClock)
	if !ok {
		return s.now()
	}
	serverTime, err := clock.GetServerTime(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Server time unavailable, using local clock", map[string]interface{}{"error": err.Error()})
		return s.now()
	}
	return serverTime
}

// Run consumes the live feed until ctx is cancelled, reconnecting after a fixed delay
// whenever a session ends. The window is kept across reconnects.
func (s *CandleStream) Run(ctx context.Context) error {
	fields := map[string]interface{}{"symbol": s.cfg.Symbol, "interval": s.cfg.Interval}
	s.logger.Info(ctx, "Candle stream starting", fields)

	for {
		err := s.session(ctx)
		s.setState(StateDisconnected)
		if ctx.Err() != nil {
			s.logger.Info(ctx, "Candle stream stopped", fields)
			return nil
		}

		s.metrics.Reconnects.Inc()
		s.logger.Warn(ctx, "Stream session ended, reconnecting", map[string]interface{}{
			"symbol": s.cfg.Symbol,
			"error":  fmt.Sprint(err),
			"delay":  s.cfg.ReconnectDelay.String(),
		})

		timer := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info(ctx, "Candle stream stopped during reconnect wait", fields)
			return nil
		case <-timer.C:
		}
	}
}

// session runs one websocket session and returns why it ended.
func (s *CandleStream) session(ctx context.Context) error {
	s.setState(StateConnecting)

	// The adapter may still deliver an in-flight event after stopCh is closed.
	// live is cleared under gate so no event of this session runs once it returns.
	var gate sync.Mutex
	live := true
	defer func() {
		gate.Lock()
		live = false
		gate.Unlock()
	}()

	errCh := make(chan error, 1)
	doneCh, stopCh, err := s.cfg.Client.StreamKlines(ctx, s.cfg.Symbol, s.cfg.Interval,
		func(ev domain.KlineEvent) {
			gate.Lock()
			defer gate.Unlock()
			if !live {
				s.metrics.StaleEvents.Inc()
				return
			}
			s.handleEvent(ctx, ev)
		},
		func(err error) {
			select {
			case errCh <- err:
			default:
			}
		})
	if err != nil {
		return &ports.TransportError{Op: "connect", Err: err}
	}
	if stopCh != nil {
		defer close(stopCh)
	}

	s.setState(StateConnected)
	s.logger.Info(ctx, "Stream connected", map[string]interface{}{"symbol": s.cfg.Symbol, "interval": s.cfg.Interval})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return &ports.TransportError{Op: "stream", Err: err}
	case <-doneCh:
		return &ports.TransportError{Op: "stream", Err: errSessionClosed}
	}
}

// ReportDecodeError records a feed message the adapter could not decode.
func (s *CandleStream) ReportDecodeError(err error) {
	s.metrics.DecodeErrors.Inc()
	s.logger.Warn(context.Background(), "Skipping malformed feed message", map[string]interface{}{"error": err.Error()})
}

func (s *CandleStream) handleEvent(ctx context.Context, ev domain.KlineEvent) {
	s.metrics.FeedUpdatesTotal.Inc()
	c := ev.Candle

	ts := ev.EventTime
	if ts.IsZero() {
		ts = c.CloseTime
	}
	s.window.SetLatestPrice(c.Close)
	s.dispatchTick(ctx, domain.PriceTick{Price: c.Close, Timestamp: ts, IsClosed: ev.IsFinal})

	if !ev.IsFinal {
		return
	}
	if !s.window.Append(c) {
		s.metrics.OutOfOrderCandles.Inc()
		fields := map[string]interface{}{"openTime": c.OpenTime}
		if head, ok := s.window.Latest(); ok {
			fields["headOpenTime"] = head.OpenTime
		}
		s.logger.Debug(ctx, "Ignoring candle not newer than window head", fields)
		return
	}
	s.metrics.CandlesClosed.Inc()
	s.metrics.BufferSize.Set(float64(s.window.Len()))
	s.dispatchClosed(ctx, CandleClosed{Candle: c, Snapshot: s.window.Snapshot()})
}

func (s *CandleStream) subscribers() []subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

func (s *CandleStream) dispatchTick(ctx context.Context, tick domain.PriceTick) {
	for _, sub := range s.subscribers() {
		sub := sub
		s.deliver(ctx, sub, eventPriceTick, func() error { return sub.sub.OnPriceTick(ctx, tick) })
	}
}

func (s *CandleStream) dispatchClosed(ctx context.Context, ev CandleClosed) {
	for _, sub := range s.subscribers() {
		sub := sub
		s.deliver(ctx, sub, eventCandleClosed, func() error { return sub.sub.OnCandleClosed(ctx, ev) })
	}
}

// deliver invokes one callback, turning errors and panics into logged CallbackErrors.
func (s *CandleStream) deliver(ctx context.Context, sub subscription, event string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.reportCallbackError(ctx, &ports.CallbackError{Subscriber: sub.name(), Event: event, Err: fmt.Errorf("panic: %v", r)})
		}
	}()
	if err := fn(); err != nil {
		s.reportCallbackError(ctx, &ports.CallbackError{Subscriber: sub.name(), Event: event, Err: err})
	}
}

func (s *CandleStream) reportCallbackError(ctx context.Context, err *ports.CallbackError) {
	s.metrics.CallbackErrors.WithLabelValues(err.Event).Inc()
	s.logger.Error(ctx, err, "Subscriber callback failed", map[string]interface{}{
		"subscriber": err.Subscriber,
		"event":      err.Event,
	})
}
