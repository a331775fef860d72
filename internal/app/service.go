package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/metrics"
	"wickrSignals/internal/ports"
	"wickrSignals/internal/stream"
)

// Feed is the live candle source the service subscribes to.
type Feed interface {
	Bootstrap(ctx context.Context) error
	Run(ctx context.Context) error
	Subscribe(sub stream.Subscriber) stream.SubscriptionID
	Unsubscribe(id stream.SubscriptionID)
}

// WindowReader gives copy-on-read access to the rolling window.
type WindowReader interface {
	Snapshot() []domain.Candle
	Len() int
}

// ServiceConfig holds the service's dependencies. Sinks and Metrics are optional.
type ServiceConfig struct {
	Feed        Feed
	Window      WindowReader
	Generator   *SignalGenerator
	State       *State
	Broadcaster ports.Broadcaster
	Sinks       []ports.SignalSink
	Logger      ports.Logger
	Metrics     *metrics.Metrics
	// HandleSignals installs a SIGINT/SIGTERM handler that cancels Start's context.
	HandleSignals bool
}

// SignalService runs the live signal loop: feed events in, dashboard updates and sink writes out.
type SignalService struct {
	feed        Feed
	window      WindowReader
	generator   *SignalGenerator
	state       *State
	broadcaster ports.Broadcaster
	sinks       []ports.SignalSink
	logger      ports.Logger
	metrics     *metrics.Metrics
	handleSig   bool

	// trigger holds at most one pending evaluation request.
	trigger chan struct{}
}

// NewSignalService creates a new application service instance.
func NewSignalService(cfg ServiceConfig) (*SignalService, error) {
	if cfg.Feed == nil || cfg.Window == nil || cfg.Generator == nil || cfg.State == nil || cfg.Broadcaster == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for SignalService")
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &SignalService{
		feed:        cfg.Feed,
		window:      cfg.Window,
		generator:   cfg.Generator,
		state:       cfg.State,
		broadcaster: cfg.Broadcaster,
		sinks:       cfg.Sinks,
		logger:      cfg.Logger,
		metrics:     m,
		handleSig:   cfg.HandleSignals,
		trigger:     make(chan struct{}, 1),
	}, nil
}

// Start seeds the feed and runs until ctx is canceled or a shutdown signal arrives.
func (s *SignalService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Signal Service...", map[string]interface{}{"symbol": s.state.Symbol()})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.handleSig {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case sig := <-sigCh:
				s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	// 1. Seed the rolling window from REST history
	if err := s.feed.Bootstrap(ctx); err != nil {
		s.logger.Error(ctx, err, "Failed to seed candle window")
		return fmt.Errorf("failed to seed candle window: %w", err)
	}
	s.logger.Info(ctx, "Candle window seeded", map[string]interface{}{"candles": s.window.Len()})

	// 2. Subscribe and start the evaluation worker
	id := s.feed.Subscribe(s)
	defer s.feed.Unsubscribe(id)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.evaluationLoop(ctx)
	}()

	if s.window.Len() >= s.generator.RequiredLookback() {
		s.requestEvaluation()
	}

	// 3. Run the live feed; it reconnects on its own until ctx is done
	err := s.feed.Run(ctx)
	cancel()
	wg.Wait()
	if err != nil {
		s.logger.Error(ctx, err, "Live feed stopped")
		return fmt.Errorf("live feed stopped: %w", err)
	}

	s.logger.Info(ctx, "Signal Service stopped.")
	return nil
}

// OnPriceTick forwards every feed update to the dashboard.
func (s *SignalService) OnPriceTick(ctx context.Context, tick domain.PriceTick) error {
	s.broadcaster.BroadcastTick(tick)
	return nil
}

// OnCandleClosed schedules an evaluation once the window is long enough.
func (s *SignalService) OnCandleClosed(ctx context.Context, ev stream.CandleClosed) error {
	if len(ev.Snapshot) < s.generator.RequiredLookback() {
		s.logger.Debug(ctx, "Window below indicator lookback, skipping evaluation", map[string]interface{}{
			"candles":  len(ev.Snapshot),
			"required": s.generator.RequiredLookback(),
		})
		return nil
	}
	s.requestEvaluation()
	return nil
}

// requestEvaluation never blocks; a pending request already covers the newest window.
func (s *SignalService) requestEvaluation() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *SignalService) evaluationLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.evaluate(ctx)
		}
	}
}

// evaluate runs one generator pass over the current window and fans out the results.
func (s *SignalService) evaluate(ctx context.Context) []domain.Signal {
	candles := s.window.Snapshot()

	start := time.Now()
	signals, err := s.generator.Generate(ctx, candles)
	s.metrics.EvaluationDur.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientData) {
			s.logger.Debug(ctx, "Not enough candles for evaluation", map[string]interface{}{"error": err.Error()})
			return nil
		}
		s.metrics.EvaluationErrors.Inc()
		s.logger.Error(ctx, err, "Signal evaluation failed", map[string]interface{}{"candles": len(candles)})
		return nil
	}
	if len(signals) == 0 {
		return nil
	}

	for _, sig := range signals {
		s.metrics.SignalsTotal.WithLabelValues(sig.Label).Inc()
		s.logger.Info(ctx, "Signal emitted", map[string]interface{}{
			"signal":     sig.Label,
			"strategy":   sig.Strategy,
			"price":      sig.Price,
			"timestamp":  sig.Timestamp,
			"confluence": sig.Confluence,
			"reasons":    sig.Reasons,
		})
		s.publish(ctx, sig)
	}

	latest := signals[len(signals)-1]
	if s.state.UpdateSignal(latest) {
		s.broadcaster.BroadcastSignal(latest.Label, latest)
	}
	return signals
}

func (s *SignalService) publish(ctx context.Context, sig domain.Signal) {
	for _, sink := range s.sinks {
		if err := sink.PublishSignal(ctx, sig); err != nil {
			name := fmt.Sprintf("%T", sink)
			s.metrics.SinkErrors.WithLabelValues(name).Inc()
			s.logger.Error(ctx, err, "Failed to publish signal", map[string]interface{}{"sink": name, "signal": sig.Label})
		}
	}
}
