package app

import (
	"context"
	"fmt"

	"wickrSignals/config"
	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
	"wickrSignals/internal/strategy"
	"wickrSignals/internal/strategy/conditions"
	"wickrSignals/internal/strategy/indicators"
)

// SignalGenerator runs one pass of pipeline, evaluator and engine over a candle window.
// The engine keeps its debounce state between calls.
type SignalGenerator struct {
	pipeline  *indicators.Pipeline
	evaluator *conditions.Evaluator
	engine    *strategy.Engine
	logger    ports.Logger
}

// NewSignalGenerator builds a generator from a validated signal document.
func NewSignalGenerator(cfg *config.SignalConfig, symbol string, logger ports.Logger) (*SignalGenerator, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for SignalGenerator")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}

	pipeline, err := indicators.NewPipeline(cfg.Indicators)
	if err != nil {
		return nil, err
	}
	evaluator := conditions.NewEvaluator(cfg.Thresholds)

	engine, err := strategy.New(strategy.Config{
		Symbol:          symbol,
		Strategies:      cfg.Strategies,
		Settings:        cfg.Settings,
		Reasons:         cfg.Thresholds.Reasons(),
		KnownConditions: evaluator.Names(indicators.Snapshot{Columns: pipeline.Columns()}),
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	return &SignalGenerator{
		pipeline:  pipeline,
		evaluator: evaluator,
		engine:    engine,
		logger:    logger,
	}, nil
}

// RequiredLookback is the minimum window length Generate accepts.
func (g *SignalGenerator) RequiredLookback() int { return g.pipeline.RequiredLookback() }

// Generate returns the signals emitted for candles not seen by a previous call.
// A short window fails with *ports.InsufficientDataError.
func (g *SignalGenerator) Generate(ctx context.Context, candles []domain.Candle) ([]domain.Signal, error) {
	snap, err := g.pipeline.Compute(candles)
	if err != nil {
		return nil, err
	}
	sets := g.evaluator.EvaluateAll(snap)
	signals := g.engine.Evaluate(ctx, strategy.Inputs(snap, sets))

	g.logger.Debug(ctx, "Signal pass complete", map[string]interface{}{
		"candles": len(candles),
		"rows":    len(snap.Rows),
		"signals": len(signals),
	})
	return signals, nil
}

// Reset clears the engine's debounce state and watermark.
func (g *SignalGenerator) Reset() { g.engine.Reset() }
