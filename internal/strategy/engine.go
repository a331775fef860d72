package strategy

import (
	"context"
	"fmt"
	"time"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
	"wickrSignals/internal/strategy/conditions"
	"wickrSignals/internal/strategy/indicators"
)

// indicatorContextKeys is the allow-list of indicator values copied into a signal.
var indicatorContextKeys = []string{
	"rsi", "macd", "signal", "histogram", "ema_12", "ema_26",
	"bb_lower", "bb_upper", "bb_width", "bb_percent",
	"vol_ratio_long", "volume",
}

// Input pairs an indicator row with its evaluated conditions.
type Input struct {
	Row        indicators.Row
	Conditions conditions.Set
}

// Inputs zips a snapshot with the condition sets derived from it.
func Inputs(snap indicators.Snapshot, sets []conditions.Set) []Input {
	n := len(snap.Rows)
	if len(sets) < n {
		n = len(sets)
	}
	out := make([]Input, n)
	for i := 0; i < n; i++ {
		out[i] = Input{Row: snap.Rows[i], Conditions: sets[i]}
	}
	return out
}

// Config holds everything the engine needs.
type Config struct {
	Symbol     string
	Strategies []Definition
	Settings   Settings
	Reasons    map[string]string // condition name to human-readable reason
	// KnownConditions, when set, is used to warn about strategies that can never match.
	KnownConditions []string
	Logger          ports.Logger
}

// Engine matches strategies against condition rows and emits debounced signals.
// It is not safe for concurrent use; the live service drives it from a single goroutine.
type Engine struct {
	cfg    Config
	logger ports.Logger

	lastFired    map[string]time.Time // signal label to last emission
	watermark    time.Time
	hasWatermark bool
}

// New creates a new Engine instance.
func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for strategy engine")
	}
	if err := Validate(cfg.Settings, cfg.Strategies); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		logger:    cfg.Logger,
		lastFired: make(map[string]time.Time),
	}
	e.warnUnknownConditions()
	return e, nil
}

func (e *Engine) warnUnknownConditions() {
	if len(e.cfg.KnownConditions) == 0 {
		return
	}
	known := make(map[string]bool, len(e.cfg.KnownConditions))
	for _, c := range e.cfg.KnownConditions {
		known[c] = true
	}
	for _, s := range e.cfg.Strategies {
		for _, c := range s.Conditions {
			if !known[c] {
				e.logger.Warn(context.Background(), "Strategy references a condition that is never produced", map[string]interface{}{
					"strategy":  s.Name,
					"condition": c,
				})
			}
		}
	}
}

// Reset clears debounce state and the evaluation watermark.
func (e *Engine) Reset() {
	e.lastFired = make(map[string]time.Time)
	e.watermark = time.Time{}
	e.hasWatermark = false
}

// LastFired returns when a signal label was last emitted.
func (e *Engine) LastFired(label string) (time.Time, bool) {
	t, ok := e.lastFired[label]
	return t, ok
}

// Evaluate processes rows in ascending time order and returns the emitted signals.
// Rows at or before the newest row seen by a previous call are skipped, so
// overlapping windows never emit the same row twice.
func (e *Engine) Evaluate(ctx context.Context, inputs []Input) []domain.Signal {
	if len(e.cfg.Strategies) == 0 {
		return nil
	}

	var signals []domain.Signal
	interval := e.cfg.Settings.MinSignalInterval()

	for _, in := range inputs {
		ts := in.Row.Timestamp
		if e.hasWatermark && !ts.After(e.watermark) {
			continue
		}
		e.watermark, e.hasWatermark = ts, true

		confluence := in.Conditions.Count()
		if e.cfg.Settings.IgnoreLowVolatility && in.Conditions[conditions.LowVolatility] {
			continue
		}

		for _, s := range e.cfg.Strategies {
			if !s.IsEnabled() || len(s.Conditions) == 0 {
				continue
			}
			if !allTrue(in.Conditions, s.Conditions) {
				continue
			}
			effectiveMin := e.cfg.Settings.MinConfluenceCount
			if m := s.RequiredConfluence(); m > effectiveMin {
				effectiveMin = m
			}
			if confluence < effectiveMin {
				continue
			}

			label := s.Label()
			if last, ok := e.LastFired(label); ok && interval > 0 && ts.Sub(last) < interval {
				e.logger.Debug(ctx, "Signal suppressed by debounce", map[string]interface{}{
					"strategy": s.Name,
					"signal":   label,
					"last":     last,
					"at":       ts,
				})
				continue
			}

			signals = append(signals, e.buildSignal(s, label, confluence, in))
			e.lastFired[label] = ts
		}
	}
	return signals
}

func (e *Engine) buildSignal(s Definition, label string, confluence int, in Input) domain.Signal {
	reasons := make([]string, len(s.Conditions))
	conds := make(map[string]bool, len(s.Conditions))
	for i, c := range s.Conditions {
		reason, ok := e.cfg.Reasons[c]
		if !ok {
			reason = c
		}
		reasons[i] = reason
		conds[c] = in.Conditions[c]
	}

	ctxValues := make(map[string]float64)
	for _, k := range indicatorContextKeys {
		if v, ok := in.Row.Value(k); ok {
			ctxValues[k] = v
		}
	}

	return domain.Signal{
		Timestamp:  in.Row.Timestamp,
		Symbol:     e.cfg.Symbol,
		Price:      in.Row.Close,
		Label:      label,
		Strategy:   s.Name,
		Direction:  s.Direction,
		Reasons:    reasons,
		Confluence: confluence,
		Conditions: conds,
		Indicators: ctxValues,
	}
}

func allTrue(set conditions.Set, names []string) bool {
	for _, n := range names {
		if !set[n] {
			return false
		}
	}
	return true
}
