package conditions

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"wickrSignals/internal/strategy/indicators"
)

// Condition names.
const (
	RSIOversold         = "rsi_oversold"
	RSIOverbought       = "rsi_overbought"
	MACDBullishCross    = "macd_bullish_cross"
	MACDBearishCross    = "macd_bearish_cross"
	MACDHistPositive    = "macd_hist_positive"
	MACDHistNegative    = "macd_hist_negative"
	EMABullish          = "ema_bullish"
	EMABearish          = "ema_bearish"
	EMABullishCross     = "ema_bullish_cross"
	EMABearishCross     = "ema_bearish_cross"
	PriceTouchLowerBand = "price_touch_lower_band"
	PriceTouchUpperBand = "price_touch_upper_band"
	VolumeSpike         = "volume_spike"
	VolumeDryup         = "volume_dryup"
	LowVolatility       = "low_volatility"
)

// Set maps condition names to their value for one row.
type Set map[string]bool

// Count returns the number of true conditions.
func (s Set) Count() int {
	n := 0
	for _, v := range s {
		if v {
			n++
		}
	}
	return n
}

// Evaluator maps indicator rows to condition sets.
// It is stateless; crossover conditions only look at the previous row.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an evaluator for the thresholds.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Thresholds returns the configured thresholds.
func (e *Evaluator) Thresholds() Thresholds { return e.thresholds }

// Names returns the condition names the evaluator produces for the snapshot's columns.
func (e *Evaluator) Names(snap indicators.Snapshot) []string {
	rows := e.EvaluateAll(indicators.Snapshot{Columns: snap.Columns, Rows: []indicators.Row{{}}})
	names := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EvaluateAll evaluates every row of the snapshot in order.
func (e *Evaluator) EvaluateAll(snap indicators.Snapshot) []Set {
	fast, slow, hasEMAs := emaPair(snap.Columns)
	cols := columnSet(snap.Columns)

	out := make([]Set, len(snap.Rows))
	for i := range snap.Rows {
		var prev *indicators.Row
		if i > 0 {
			prev = &snap.Rows[i-1]
		}
		out[i] = e.evaluate(cols, fast, slow, hasEMAs, prev, snap.Rows[i])
	}
	return out
}

// Evaluate computes the condition set for one row given the previous row.
// prev may be nil for the first row; crossover conditions are then false.
func (e *Evaluator) Evaluate(columns []string, prev *indicators.Row, row indicators.Row) Set {
	fast, slow, hasEMAs := emaPair(columns)
	return e.evaluate(columnSet(columns), fast, slow, hasEMAs, prev, row)
}

func (e *Evaluator) evaluate(cols map[string]bool, fast, slow string, hasEMAs bool, prev *indicators.Row, row indicators.Row) Set {
	t := e.thresholds
	set := make(Set)

	if cols["rsi"] {
		rsi, ok := row.Value("rsi")
		set[RSIOversold] = ok && rsi < t.RSI.Oversold
		set[RSIOverbought] = ok && rsi > t.RSI.Overbought
	}

	if cols["macd"] && cols["signal"] {
		diff, ok := difference(&row, "macd", "signal")
		prevDiff, prevOK := difference(prev, "macd", "signal")
		set[MACDBullishCross] = ok && prevOK && diff > 0 && prevDiff <= 0
		set[MACDBearishCross] = ok && prevOK && diff < 0 && prevDiff >= 0
		if cols["histogram"] {
			hist, ok := row.Value("histogram")
			set[MACDHistPositive] = ok && hist > t.MACD.MinHistogram
			set[MACDHistNegative] = ok && hist < -t.MACD.MinHistogram
		}
	}

	if hasEMAs {
		diff, ok := difference(&row, fast, slow)
		set[EMABullish] = ok && diff > 0
		set[EMABearish] = ok && diff < 0

		prevDiff, prevOK := difference(prev, fast, slow)
		crossed := ok && prevOK
		set[EMABullishCross] = crossed && sign(diff) > sign(prevDiff)
		set[EMABearishCross] = crossed && sign(diff) < sign(prevDiff)
	}

	tol := t.Bollinger.TouchTolerance
	if cols["bb_lower"] {
		lower, ok := row.Value("bb_lower")
		set[PriceTouchLowerBand] = ok && (row.Close <= lower || math.Abs(row.Close-lower) <= math.Abs(row.Close)*tol)
	}
	if cols["bb_upper"] {
		upper, ok := row.Value("bb_upper")
		set[PriceTouchUpperBand] = ok && (row.Close >= upper || math.Abs(row.Close-upper) <= math.Abs(row.Close)*tol)
	}

	ratio, ok := row.Value("vol_ratio_long")
	set[VolumeSpike] = ok && ratio > t.Volume.RatioLongMin
	set[VolumeDryup] = ok && ratio < t.Volume.DryupRatioMax

	if cols["bb_width"] && t.Bollinger.LowVolatilityWidth != nil {
		width, ok := row.Value("bb_width")
		set[LowVolatility] = ok && width < *t.Bollinger.LowVolatilityWidth
	}

	return set
}

// emaPair picks the fastest and second-fastest ema_<period> columns.
func emaPair(columns []string) (fast, slow string, ok bool) {
	type emaCol struct {
		name   string
		period int
	}
	var emas []emaCol
	for _, c := range columns {
		if !strings.HasPrefix(c, "ema_") {
			continue
		}
		p, err := strconv.Atoi(strings.TrimPrefix(c, "ema_"))
		if err != nil {
			continue
		}
		emas = append(emas, emaCol{name: c, period: p})
	}
	if len(emas) < 2 {
		return "", "", false
	}
	sort.Slice(emas, func(i, j int) bool { return emas[i].period < emas[j].period })
	return emas[0].name, emas[1].name, true
}

func difference(row *indicators.Row, a, b string) (float64, bool) {
	if row == nil {
		return 0, false
	}
	va, okA := row.Value(a)
	vb, okB := row.Value(b)
	if !okA || !okB {
		return 0, false
	}
	return va - vb, true
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func columnSet(columns []string) map[string]bool {
	out := make(map[string]bool, len(columns))
	for _, c := range columns {
		out[c] = true
	}
	return out
}
