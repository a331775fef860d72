package indicators

import (
	"math"

	"wickrSignals/internal/domain"
)

// MACDParams configures the MACD family.
type MACDParams struct {
	FastPeriod   int `yaml:"fast_period" json:"fast_period"`
	SlowPeriod   int `yaml:"slow_period" json:"slow_period"`
	SignalPeriod int `yaml:"signal_period" json:"signal_period"`
}

// MACD implements Moving Average Convergence Divergence.
type MACD struct {
	params MACDParams
}

// NewMACD creates the MACD family.
func NewMACD(params MACDParams) (*MACD, error) {
	if params.FastPeriod <= 0 || params.SlowPeriod <= 0 || params.SignalPeriod <= 0 {
		return nil, invalid("indicator_parameters.macd", "periods must be positive")
	}
	if params.FastPeriod >= params.SlowPeriod {
		return nil, invalid("indicator_parameters.macd.fast_period", "must be less than slow_period (%d >= %d)", params.FastPeriod, params.SlowPeriod)
	}
	return &MACD{params: params}, nil
}

// Name returns the name of the family
func (m *MACD) Name() string { return FamilyMACD }

// RequiredLookback is the number of candles before the first signal line value.
func (m *MACD) RequiredLookback() int {
	return m.params.SlowPeriod + m.params.SignalPeriod - 1
}

// Columns returns macd, signal and histogram.
func (m *MACD) Columns() []string { return []string{"macd", "signal", "histogram"} }

// Compute derives the MACD line, its signal line and the histogram.
func (m *MACD) Compute(candles []domain.Candle) map[string][]float64 {
	c := closes(candles)
	fast := emaFrom(c, m.params.FastPeriod, 0)
	slow := emaFrom(c, m.params.SlowPeriod, 0)

	line := nanSeries(len(c))
	for i := range c {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			line[i] = fast[i] - slow[i]
		}
	}

	signal := emaFrom(line, m.params.SignalPeriod, m.params.SlowPeriod-1)
	hist := nanSeries(len(c))
	for i := range c {
		if !math.IsNaN(line[i]) && !math.IsNaN(signal[i]) {
			hist[i] = line[i] - signal[i]
		}
	}

	return map[string][]float64{"macd": line, "signal": signal, "histogram": hist}
}
