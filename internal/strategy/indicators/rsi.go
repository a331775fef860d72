package indicators

import (
	"wickrSignals/internal/domain"
)

// RSIParams configures the Relative Strength Index family.
type RSIParams struct {
	Period int `yaml:"period" json:"period"`
}

// RSI implements the Relative Strength Index with Wilder's smoothing.
type RSI struct {
	period int
}

// NewRSI creates the RSI family.
func NewRSI(params RSIParams) (*RSI, error) {
	if params.Period <= 0 {
		return nil, invalid("indicator_parameters.rsi.period", "must be positive, got %d", params.Period)
	}
	return &RSI{period: params.Period}, nil
}

// Name returns the name of the family
func (r *RSI) Name() string { return FamilyRSI }

// RequiredLookback returns the configured period.
// The first value appears once period deltas are available.
func (r *RSI) RequiredLookback() int { return r.period }

// Columns returns the single rsi column.
func (r *RSI) Columns() []string { return []string{"rsi"} }

// Compute derives the RSI series.
func (r *RSI) Compute(candles []domain.Candle) map[string][]float64 {
	return map[string][]float64{"rsi": wilderRSI(closes(candles), r.period)}
}

func wilderRSI(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if len(values) <= period {
		return out
	}

	// Seed averages are the simple mean of the first period deltas
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	// Ensure RSI is within bounds
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi
}
