package indicators

import (
	"fmt"
	"math"
	"sort"

	"wickrSignals/internal/domain"
)

// EMAParams configures the exponential moving average family.
type EMAParams struct {
	Periods []int `yaml:"periods" json:"periods"`
}

// EMA computes one exponential moving average of closes per configured period.
type EMA struct {
	periods []int
}

// NewEMA creates the EMA family. Periods are de-duplicated and sorted ascending.
func NewEMA(params EMAParams) (*EMA, error) {
	if len(params.Periods) == 0 {
		return nil, invalid("indicator_parameters.ema.periods", "at least one period is required")
	}
	seen := make(map[int]bool, len(params.Periods))
	periods := make([]int, 0, len(params.Periods))
	for _, p := range params.Periods {
		if p <= 0 {
			return nil, invalid("indicator_parameters.ema.periods", "period %d must be positive", p)
		}
		if !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	sort.Ints(periods)
	return &EMA{periods: periods}, nil
}

// Name returns the name of the family
func (e *EMA) Name() string { return FamilyEMA }

// RequiredLookback returns the longest configured period.
func (e *EMA) RequiredLookback() int { return e.periods[len(e.periods)-1] }

// Columns returns ema_<period> for every period, fastest first.
func (e *EMA) Columns() []string {
	cols := make([]string, len(e.periods))
	for i, p := range e.periods {
		cols[i] = EMAColumn(p)
	}
	return cols
}

// Compute derives every configured EMA series.
func (e *EMA) Compute(candles []domain.Candle) map[string][]float64 {
	c := closes(candles)
	out := make(map[string][]float64, len(e.periods))
	for _, p := range e.periods {
		out[EMAColumn(p)] = emaFrom(c, p, 0)
	}
	return out
}

// EMAColumn returns the column name for an EMA period.
func EMAColumn(period int) string {
	return fmt.Sprintf("ema_%d", period)
}

// emaFrom computes an EMA over values starting at offset.
// The seed is the simple average of the first period values, alpha is 2/(period+1).
// Positions before offset+period-1 are NaN.
func emaFrom(values []float64, period, offset int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || offset < 0 || offset+period > len(values) {
		return out
	}

	seed := 0.0
	for i := offset; i < offset+period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[offset+period-1] = ema

	alpha := 2.0 / float64(period+1)
	for i := offset + period; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			break
		}
		ema = values[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}
	return out
}
