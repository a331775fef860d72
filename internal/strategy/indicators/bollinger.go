package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"wickrSignals/internal/domain"
)

// BollingerParams configures the Bollinger Bands family.
type BollingerParams struct {
	Period int     `yaml:"period" json:"period"`
	StdDev float64 `yaml:"std_dev" json:"std_dev"`
}

// Bollinger implements Bollinger Bands over closes with a simple moving average
// middle band and population standard deviation.
type Bollinger struct {
	params BollingerParams
}

// NewBollinger creates the Bollinger Bands family.
func NewBollinger(params BollingerParams) (*Bollinger, error) {
	if params.Period < 2 {
		return nil, invalid("indicator_parameters.bollinger_bands.period", "must be at least 2, got %d", params.Period)
	}
	if params.StdDev <= 0 {
		return nil, invalid("indicator_parameters.bollinger_bands.std_dev", "must be positive, got %g", params.StdDev)
	}
	return &Bollinger{params: params}, nil
}

// Name returns the name of the family
func (b *Bollinger) Name() string { return FamilyBollinger }

// RequiredLookback returns the band period.
func (b *Bollinger) RequiredLookback() int { return b.params.Period }

// Columns returns the band, width and %B columns.
func (b *Bollinger) Columns() []string {
	return []string{"bb_lower", "bb_middle", "bb_upper", "bb_width", "bb_percent"}
}

// Compute derives the bands. Width is omitted when the middle band is zero
// and %B is omitted when the bands collapse.
func (b *Bollinger) Compute(candles []domain.Candle) map[string][]float64 {
	n := len(candles)
	out := map[string][]float64{
		"bb_lower":   nanSeries(n),
		"bb_middle":  nanSeries(n),
		"bb_upper":   nanSeries(n),
		"bb_width":   nanSeries(n),
		"bb_percent": nanSeries(n),
	}
	if n < b.params.Period {
		return out
	}

	c := closes(candles)
	middle := talib.Sma(c, b.params.Period)
	for i := b.params.Period - 1; i < n; i++ {
		mid := middle[i]
		spread := 2 * b.params.StdDev * windowStdDev(c[i-b.params.Period+1:i+1], mid)
		if spread <= collapseTolerance*math.Abs(mid) {
			spread = 0
		}
		out["bb_lower"][i] = mid - spread/2
		out["bb_middle"][i] = mid
		out["bb_upper"][i] = mid + spread/2
		if mid != 0 {
			out["bb_width"][i] = spread / mid
		}
		if spread != 0 {
			out["bb_percent"][i] = (c[i] - out["bb_lower"][i]) / spread
		}
	}
	return out
}

// collapseTolerance is the relative spread below which the bands are treated
// as collapsed onto the middle band.
const collapseTolerance = 1e-9

// windowStdDev is the population standard deviation of window around mean,
// summed over deviations so large price levels keep their precision.
func windowStdDev(window []float64, mean float64) float64 {
	var sum float64
	for _, v := range window {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(window)))
}
