package indicators

import (
	"fmt"
	"math"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
)

// Family is one configured indicator family.
// Compute returns one series per column, aligned with the input candles.
// Positions without enough history hold NaN; the pipeline never exposes them.
type Family interface {
	// Name returns the configuration key of the family.
	Name() string

	// RequiredLookback returns the minimum number of candles the family needs.
	RequiredLookback() int

	// Columns lists the output columns in a stable order.
	Columns() []string

	// Compute derives the family's series from the candles.
	Compute(candles []domain.Candle) map[string][]float64
}

// Family configuration keys, in pipeline order.
const (
	FamilyRSI       = "rsi"
	FamilyMACD      = "macd"
	FamilyEMA       = "ema"
	FamilyBollinger = "bollinger_bands"
	FamilyVolume    = "volume_ma"
)

var familyOrder = []string{FamilyRSI, FamilyMACD, FamilyEMA, FamilyBollinger, FamilyVolume}

// Params holds per-family parameter overrides. A nil entry uses the defaults.
type Params struct {
	RSI       *RSIParams       `yaml:"rsi" json:"rsi"`
	MACD      *MACDParams      `yaml:"macd" json:"macd"`
	EMA       *EMAParams       `yaml:"ema" json:"ema"`
	Bollinger *BollingerParams `yaml:"bollinger_bands" json:"bollinger_bands"`
	Volume    *VolumeParams    `yaml:"volume_ma" json:"volume_ma"`
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		RSI:       &RSIParams{Period: 14},
		MACD:      &MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		EMA:       &EMAParams{Periods: []int{12, 26}},
		Bollinger: &BollingerParams{Period: 20, StdDev: 2.0},
		Volume:    &VolumeParams{ShortPeriod: 10, LongPeriod: 30},
	}
}

// withDefaults fills nil entries from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.RSI == nil {
		p.RSI = d.RSI
	}
	if p.MACD == nil {
		p.MACD = d.MACD
	}
	if p.EMA == nil {
		p.EMA = d.EMA
	}
	if p.Bollinger == nil {
		p.Bollinger = d.Bollinger
	}
	if p.Volume == nil {
		p.Volume = d.Volume
	}
	return p
}

type factory func(p Params) (Family, error)

// registry maps configuration keys to family constructors.
var registry = map[string]factory{
	FamilyRSI:       func(p Params) (Family, error) { return NewRSI(*p.RSI) },
	FamilyMACD:      func(p Params) (Family, error) { return NewMACD(*p.MACD) },
	FamilyEMA:       func(p Params) (Family, error) { return NewEMA(*p.EMA) },
	FamilyBollinger: func(p Params) (Family, error) { return NewBollinger(*p.Bollinger) },
	FamilyVolume:    func(p Params) (Family, error) { return NewVolume(*p.Volume) },
}

func invalid(field, reason string, args ...interface{}) error {
	return &ports.InvalidConfigError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func closes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func volumes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
