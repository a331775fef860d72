package conditions

import (
	"errors"
	"strconv"

	"wickrSignals/internal/ports"
)

// RSIThresholds configures the RSI conditions.
type RSIThresholds struct {
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`
}

// MACDThresholds configures the MACD histogram conditions.
type MACDThresholds struct {
	MinHistogram float64 `yaml:"min_histogram" json:"min_histogram"`
}

// BollingerThresholds configures the band touch and volatility conditions.
// LowVolatilityWidth is optional; low_volatility is only evaluated when it is set.
type BollingerThresholds struct {
	TouchTolerance     float64  `yaml:"touch_tolerance" json:"touch_tolerance"`
	LowVolatilityWidth *float64 `yaml:"low_volatility_width" json:"low_volatility_width"`
}

// VolumeThresholds configures the volume spike and dry-up conditions.
type VolumeThresholds struct {
	RatioLongMin  float64 `yaml:"ratio_long_min" json:"ratio_long_min"`
	DryupRatioMax float64 `yaml:"dryup_ratio_max" json:"dryup_ratio_max"`
}

// Thresholds is the full threshold document.
type Thresholds struct {
	RSI       RSIThresholds       `yaml:"rsi" json:"rsi"`
	MACD      MACDThresholds      `yaml:"macd" json:"macd"`
	Bollinger BollingerThresholds `yaml:"bollinger" json:"bollinger"`
	Volume    VolumeThresholds    `yaml:"volume" json:"volume"`
}

// DefaultThresholds returns the standard thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSI:       RSIThresholds{Oversold: 30, Overbought: 70},
		MACD:      MACDThresholds{MinHistogram: 0},
		Bollinger: BollingerThresholds{TouchTolerance: 0.01},
		Volume:    VolumeThresholds{RatioLongMin: 1.5, DryupRatioMax: 0.5},
	}
}

// Validate returns every invalid field joined into one error.
func (t Thresholds) Validate() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &ports.InvalidConfigError{Field: "thresholds." + field, Reason: reason})
	}

	if t.RSI.Oversold < 0 || t.RSI.Oversold > 100 {
		add("rsi.oversold", "must be between 0 and 100")
	}
	if t.RSI.Overbought < 0 || t.RSI.Overbought > 100 {
		add("rsi.overbought", "must be between 0 and 100")
	}
	if t.RSI.Oversold >= t.RSI.Overbought {
		add("rsi", "oversold must be below overbought")
	}
	if t.MACD.MinHistogram < 0 {
		add("macd.min_histogram", "cannot be negative")
	}
	if t.Bollinger.TouchTolerance < 0 {
		add("bollinger.touch_tolerance", "cannot be negative")
	}
	if w := t.Bollinger.LowVolatilityWidth; w != nil && *w <= 0 {
		add("bollinger.low_volatility_width", "must be positive when set")
	}
	if t.Volume.RatioLongMin <= 0 {
		add("volume.ratio_long_min", "must be positive")
	}
	if t.Volume.DryupRatioMax < 0 {
		add("volume.dryup_ratio_max", "cannot be negative")
	}
	return errors.Join(errs...)
}

// Reasons builds the static condition to reason mapping for these thresholds.
func (t Thresholds) Reasons() map[string]string {
	lowVol := 0.0
	if t.Bollinger.LowVolatilityWidth != nil {
		lowVol = *t.Bollinger.LowVolatilityWidth
	}
	return map[string]string{
		RSIOversold:         "RSI<" + formatNumber(t.RSI.Oversold),
		RSIOverbought:       "RSI>" + formatNumber(t.RSI.Overbought),
		MACDBullishCross:    "MACD crossover up",
		MACDBearishCross:    "MACD crossover down",
		MACDHistPositive:    "MACD histogram positive",
		MACDHistNegative:    "MACD histogram negative",
		EMABullish:          "EMA fast above slow",
		EMABearish:          "EMA fast below slow",
		EMABullishCross:     "EMA fast crossed above slow",
		EMABearishCross:     "EMA fast crossed below slow",
		PriceTouchLowerBand: "Price touching lower Bollinger Band",
		PriceTouchUpperBand: "Price touching upper Bollinger Band",
		VolumeSpike:         "Volume > " + formatNumber(t.Volume.RatioLongMin) + "x long MA",
		VolumeDryup:         "Volume < " + formatNumber(t.Volume.DryupRatioMax) + "x long MA",
		LowVolatility:       "BB width < " + formatNumber(lowVol),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
