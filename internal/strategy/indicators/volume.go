package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"wickrSignals/internal/domain"
)

// VolumeParams configures the volume statistics family.
type VolumeParams struct {
	ShortPeriod int `yaml:"short_period" json:"short_period"`
	LongPeriod  int `yaml:"long_period" json:"long_period"`
}

// Volume derives moving averages, ratios and a z-score of traded volume.
type Volume struct {
	params VolumeParams
}

// NewVolume creates the volume statistics family.
func NewVolume(params VolumeParams) (*Volume, error) {
	if params.ShortPeriod <= 0 {
		return nil, invalid("indicator_parameters.volume_ma.short_period", "must be positive, got %d", params.ShortPeriod)
	}
	if params.LongPeriod < 2 {
		return nil, invalid("indicator_parameters.volume_ma.long_period", "must be at least 2, got %d", params.LongPeriod)
	}
	return &Volume{params: params}, nil
}

// Name returns the name of the family
func (v *Volume) Name() string { return FamilyVolume }

// RequiredLookback returns the long window.
func (v *Volume) RequiredLookback() int { return v.params.LongPeriod }

// Columns returns the volume statistic columns.
func (v *Volume) Columns() []string {
	return []string{
		"volume", "vol_sma_short", "vol_sma_long", "vol_ema_short", "vol_ema_long",
		"vol_ratio_short", "vol_ratio_long", "vol_std", "vol_zscore",
	}
}

// Compute derives the volume statistics. vol_std is the sample standard
// deviation over the long window. Ratios and the z-score are omitted where
// their denominator is zero.
func (v *Volume) Compute(candles []domain.Candle) map[string][]float64 {
	n := len(candles)
	out := make(map[string][]float64, 9)
	for _, col := range v.Columns() {
		out[col] = nanSeries(n)
	}
	vol := volumes(candles)
	copy(out["volume"], vol)

	short, long := v.params.ShortPeriod, v.params.LongPeriod
	if n >= short {
		smaShort := talib.Sma(vol, short)
		emaShort := talib.Ema(vol, short)
		for i := short - 1; i < n; i++ {
			out["vol_sma_short"][i] = smaShort[i]
			out["vol_ema_short"][i] = emaShort[i]
			if smaShort[i] != 0 {
				out["vol_ratio_short"][i] = vol[i] / smaShort[i]
			}
		}
	}
	if n >= long {
		smaLong := talib.Sma(vol, long)
		emaLong := talib.Ema(vol, long)
		popStd := talib.StdDev(vol, long, 1.0)
		bessel := math.Sqrt(float64(long) / float64(long-1))
		for i := long - 1; i < n; i++ {
			out["vol_sma_long"][i] = smaLong[i]
			out["vol_ema_long"][i] = emaLong[i]
			std := popStd[i] * bessel
			out["vol_std"][i] = std
			if smaLong[i] != 0 {
				out["vol_ratio_long"][i] = vol[i] / smaLong[i]
			}
			if std != 0 {
				out["vol_zscore"][i] = (vol[i] - smaLong[i]) / std
			}
		}
	}
	return out
}
