package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolume_Compute(t *testing.T) {
	v, err := NewVolume(VolumeParams{ShortPeriod: 2, LongPeriod: 3})
	require.NoError(t, err)

	out := v.Compute(candlesFromVolumes(1, 2, 3, 4))

	assert.Equal(t, []float64{1, 2, 3, 4}, out["volume"])
	assert.True(t, math.IsNaN(out["vol_sma_short"][0]))
	assert.InDelta(t, 1.5, out["vol_sma_short"][1], 1e-9)
	assert.InDelta(t, 4/3.5, out["vol_ratio_short"][3], 1e-9)

	assert.True(t, math.IsNaN(out["vol_sma_long"][1]))
	assert.InDelta(t, 3.0, out["vol_sma_long"][3], 1e-9)
	assert.InDelta(t, 4/3.0, out["vol_ratio_long"][3], 1e-9)

	// sample std of [2,3,4] is 1
	assert.InDelta(t, 1.0, out["vol_std"][3], 1e-9)
	assert.InDelta(t, 1.0, out["vol_zscore"][3], 1e-9)
}

func TestVolume_ZeroVolumeOmitsRatios(t *testing.T) {
	v, err := NewVolume(VolumeParams{ShortPeriod: 2, LongPeriod: 3})
	require.NoError(t, err)

	out := v.Compute(candlesFromVolumes(0, 0, 0))
	assert.True(t, math.IsNaN(out["vol_ratio_long"][2]))
	assert.True(t, math.IsNaN(out["vol_zscore"][2]))
}
