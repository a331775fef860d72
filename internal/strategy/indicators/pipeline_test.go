package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wickrSignals/internal/ports"
)

func TestPipeline_InsufficientData(t *testing.T) {
	p, err := NewPipeline(Params{})
	require.NoError(t, err)

	_, err = p.Compute(candlesFromCloses(wave(10)...))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrInsufficientData))

	var insufficient *ports.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "rsi", insufficient.Indicator)
	assert.Equal(t, 14, insufficient.Required)
	assert.Equal(t, 10, insufficient.Available)
}

func TestPipeline_DefaultLookbackAndColumns(t *testing.T) {
	p, err := NewPipeline(Params{})
	require.NoError(t, err)
	assert.Equal(t, 34, p.RequiredLookback())

	names := make([]string, 0)
	for _, f := range p.families {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"rsi", "macd", "ema", "bollinger_bands", "volume_ma"}, names)

	snap, err := p.Compute(candlesFromCloses(wave(35)...))
	require.NoError(t, err)
	for _, col := range []string{"rsi", "macd", "signal", "histogram", "ema_12", "ema_26", "bb_width", "vol_zscore"} {
		assert.True(t, snap.HasColumn(col), col)
	}

	last := snap.Rows[len(snap.Rows)-1]
	for _, col := range snap.Columns {
		_, ok := last.Value(col)
		assert.True(t, ok, "last row should define %s", col)
	}
}

func TestPipeline_NoUndefinedValues(t *testing.T) {
	p, err := NewPipeline(Params{})
	require.NoError(t, err)

	snap, err := p.Compute(candlesFromCloses(wave(80)...))
	require.NoError(t, err)
	for _, row := range snap.Rows {
		for name, v := range row.Values {
			assert.False(t, math.IsNaN(v), "%s at %s", name, row.Timestamp)
		}
	}
	_, ok := snap.Rows[0].Value("rsi")
	assert.False(t, ok)
}

func TestPipeline_Idempotent(t *testing.T) {
	p, err := NewPipeline(Params{})
	require.NoError(t, err)

	window := candlesFromCloses(wave(50)...)
	first, err := p.Compute(window)
	require.NoError(t, err)
	second, err := p.Compute(window)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipeline_DropsRowsWithoutValues(t *testing.T) {
	ema, err := NewEMA(EMAParams{Periods: []int{3}})
	require.NoError(t, err)
	p := NewPipelineWith(ema)

	snap, err := p.Compute(candlesFromCloses(10, 11, 12, 13))
	require.NoError(t, err)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, baseTime.Add(2*time.Minute), snap.Rows[0].Timestamp)
	assert.InDelta(t, 12.0, snap.Rows[1].Values["ema_3"], 0.0001)
}

func TestNewPipeline_InvalidParams(t *testing.T) {
	_, err := NewPipeline(Params{RSI: &RSIParams{Period: -1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}
