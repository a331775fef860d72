package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACD_Compute(t *testing.T) {
	macd, err := NewMACD(MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9})
	require.NoError(t, err)
	assert.Equal(t, 34, macd.RequiredLookback())

	closes := wave(60)
	out := macd.Compute(candlesFromCloses(closes...))

	for i := 0; i < 25; i++ {
		assert.True(t, math.IsNaN(out["macd"][i]), "macd index %d should be undefined", i)
	}
	for i := 0; i < 33; i++ {
		assert.True(t, math.IsNaN(out["signal"][i]), "signal index %d should be undefined", i)
	}

	fast := emaFrom(closes, 12, 0)
	slow := emaFrom(closes, 26, 0)
	for i := 33; i < len(closes); i++ {
		assert.InDelta(t, fast[i]-slow[i], out["macd"][i], 1e-9)
		assert.InDelta(t, out["macd"][i]-out["signal"][i], out["histogram"][i], 1e-9)
	}
}

func TestMACD_FlatPrices(t *testing.T) {
	macd, err := NewMACD(MACDParams{FastPeriod: 3, SlowPeriod: 5, SignalPeriod: 2})
	require.NoError(t, err)

	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 50
	}
	out := macd.Compute(candlesFromCloses(closes...))
	last := len(closes) - 1
	assert.InDelta(t, 0.0, out["macd"][last], 1e-12)
	assert.InDelta(t, 0.0, out["signal"][last], 1e-12)
	assert.InDelta(t, 0.0, out["histogram"][last], 1e-12)
}

func TestNewMACD_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params MACDParams
	}{
		{"fast not below slow", MACDParams{FastPeriod: 26, SlowPeriod: 12, SignalPeriod: 9}},
		{"zero signal", MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMACD(tt.params)
			assert.Error(t, err)
		})
	}
}
