package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBollinger_Compute(t *testing.T) {
	bb, err := NewBollinger(BollingerParams{Period: 5, StdDev: 2.0})
	require.NoError(t, err)

	out := bb.Compute(candlesFromCloses(1, 2, 3, 4, 5))
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(out["bb_middle"][i]))
	}

	// mean 3, population std sqrt(2)
	band := 2 * math.Sqrt(2)
	assert.InDelta(t, 3.0, out["bb_middle"][4], 0.0001)
	assert.InDelta(t, 3.0+band, out["bb_upper"][4], 0.0001)
	assert.InDelta(t, 3.0-band, out["bb_lower"][4], 0.0001)
	assert.InDelta(t, 2*band/3.0, out["bb_width"][4], 0.0001)
	assert.InDelta(t, (5-(3.0-band))/(2*band), out["bb_percent"][4], 0.0001)
}

func TestBollinger_FlatPricesOmitPercent(t *testing.T) {
	bb, err := NewBollinger(BollingerParams{Period: 3, StdDev: 2.0})
	require.NoError(t, err)

	out := bb.Compute(candlesFromCloses(10, 10, 10))
	assert.InDelta(t, 0.0, out["bb_width"][2], 1e-12)
	assert.True(t, math.IsNaN(out["bb_percent"][2]))
}

func TestBollinger_FlatTailAtHighPrices(t *testing.T) {
	tests := []struct {
		name  string
		level float64
	}{
		{"btc", 65432.17},
		{"btc high", 98765.43},
		{"above a million", 1234567.891},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bb, err := NewBollinger(BollingerParams{Period: 20, StdDev: 2.0})
			require.NoError(t, err)

			closes := make([]float64, 0, 40)
			for i := 0; i < 15; i++ {
				closes = append(closes, tt.level+float64((i*37)%11)*13.7-60)
			}
			for i := 0; i < 25; i++ {
				closes = append(closes, tt.level)
			}

			out := bb.Compute(candlesFromCloses(closes...))
			last := len(closes) - 1
			assert.Equal(t, 0.0, out["bb_width"][last])
			assert.Equal(t, out["bb_lower"][last], out["bb_upper"][last])
			assert.True(t, math.IsNaN(out["bb_percent"][last]))

			// the last noisy close is still inside this window
			assert.Greater(t, out["bb_width"][20], 0.0)
			assert.False(t, math.IsNaN(out["bb_percent"][20]))
		})
	}
}

func TestBollinger_MatchesDirectStdDev(t *testing.T) {
	bb, err := NewBollinger(BollingerParams{Period: 20, StdDev: 2.0})
	require.NoError(t, err)

	closes := make([]float64, 5000)
	price := 65000.0
	for i := range closes {
		price += 40 * math.Sin(float64(i)*0.7) * math.Cos(float64(i)*0.13)
		closes[i] = price
	}
	out := bb.Compute(candlesFromCloses(closes...))

	for _, i := range []int{19, 1000, 4999} {
		window := closes[i-19 : i+1]
		var mean float64
		for _, v := range window {
			mean += v
		}
		mean /= 20
		var sq float64
		for _, v := range window {
			sq += (v - mean) * (v - mean)
		}
		std := math.Sqrt(sq / 20)
		assert.InDelta(t, mean+2*std, out["bb_upper"][i], 1e-6)
		assert.InDelta(t, mean-2*std, out["bb_lower"][i], 1e-6)
	}
}

func TestNewBollinger_Validation(t *testing.T) {
	_, err := NewBollinger(BollingerParams{Period: 1, StdDev: 2})
	assert.Error(t, err)
	_, err = NewBollinger(BollingerParams{Period: 20, StdDev: 0})
	assert.Error(t, err)
}
