package indicators

import (
	"math"
	"time"

	"wickrSignals/internal/domain"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func candlesFromCloses(closes ...float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		open := baseTime.Add(time.Duration(i) * time.Minute)
		out[i] = domain.Candle{
			OpenTime:  open,
			CloseTime: open.Add(time.Minute - time.Millisecond),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100 + float64(i),
		}
	}
	return out
}

func candlesFromVolumes(vols ...float64) []domain.Candle {
	out := candlesFromCloses(make([]float64, len(vols))...)
	for i := range out {
		out[i].Close = 10
		out[i].Volume = vols[i]
	}
	return out
}

// wave produces a deterministic oscillating close series.
func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 5*math.Sin(float64(i)/3) + float64(i%7) - 3
	}
	return out
}
