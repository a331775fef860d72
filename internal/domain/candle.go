package domain

import "time"

// Candle represents a single OHLCV bar for one interval.
type Candle struct {
	OpenTime    time.Time // Start time of the interval
	CloseTime   time.Time // End time of the interval
	Open        float64   // Opening price
	High        float64   // Highest price
	Low         float64   // Lowest price
	Close       float64   // Closing price
	Volume      float64   // Base asset volume
	TradesCount int64     // Number of trades in the interval
}

// KlineEvent is a single update delivered by the live feed.
// IsFinal marks the update that closes the candle's interval.
type KlineEvent struct {
	EventTime time.Time
	Symbol    string
	Interval  string
	Candle    Candle
	IsFinal   bool
}

// PriceTick is published on every feed update, closed or provisional.
type PriceTick struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	IsClosed  bool      `json:"is_closed"`
}
