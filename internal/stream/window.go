package stream

import (
	"sync"

	"wickrSignals/internal/domain"
)

// DefaultCapacity is the rolling window size used when none is configured.
const DefaultCapacity = 35

// RollingWindow is a bounded, time-ordered buffer of closed candles.
// A single writer appends; readers take copies.
type RollingWindow struct {
	mu          sync.RWMutex
	candles     []domain.Candle
	capacity    int
	latestPrice float64
	hasPrice    bool
}

// NewRollingWindow creates a window holding at most capacity candles.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RollingWindow{
		candles:  make([]domain.Candle, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a closed candle, evicting the oldest when full.
// Candles not strictly newer than the current head are rejected.
func (w *RollingWindow) Append(c domain.Candle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(c)
}

func (w *RollingWindow) appendLocked(c domain.Candle) bool {
	if n := len(w.candles); n > 0 && !c.OpenTime.After(w.candles[n-1].OpenTime) {
		return false
	}
	if len(w.candles) == w.capacity {
		copy(w.candles, w.candles[1:])
		w.candles = w.candles[:w.capacity-1]
	}
	w.candles = append(w.candles, c)
	w.latestPrice, w.hasPrice = c.Close, true
	return true
}

// Load replaces the contents with candles (oldest first), keeping the newest capacity entries.
// It returns the number of candles retained.
func (w *RollingWindow) Load(candles []domain.Candle) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.candles = w.candles[:0]
	w.hasPrice = false
	for _, c := range candles {
		w.appendLocked(c)
	}
	return len(w.candles)
}

// Snapshot returns a copy of the buffered candles, oldest first.
func (w *RollingWindow) Snapshot() []domain.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

// Len returns the number of buffered candles.
func (w *RollingWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.candles)
}

// Cap returns the window capacity.
func (w *RollingWindow) Cap() int {
	return w.capacity
}

// Latest returns the newest closed candle.
func (w *RollingWindow) Latest() (domain.Candle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.candles) == 0 {
		return domain.Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// LatestPrice returns the close of the most recent update, closed or provisional.
func (w *RollingWindow) LatestPrice() (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latestPrice, w.hasPrice
}

// SetLatestPrice records the close of a provisional update.
func (w *RollingWindow) SetLatestPrice(p float64) {
	w.mu.Lock()
	w.latestPrice, w.hasPrice = p, true
	w.mu.Unlock()
}
