package domain

import "time"

// Signal is an immutable record emitted by the strategy engine.
type Signal struct {
	Timestamp  time.Time          // Timestamp of the row that fired
	Symbol     string             // Instrument the signal refers to
	Price      float64            // Close price of the row that fired
	Label      string             // Signal label, e.g. "BUY"
	Strategy   string             // Name of the strategy that fired
	Direction  Direction          // Configured direction of the strategy
	Reasons    []string           // One human-readable reason per required condition
	Confluence int                // Count of true conditions over the full condition set
	Conditions map[string]bool    // Required conditions of the firing strategy only
	Indicators map[string]float64 // Allow-listed indicator values at the row
}
