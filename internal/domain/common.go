package domain

// Direction is the market bias attached to a signal.
type Direction string

const (
	DirectionLong    Direction = "long"
	DirectionShort   Direction = "short"
	DirectionNeutral Direction = "neutral"
)

// SignalNeutral is the label used when a strategy names none,
// and the dashboard's label before any strategy has fired.
const SignalNeutral = "NEUTRAL"
