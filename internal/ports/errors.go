package ports

import (
	"errors"
	"fmt"
)

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrDecodeFailed         = errors.New("malformed market data message")

	// Pipeline Errors
	ErrInsufficientData     = errors.New("not enough candles for indicator")
	ErrInsufficientSeedData = errors.New("not enough seed candles")
	ErrSubscriberFailed     = errors.New("subscriber callback failed")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrPublish      = errors.New("signal publish failed")
)

// InsufficientDataError is returned when a window is shorter than an indicator's lookback.
type InsufficientDataError struct {
	Indicator string
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: required=%d available=%d", e.Indicator, e.Required, e.Available)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// InsufficientSeedDataError is returned when the historical seed is too short.
type InsufficientSeedDataError struct {
	Required  int
	Available int
}

func (e *InsufficientSeedDataError) Error() string {
	return fmt.Sprintf("seed: required=%d available=%d", e.Required, e.Available)
}

// Is reports whether target is ErrInsufficientSeedData.
func (e *InsufficientSeedDataError) Is(target error) bool {
	return target == ErrInsufficientSeedData
}

// InvalidConfigError names a configuration field and why it was rejected.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfigurationError.
func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrConfigurationError
}

// CallbackError wraps a failure (error or panic) raised by a stream subscriber.
type CallbackError struct {
	Subscriber string
	Event      string
	Err        error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("subscriber %s failed on %s: %v", e.Subscriber, e.Event, e.Err)
}

func (e *CallbackError) Unwrap() []error {
	return []error{ErrSubscriberFailed, e.Err}
}

// TransportError reports a transient failure of the live feed session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrConnectionFailed, e.Err}
}
