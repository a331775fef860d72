package app

import (
	"sync"

	"wickrSignals/internal/adapters/export"
	"wickrSignals/internal/domain"
)

// PriceSource reports the most recent observed price.
type PriceSource interface {
	LatestPrice() (float64, bool)
}

// State is the dashboard-facing view of the live service.
type State struct {
	mu            sync.RWMutex
	symbol        string
	currentSignal string
	signalData    *export.Record
	clients       int
	prices        PriceSource
}

// NewState starts with the NEUTRAL label and no clients.
func NewState(symbol string, prices PriceSource) *State {
	return &State{
		symbol:        symbol,
		currentSignal: domain.SignalNeutral,
		prices:        prices,
	}
}

// Symbol returns the instrument being tracked.
func (s *State) Symbol() string { return s.symbol }

// CurrentSignal returns the current label and, once a signal has fired, its record.
func (s *State) CurrentSignal() (string, *export.Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.signalData == nil {
		return s.currentSignal, nil
	}
	rec := *s.signalData
	return s.currentSignal, &rec
}

// UpdateSignal stores sig and reports whether its label differs from the current one.
// The record is replaced either way.
func (s *State) UpdateSignal(sig domain.Signal) bool {
	rec := export.ToRecord(sig)
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := sig.Label != s.currentSignal
	s.currentSignal = sig.Label
	s.signalData = &rec
	return changed
}

// LatestPrice returns the newest price seen by the feed.
func (s *State) LatestPrice() (float64, bool) {
	if s.prices == nil {
		return 0, false
	}
	return s.prices.LatestPrice()
}

// ClientConnected increments the client count and returns the new value.
func (s *State) ClientConnected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients++
	return s.clients
}

// ClientDisconnected decrements the client count and returns the new value.
func (s *State) ClientDisconnected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients > 0 {
		s.clients--
	}
	return s.clients
}

// Clients returns the number of connected dashboard clients.
func (s *State) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients
}
