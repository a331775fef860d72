package strategy

import (
	"errors"
	"fmt"
	"time"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
)

// Definition is one configured strategy.
type Definition struct {
	Name          string           `yaml:"name" json:"name"`
	Conditions    []string         `yaml:"conditions" json:"conditions"`
	MinConfluence *int             `yaml:"min_confluence" json:"min_confluence,omitempty"`
	Signal        string           `yaml:"signal" json:"signal"`
	Direction     domain.Direction `yaml:"direction" json:"direction"`
	Enabled       *bool            `yaml:"enabled" json:"enabled,omitempty"`
}

// IsEnabled reports whether the strategy takes part in evaluation. Unset means enabled.
func (d Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Label returns the signal label, NEUTRAL when none is configured.
func (d Definition) Label() string {
	if d.Signal == "" {
		return domain.SignalNeutral
	}
	return d.Signal
}

// RequiredConfluence returns the strategy's own confluence floor.
// It defaults to the number of required conditions.
func (d Definition) RequiredConfluence() int {
	if d.MinConfluence != nil {
		return *d.MinConfluence
	}
	return len(d.Conditions)
}

// Settings are the global signal settings applied to every strategy.
type Settings struct {
	MinConfluenceCount       int     `yaml:"min_confluence_count" json:"min_confluence_count"`
	IgnoreLowVolatility      bool    `yaml:"ignore_low_volatility" json:"ignore_low_volatility"`
	MinSignalIntervalMinutes float64 `yaml:"min_signal_interval_minutes" json:"min_signal_interval_minutes"`
}

// DefaultSettings returns the standard signal settings.
func DefaultSettings() Settings {
	return Settings{MinConfluenceCount: 1}
}

// MinSignalInterval returns the debounce interval; zero disables debouncing.
func (s Settings) MinSignalInterval() time.Duration {
	return time.Duration(s.MinSignalIntervalMinutes * float64(time.Minute))
}

// Validate checks the settings and every strategy definition.
func Validate(settings Settings, defs []Definition) error {
	var errs []error
	if settings.MinConfluenceCount < 0 {
		errs = append(errs, &ports.InvalidConfigError{Field: "signal_settings.min_confluence_count", Reason: "cannot be negative"})
	}
	if settings.MinSignalIntervalMinutes < 0 {
		errs = append(errs, &ports.InvalidConfigError{Field: "signal_settings.min_signal_interval_minutes", Reason: "cannot be negative"})
	}

	names := make(map[string]bool, len(defs))
	for i, d := range defs {
		field := fmt.Sprintf("strategies[%d]", i)
		if d.Name == "" {
			errs = append(errs, &ports.InvalidConfigError{Field: field + ".name", Reason: "is required"})
		} else if names[d.Name] {
			errs = append(errs, &ports.InvalidConfigError{Field: field + ".name", Reason: fmt.Sprintf("duplicate strategy name %q", d.Name)})
		}
		names[d.Name] = true

		if d.MinConfluence != nil && *d.MinConfluence < 0 {
			errs = append(errs, &ports.InvalidConfigError{Field: field + ".min_confluence", Reason: "cannot be negative"})
		}
		for j, c := range d.Conditions {
			if c == "" {
				errs = append(errs, &ports.InvalidConfigError{Field: fmt.Sprintf("%s.conditions[%d]", field, j), Reason: "condition name is empty"})
			}
		}
	}
	return errors.Join(errs...)
}
