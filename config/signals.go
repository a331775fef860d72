package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"wickrSignals/internal/strategy"
	"wickrSignals/internal/strategy/conditions"
	"wickrSignals/internal/strategy/indicators"
)

// SignalConfig is the signal document: thresholds, indicator parameters,
// global signal settings and the strategy list.
type SignalConfig struct {
	Thresholds conditions.Thresholds `yaml:"thresholds" json:"thresholds"`
	Indicators indicators.Params     `yaml:"indicator_parameters" json:"indicator_parameters"`
	Settings   strategy.Settings     `yaml:"signal_settings" json:"signal_settings"`
	Strategies []strategy.Definition `yaml:"strategies" json:"strategies"`
}

// DefaultSignalConfig returns the built-in document with no strategies.
func DefaultSignalConfig() *SignalConfig {
	return &SignalConfig{
		Thresholds: conditions.DefaultThresholds(),
		Indicators: indicators.DefaultParams(),
		Settings:   strategy.DefaultSettings(),
	}
}

// LoadSignalConfig reads a YAML or JSON signal document from path.
// Keys missing from the document keep their defaults.
func LoadSignalConfig(path string) (*SignalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signal config %s: %w", path, err)
	}
	cfg, err := ParseSignalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("signal config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadSignalConfigOrDefault is LoadSignalConfig, except that an empty path or a
// missing file yields the built-in defaults. found reports whether a file was read.
func LoadSignalConfigOrDefault(path string) (cfg *SignalConfig, found bool, err error) {
	if path == "" {
		return DefaultSignalConfig(), false, nil
	}
	cfg, err = LoadSignalConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSignalConfig(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseSignalConfig decodes a signal document over the defaults and validates it.
// JSON documents are accepted since they are valid YAML.
func ParseSignalConfig(data []byte) (*SignalConfig, error) {
	cfg := DefaultSignalConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode signal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns every configuration problem joined into one error.
func (c *SignalConfig) Validate() error {
	var errs []error
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := indicators.NewPipeline(c.Indicators); err != nil {
		errs = append(errs, err)
	}
	if err := strategy.Validate(c.Settings, c.Strategies); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
