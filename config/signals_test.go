package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
)

const yamlDoc = `
thresholds:
  rsi:
    oversold: 25
  bollinger:
    low_volatility_width: 0.02
indicator_parameters:
  ema:
    periods: [9, 21]
signal_settings:
  min_confluence_count: 2
  ignore_low_volatility: true
  min_signal_interval_minutes: 15
strategies:
  - name: rsi_macd_reversal
    conditions: [rsi_oversold, macd_bullish_cross]
    signal: BUY
    direction: long
  - name: overbought_fade
    conditions: [rsi_overbought]
    min_confluence: 3
    signal: SELL
    direction: short
    enabled: false
`

const jsonDoc = `{
  "thresholds": {"macd": {"min_histogram": 0.5}},
  "strategies": [{"name": "spike", "conditions": ["volume_spike"], "signal": "WATCH"}]
}`

func TestParseSignalConfig_YAML(t *testing.T) {
	cfg, err := ParseSignalConfig([]byte(yamlDoc))
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.Thresholds.RSI.Oversold)
	assert.Equal(t, 70.0, cfg.Thresholds.RSI.Overbought, "unset keys keep defaults")
	require.NotNil(t, cfg.Thresholds.Bollinger.LowVolatilityWidth)
	assert.Equal(t, 0.02, *cfg.Thresholds.Bollinger.LowVolatilityWidth)
	assert.Equal(t, 0.01, cfg.Thresholds.Bollinger.TouchTolerance)

	assert.Equal(t, []int{9, 21}, cfg.Indicators.EMA.Periods)
	assert.Equal(t, 14, cfg.Indicators.RSI.Period)

	assert.Equal(t, 2, cfg.Settings.MinConfluenceCount)
	assert.True(t, cfg.Settings.IgnoreLowVolatility)
	assert.Equal(t, 15.0, cfg.Settings.MinSignalIntervalMinutes)

	require.Len(t, cfg.Strategies, 2)
	assert.Equal(t, domain.DirectionLong, cfg.Strategies[0].Direction)
	assert.True(t, cfg.Strategies[0].IsEnabled())
	assert.False(t, cfg.Strategies[1].IsEnabled())
	require.NotNil(t, cfg.Strategies[1].MinConfluence)
	assert.Equal(t, 3, *cfg.Strategies[1].MinConfluence)
}

func TestParseSignalConfig_JSON(t *testing.T) {
	cfg, err := ParseSignalConfig([]byte(jsonDoc))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Thresholds.MACD.MinHistogram)
	assert.Equal(t, 1, cfg.Settings.MinConfluenceCount)
	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, "WATCH", cfg.Strategies[0].Label())
}

func TestParseSignalConfig_Empty(t *testing.T) {
	cfg, err := ParseSignalConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSignalConfig().Thresholds, cfg.Thresholds)
	assert.Empty(t, cfg.Strategies)
}

func TestParseSignalConfig_CollectsAllErrors(t *testing.T) {
	doc := `
thresholds:
  rsi: {oversold: 80, overbought: 20}
indicator_parameters:
  macd: {fast_period: 26, slow_period: 12, signal_period: 9}
signal_settings:
  min_confluence_count: -1
strategies:
  - conditions: [rsi_oversold]
`
	_, err := ParseSignalConfig([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))

	msg := err.Error()
	assert.Contains(t, msg, "thresholds.rsi")
	assert.Contains(t, msg, "indicator_parameters.macd.fast_period")
	assert.Contains(t, msg, "signal_settings.min_confluence_count")
	assert.Contains(t, msg, "strategies[0].name")
}

func TestParseSignalConfig_UnknownKey(t *testing.T) {
	_, err := ParseSignalConfig([]byte("signal_settings:\n  min_confluence: 2\n"))
	assert.ErrorContains(t, err, "failed to decode signal config")
}

func TestLoadSignalConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := LoadSignalConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Strategies, 2)

	_, err = LoadSignalConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSignalConfigOrDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("strategies: {"), 0o644))

	tests := []struct {
		name       string
		path       string
		found      bool
		strategies int
		wantErr    bool
	}{
		{name: "empty path", path: "", found: false},
		{name: "missing file", path: filepath.Join(dir, "missing.yaml"), found: false},
		{name: "file", path: path, found: true, strategies: 2},
		{name: "broken file", path: bad, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, found, err := LoadSignalConfigOrDefault(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.Len(t, cfg.Strategies, tt.strategies)
		})
	}
}
