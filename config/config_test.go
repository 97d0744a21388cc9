package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
symbols:
  - symbol: EUR/USD
    class: forex
`

func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Request.Deadline)
	assert.Equal(t, 10*time.Second, cfg.Request.ProviderTimeout)
	assert.Equal(t, 55.0, cfg.Thresholds.Floor)
	assert.Equal(t, 90.0, cfg.Thresholds.Ceiling)
	assert.Equal(t, 8.0, cfg.Thresholds.VolAdjustFactor)
	assert.Equal(t, 10.0, cfg.Thresholds.UnknownRegimePenalty)
	assert.Equal(t, 2.0, cfg.Strategies.RiskRewardMultiple)
	assert.Equal(t, 20.0, cfg.Regime.StableADXMax)
	assert.Equal(t, 0.2, cfg.Macro.DisagreeThreshold)
	assert.Equal(t, 0.7, cfg.Macro.DampeningFactor)
	assert.Equal(t, 0.01, cfg.Risk.BaseRiskFraction)

	// Derived map/slice defaults land even without any file keys.
	assert.Equal(t, 4.0, cfg.Regime.TimeframeWeights["4h"])
	assert.Equal(t, []string{"5min", "15min", "1h", "4h"}, cfg.MarketData.Timeframes)

	require.Len(t, cfg.Symbols, 1)
	assert.Equal(t, "EUR/USD", cfg.Symbols[0].Symbol)
	assert.Equal(t, "forex", cfg.Symbols[0].Class)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
symbols:
  - symbol: BTC/USD
    class: crypto
request:
  deadline: 5s
thresholds:
  base:
    crypto: 80
  floor: 60
sessions:
  - name: london-open
    start_hour: 7
    end_hour: 10
    bias: 4
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Request.Deadline)
	assert.Equal(t, 80.0, cfg.Thresholds.BaseThreshold("crypto"))
	assert.Equal(t, 60.0, cfg.Thresholds.Floor)
	require.Len(t, cfg.Sessions, 1)
	assert.Equal(t, 4.0, cfg.Sessions[0].Bias)
	assert.False(t, cfg.Sessions[0].Block)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no symbols", `log_level: info`},
		{"symbol without name", "symbols:\n  - class: forex"},
		{"session hour out of range", minimalConfig + "sessions:\n  - name: x\n    start_hour: 26\n    end_hour: 4"},
		{"session without name", minimalConfig + "sessions:\n  - start_hour: 1\n    end_hour: 4"},
		{"base threshold out of range", minimalConfig + "thresholds:\n  base:\n    forex: 140"},
		{"non-positive timeframe weight", minimalConfig + "regime:\n  timeframe_weights:\n    5min: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestBaseThresholdFallback(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 72.0, cfg.Thresholds.BaseThreshold("forex"))
	assert.Equal(t, 75.0, cfg.Thresholds.BaseThreshold("crypto"))
	assert.Equal(t, 72.0, cfg.Thresholds.BaseThreshold("FOREX"), "class lookup ignores case")
	assert.Equal(t, 72.0, cfg.Thresholds.BaseThreshold("commodity"), "unknown class uses the default base")
}

func TestStoreSnapshotAndSwap(t *testing.T) {
	first := Default()
	store := NewStaticStore(first)
	assert.Same(t, first, store.Snapshot())

	// A snapshot taken before a swap keeps pointing at the old config.
	held := store.Snapshot()
	second := Default()
	second.LogLevel = "debug"
	store.current.Store(second)

	assert.Same(t, first, held)
	assert.Same(t, second, store.Snapshot())
}

func TestReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	store, err := NewStore(path)
	require.NoError(t, err)
	before := store.Snapshot()

	// Break the file on disk; reload must refuse it and keep serving the
	// last good snapshot.
	require.NoError(t, os.WriteFile(path, []byte("log_level: info"), 0o600))
	store.reload()
	assert.Same(t, before, store.Snapshot())

	// A valid rewrite takes effect.
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+"log_level: debug"), 0o600))
	store.reload()
	assert.Equal(t, "debug", store.Snapshot().LogLevel)
}
