package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgerank/edgerank/internal/rules"
)

func validConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			Baseline: []rules.Definition{
				{Name: "trend", Type: "sma_crossover", Params: rules.Params{"fast_period": 20, "slow_period": 50}},
			},
		},
		Scan: DefaultScanConfig(),
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"default split", Weights{WinPct: 0.6, Sharpe: 0.4}, false},
		{"all win pct", Weights{WinPct: 1.0}, false},
		{"under one", Weights{WinPct: 0.5, Sharpe: 0.4}, true},
		{"over one", Weights{WinPct: 0.7, Sharpe: 0.4}, true},
		{"zero", Weights{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_RequiresBaseline(t *testing.T) {
	cfg := validConfig()
	cfg.Rules.Baseline = nil
	assert.ErrorContains(t, cfg.Validate(), "baseline")
}

func TestValidate_RejectsDuplicateEntryRuleNames(t *testing.T) {
	cfg := validConfig()
	cfg.Rules.Layers = []rules.Definition{
		{Name: "trend", Type: "momentum_above", Params: rules.Params{"period": 63}},
	}
	assert.ErrorContains(t, cfg.Validate(), "duplicate rule name")
}

func TestValidate_RejectsNonPositiveScalars(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Scan.HoldPeriod = 0 },
		func(c *Config) { c.Scan.MinTradesThreshold = -1 },
		func(c *Config) { c.Scan.TopPerSymbol = 0 },
		func(c *Config) { c.Scan.Workers = 0 },
	} {
		cfg := validConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate())
	}
}

func TestLoad_AppliesDefaultsForMissingScanKeys(t *testing.T) {
	path := writeConfig(t, `
rules:
  baseline:
    - name: trend
      type: sma_crossover
      params:
        fast_period: 20
        slow_period: 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultScanConfig(), cfg.Scan)
	require.Len(t, cfg.Rules.Baseline, 1)
	assert.Equal(t, "sma_crossover", cfg.Rules.Baseline[0].Type)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
rules:
  baseline:
    - name: trend
      type: price_above_sma
      params:
        period: 100
  layers:
    - name: mom
      type: momentum_above
      params:
        period: 63
scan:
  weights:
    win_pct_weight: 0.7
    sharpe_weight: 0.3
  hold_period: 15
  min_trades_threshold: 5
  top_per_symbol: 2
  workers: 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Weights{WinPct: 0.7, Sharpe: 0.3}, cfg.Scan.Weights)
	assert.Equal(t, 15, cfg.Scan.HoldPeriod)
	assert.Equal(t, 5, cfg.Scan.MinTradesThreshold)
	assert.Equal(t, 2, cfg.Scan.TopPerSymbol)
	assert.Equal(t, 8, cfg.Scan.Workers)
	// Unset keys keep their defaults.
	assert.Equal(t, 30, cfg.Scan.PreconditionWindow)
}

func TestLoad_RejectsBadWeights(t *testing.T) {
	path := writeConfig(t, `
rules:
  baseline:
    - name: trend
      type: price_above_sma
      params:
        period: 100
scan:
  weights:
    win_pct_weight: 0.9
    sharpe_weight: 0.9
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "sum to 1.0")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
