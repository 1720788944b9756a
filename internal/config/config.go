package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edgerank/edgerank/internal/rules"
)

// Weights splits the edge score between win percentage and Sharpe.
// Invariant: the two weights sum to 1.0.
type Weights struct {
	WinPct float64 `yaml:"win_pct_weight"`
	Sharpe float64 `yaml:"sharpe_weight"`
}

// Validate checks the weight-sum invariant
func (w Weights) Validate() error {
	if math.Abs(w.WinPct+w.Sharpe-1.0) > 1e-9 {
		return fmt.Errorf("edge score weights must sum to 1.0, got %v", w.WinPct+w.Sharpe)
	}
	return nil
}

// RulesConfig is the full strategy-family definition: the mandatory
// baseline stack, optional layers tested one at a time on top of it, the
// exit condition set, market-index context filters, and instrument
// preconditions. Loaded once per run and shared read-only.
type RulesConfig struct {
	Baseline       []rules.Definition `yaml:"baseline"`
	Layers         []rules.Definition `yaml:"layers"`
	Exits          []rules.Definition `yaml:"exits"`
	ContextFilters []rules.Definition `yaml:"context_filters"`
	Preconditions  []rules.Definition `yaml:"preconditions"`
}

// ScanConfig carries the scalar knobs around a scan
type ScanConfig struct {
	Weights            Weights `yaml:"weights"`
	HoldPeriod         int     `yaml:"hold_period"`
	MinTradesThreshold int     `yaml:"min_trades_threshold"`
	PreconditionWindow int     `yaml:"precondition_window"`
	TopPerSymbol       int     `yaml:"top_per_symbol"`
	Workers            int     `yaml:"workers"`
}

// Config is the root of the yaml configuration file
type Config struct {
	Rules RulesConfig `yaml:"rules"`
	Scan  ScanConfig  `yaml:"scan"`
}

// DefaultScanConfig returns the scan knobs used when the file leaves them out
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Weights:            Weights{WinPct: 0.6, Sharpe: 0.4},
		HoldPeriod:         20,
		MinTradesThreshold: 10,
		PreconditionWindow: 30,
		TopPerSymbol:       3,
		Workers:            4,
	}
}

// Load reads and validates a configuration file
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{Scan: DefaultScanConfig()}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects malformed configuration before it reaches the engine
func (c *Config) Validate() error {
	if len(c.Rules.Baseline) == 0 {
		return fmt.Errorf("baseline rule stack is required")
	}
	if err := c.Scan.Weights.Validate(); err != nil {
		return err
	}
	if c.Scan.HoldPeriod <= 0 {
		return fmt.Errorf("hold_period must be positive, got %d", c.Scan.HoldPeriod)
	}
	if c.Scan.MinTradesThreshold < 0 {
		return fmt.Errorf("min_trades_threshold must not be negative, got %d", c.Scan.MinTradesThreshold)
	}
	if c.Scan.TopPerSymbol <= 0 {
		return fmt.Errorf("top_per_symbol must be positive, got %d", c.Scan.TopPerSymbol)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Scan.Workers)
	}

	seen := make(map[string]bool)
	for _, set := range [][]rules.Definition{
		c.Rules.Baseline, c.Rules.Layers,
	} {
		for _, def := range set {
			if def.Name == "" || def.Type == "" {
				return fmt.Errorf("rule with empty name or type")
			}
			if seen[def.Name] {
				return fmt.Errorf("duplicate rule name %q", def.Name)
			}
			seen[def.Name] = true
		}
	}
	for _, set := range [][]rules.Definition{
		c.Rules.Exits, c.Rules.ContextFilters, c.Rules.Preconditions,
	} {
		for _, def := range set {
			if def.Name == "" || def.Type == "" {
				return fmt.Errorf("rule with empty name or type")
			}
		}
	}
	return nil
}
