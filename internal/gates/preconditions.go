package gates

import (
	"github.com/rs/zerolog"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/rules"
)

// DefaultPreconditionWindow is how many recent sessions a precondition
// looks at when deciding whether an instrument has the right personality
const DefaultPreconditionWindow = 30

// PreconditionResult reports the gate decision for one instrument
type PreconditionResult struct {
	Passed     bool   `json:"passed"`
	FailedRule string `json:"failed_rule,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// PreconditionGate decides per instrument whether it is worth evaluating
// at all. Predicates look only at the tail of the history: the question is
// whether the instrument currently behaves the way the strategy family
// assumes, not whether it ever did.
type PreconditionGate struct {
	registry *rules.Registry
	window   int
}

// NewPreconditionGate creates a gate over the rule registry. A window of
// zero or less falls back to the default.
func NewPreconditionGate(registry *rules.Registry, window int) *PreconditionGate {
	if window <= 0 {
		window = DefaultPreconditionWindow
	}
	return &PreconditionGate{registry: registry, window: window}
}

// Check evaluates every precondition against the instrument. Evaluation is
// fail-closed: an error inside a predicate, or too little data to compute
// it, excludes the instrument the same way a false result does.
func (g *PreconditionGate) Check(logger zerolog.Logger, table *data.PriceTable, defs []rules.Definition) PreconditionResult {
	for _, def := range defs {
		series, err := g.registry.Evaluate(def, table)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("precondition", def.Name).
				Str("symbol", table.Symbol).
				Msg("precondition evaluation failed, excluding instrument")
			return PreconditionResult{Passed: false, FailedRule: def.Name, Reason: "evaluation error"}
		}

		// Most recent value inside the lookback window decides.
		start := len(series) - g.window
		if start < 0 {
			start = 0
		}
		recent := series[start:]
		if len(recent) == 0 || !recent[len(recent)-1] {
			logger.Debug().
				Str("precondition", def.Name).
				Str("symbol", table.Symbol).
				Msg("precondition not met")
			return PreconditionResult{Passed: false, FailedRule: def.Name, Reason: "predicate false"}
		}
	}
	return PreconditionResult{Passed: true}
}
