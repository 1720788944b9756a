package report

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/rules"
	"github.com/edgerank/edgerank/internal/signal"
)

// Recommendation is the outcome of re-applying a winning rule stack to the
// most recent session
type Recommendation struct {
	Symbol    string   `json:"symbol"`
	RuleStack []string `json:"rule_stack"`
	BuyToday  bool     `json:"buy_today"`
	AsOf      string   `json:"as_of"`
}

// CheckNewBuy re-applies only the winning stack to today's data: the entry
// signal on the last session decides whether a fresh recommendation is
// surfaced. Context gating already shaped the stack's historical score; at
// recommendation time the stack alone decides.
func CheckNewBuy(logger zerolog.Logger, registry *rules.Registry, table *data.PriceTable, stackNames []string, allRules []rules.Definition) (Recommendation, error) {
	rec := Recommendation{Symbol: table.Symbol, RuleStack: stackNames}

	last, ok := table.Last()
	if !ok {
		return rec, fmt.Errorf("no price history for %s", table.Symbol)
	}
	rec.AsOf = last.Date.Format("2006-01-02")

	stack, err := resolveStack(stackNames, allRules)
	if err != nil {
		return rec, err
	}

	entries, err := signal.NewCombiner(registry).Combine(stack, table, nil)
	if err != nil {
		return rec, fmt.Errorf("failed to re-apply stack for %s: %w", table.Symbol, err)
	}

	rec.BuyToday = entries[len(entries)-1]
	logger.Info().
		Str("symbol", table.Symbol).
		Strs("stack", stackNames).
		Bool("buy_today", rec.BuyToday).
		Msg("new-buy check")
	return rec, nil
}

// resolveStack maps stored rule names back to their definitions
func resolveStack(names []string, defs []rules.Definition) ([]rules.Definition, error) {
	byName := make(map[string]rules.Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	stack := make([]rules.Definition, 0, len(names))
	for _, name := range names {
		def, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("stored rule %q no longer in configuration", name)
		}
		stack = append(stack, def)
	}
	return stack, nil
}
