package scan

import (
	"strings"

	"github.com/edgerank/edgerank/internal/rules"
)

// Result is the ranked output for one evaluated combination
type Result struct {
	Symbol      string   `json:"symbol" db:"symbol"`
	RuleStack   []string `json:"rule_stack"`
	EdgeScore   float64  `json:"edge_score" db:"edge_score"`
	WinPct      float64  `json:"win_pct" db:"win_pct"`
	Sharpe      float64  `json:"sharpe" db:"sharpe"`
	TotalTrades int      `json:"total_trades" db:"total_trades"`
	AvgReturn   float64  `json:"avg_return" db:"avg_return"`
	TotalReturn float64  `json:"total_return" db:"total_return"`
	MaxDrawdown float64  `json:"max_drawdown" db:"max_drawdown"`
}

// Combination is one candidate rule stack: the baseline alone, or the
// baseline plus exactly one optional layer. Layers are never combined
// with each other, which bounds the search to O(layers).
type Combination struct {
	Name  string
	Stack []rules.Definition
}

// enumerate builds the combination space for a run
func enumerate(baseline, layers []rules.Definition) []Combination {
	combos := make([]Combination, 0, len(layers)+1)
	combos = append(combos, Combination{
		Name:  strings.Join(rules.Names(baseline), "+"),
		Stack: baseline,
	})
	for _, layer := range layers {
		stack := make([]rules.Definition, 0, len(baseline)+1)
		stack = append(stack, baseline...)
		stack = append(stack, layer)
		combos = append(combos, Combination{
			Name:  strings.Join(rules.Names(stack), "+"),
			Stack: stack,
		})
	}
	return combos
}

// outcome makes skip paths explicit data instead of caught exceptions:
// a combination either produced a result or carries the reason it did not
type outcome struct {
	combo  string
	result *Result
	skip   string
}

// Observer receives scan progress events. The monitoring layer implements
// it with Prometheus collectors; the zero value NopObserver keeps the
// engine free of any metrics dependency.
type Observer interface {
	InstrumentScanned(symbol string, skipped bool)
	CombinationEvaluated(symbol string, discarded bool)
}

// NopObserver ignores all events
type NopObserver struct{}

func (NopObserver) InstrumentScanned(string, bool)    {}
func (NopObserver) CombinationEvaluated(string, bool) {}
