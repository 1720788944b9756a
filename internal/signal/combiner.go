package signal

import (
	"fmt"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/rules"
)

// Combiner turns a rule stack into one entry-signal series
type Combiner struct {
	registry *rules.Registry
}

// NewCombiner creates a combiner over the given rule registry
func NewCombiner(registry *rules.Registry) *Combiner {
	return &Combiner{registry: registry}
}

// Combine evaluates every rule in the stack against the table and ANDs the
// outputs into a single entry series. A parameter or dispatch error in any
// member rule propagates so the caller can skip the whole combination.
// The context series, when present, is ANDed in last; it must already be
// aligned to the table's calendar.
func (c *Combiner) Combine(stack []rules.Definition, table *data.PriceTable, context []bool) ([]bool, error) {
	if len(stack) == 0 {
		return nil, fmt.Errorf("empty rule stack for %s", table.Symbol)
	}

	combined := make([]bool, table.Len())
	for i := range combined {
		combined[i] = true
	}

	for _, def := range stack {
		series, err := c.registry.Evaluate(def, table)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", def.Name, err)
		}
		combined = And(combined, series)
	}

	if context != nil {
		combined = And(combined, context)
	}
	return combined, nil
}
