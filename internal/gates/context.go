package gates

import (
	"github.com/rs/zerolog"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/rules"
	"github.com/edgerank/edgerank/internal/signal"
)

// ContextFilter gates time periods rather than whole instruments: trade
// only while the broad market index satisfies every configured filter.
type ContextFilter struct {
	registry *rules.Registry
}

// NewContextFilter creates a filter evaluator over the rule registry
func NewContextFilter(registry *rules.Registry) *ContextFilter {
	return &ContextFilter{registry: registry}
}

// Series evaluates all context filters against the market index and ANDs
// them into one boolean series over the index calendar. With no filters
// configured the result is nil, meaning "no gating". A missing index or a
// filter failure degrades to an all-false series: no signals pass, the run
// does not abort.
func (cf *ContextFilter) Series(logger zerolog.Logger, index *data.PriceTable, defs []rules.Definition) []bool {
	if len(defs) == 0 {
		return nil
	}
	if index == nil || index.Len() == 0 {
		logger.Warn().Msg("context filters configured but index data unavailable, gating everything out")
		return []bool{}
	}

	combined := make([]bool, index.Len())
	for i := range combined {
		combined[i] = true
	}
	for _, def := range defs {
		series := cf.registry.EvaluateSafe(logger, def, index)
		combined = signal.And(combined, series)
	}
	return combined
}

// Align re-indexes an index-calendar context series onto the instrument's
// calendar with forward-fill, leading dates false. A nil series means no
// gating and stays nil.
func (cf *ContextFilter) Align(context []bool, index *data.PriceTable, table *data.PriceTable) []bool {
	if context == nil {
		return nil
	}
	if index == nil || len(context) == 0 {
		// Degraded all-false context still has to cover the instrument
		// calendar so the combiner can AND it in.
		return make([]bool, table.Len())
	}
	return signal.Reindex(index.Dates(), context, table.Dates())
}
