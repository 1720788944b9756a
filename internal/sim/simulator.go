package sim

import (
	"time"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/exits"
)

// Trade is one completed round trip. Trades are ephemeral: scoped to a
// single (instrument, combination) simulation and discarded once metrics
// are derived.
type Trade struct {
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	ExitReason string    `json:"exit_reason"`
	Return     float64   `json:"return_pct"`
}

// Run walks the calendar once: open at the close of the first session the
// entry signal is true while flat, then evaluate exit conditions daily
// until one resolves. Positions never overlap. A position still open when
// the data ends is closed on the final session under the hold-period
// fallback.
func Run(table *data.PriceTable, entries []bool, evaluator *exits.Evaluator) ([]Trade, Metrics) {
	var trades []Trade
	var pos *exits.Position

	for day := 0; day < table.Len(); day++ {
		if pos == nil {
			if day < len(entries) && entries[day] {
				pos = evaluator.Open(day)
			}
			continue
		}

		reason := evaluator.Evaluate(pos, day)
		if reason == exits.NoExit {
			continue
		}
		trades = append(trades, closeTrade(table, pos, day, reason))
		pos = nil
	}

	// Data ran out under an open position.
	if pos != nil && table.Len() > 0 {
		trades = append(trades, closeTrade(table, pos, table.Len()-1, exits.TimeExit))
	}

	return trades, Compute(trades)
}

func closeTrade(table *data.PriceTable, pos *exits.Position, day int, reason exits.Reason) Trade {
	exitPrice := table.Bars[day].Close
	return Trade{
		EntryDate:  table.Bars[pos.EntryIndex].Date,
		EntryPrice: pos.EntryPrice,
		ExitDate:   table.Bars[day].Date,
		ExitPrice:  exitPrice,
		ExitReason: reason.String(),
		Return:     exitPrice/pos.EntryPrice - 1.0,
	}
}
