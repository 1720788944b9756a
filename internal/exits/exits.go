package exits

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/domain/indicators"
	"github.com/edgerank/edgerank/internal/rules"
)

// Reason identifies the terminal state of a position. Ordering encodes
// precedence: when several conditions fire on the same session the lowest
// non-zero reason wins.
type Reason int

const (
	NoExit Reason = iota
	HardStop
	TargetHit
	TrailExit
	IndicatorExit
	TimeExit
)

func (r Reason) String() string {
	switch r {
	case NoExit:
		return "no_exit"
	case HardStop:
		return "hard_stop"
	case TargetHit:
		return "target_hit"
	case TrailExit:
		return "trail_exit"
	case IndicatorExit:
		return "indicator_exit"
	case TimeExit:
		return "time_exit"
	default:
		return "unknown"
	}
}

// Position carries the mutable state of one open trade
type Position struct {
	EntryIndex int
	EntryPrice float64

	maxClose   float64
	trailFloor []float64 // one running Chandelier floor per trail condition
}

// condition is one precompiled exit predicate. fires must be cheap: all
// indicator series are computed once when the evaluator is built.
type condition struct {
	name  string
	fires func(pos *Position, day int, close float64) bool
}

// Evaluator resolves exit conditions for one (instrument, combination)
// simulation. Conditions are grouped by precedence class; within a class
// configuration order decides. Not safe for concurrent use: positions are
// sequential within a simulation pass.
type Evaluator struct {
	table      *data.PriceTable
	holdPeriod int

	hardStops  []condition
	targets    []condition
	trails     []condition
	reversals  []condition
	trailCount int
}

// NewEvaluator compiles the exit condition set against a price table. An
// invalid parameter or unknown exit type is returned as an error so the
// caller can skip just this combination.
func NewEvaluator(logger zerolog.Logger, table *data.PriceTable, defs []rules.Definition, holdPeriod int) (*Evaluator, error) {
	if holdPeriod <= 0 {
		return nil, fmt.Errorf("%w: hold period must be positive, got %d", rules.ErrInvalidParameter, holdPeriod)
	}

	e := &Evaluator{table: table, holdPeriod: holdPeriod}
	for _, def := range defs {
		if err := e.compile(logger, def); err != nil {
			return nil, fmt.Errorf("exit %q: %w", def.Name, err)
		}
	}
	return e, nil
}

func (e *Evaluator) compile(logger zerolog.Logger, def rules.Definition) error {
	closes := e.table.Closes()

	switch def.Type {
	case "stop_loss_pct":
		pct, err := def.Params.Float("pct")
		if err != nil {
			return err
		}
		e.hardStops = append(e.hardStops, condition{
			name: def.Name,
			fires: func(pos *Position, day int, close float64) bool {
				return close <= pos.EntryPrice*(1.0-pct)
			},
		})

	case "take_profit_pct":
		pct, err := def.Params.Float("pct")
		if err != nil {
			return err
		}
		e.targets = append(e.targets, condition{
			name: def.Name,
			fires: func(pos *Position, day int, close float64) bool {
				return close >= pos.EntryPrice*(1.0+pct)
			},
		})

	case "stop_loss_atr":
		atr, mult, err := e.atrParams(def.Params)
		if err != nil {
			return err
		}
		e.hardStops = append(e.hardStops, condition{
			name: def.Name,
			fires: func(pos *Position, day int, close float64) bool {
				// Stop level tracks the then-current ATR, adapting risk
				// to the instrument's native volatility.
				if math.IsNaN(atr[day]) {
					logger.Debug().Str("exit", def.Name).Msg("atr not yet available, stop inactive")
					return false
				}
				// Strict: with ATR near zero the level collapses onto the
				// entry price and a flat series must not stop out.
				return close < pos.EntryPrice-mult*atr[day]
			},
		})

	case "take_profit_atr":
		atr, mult, err := e.atrParams(def.Params)
		if err != nil {
			return err
		}
		e.targets = append(e.targets, condition{
			name: def.Name,
			fires: func(pos *Position, day int, close float64) bool {
				if math.IsNaN(atr[day]) {
					logger.Debug().Str("exit", def.Name).Msg("atr not yet available, target inactive")
					return false
				}
				return close > pos.EntryPrice+mult*atr[day]
			},
		})

	case "trailing_stop_pct":
		pct, err := def.Params.Float("pct")
		if err != nil {
			return err
		}
		e.trails = append(e.trails, condition{
			name: def.Name,
			fires: func(pos *Position, day int, close float64) bool {
				// Armed only after the trade has first been up by the
				// trail percentage, so a fresh entry cannot stop out on
				// noise around the entry price.
				if pos.maxClose < pos.EntryPrice*(1.0+pct) {
					return false
				}
				return close <= pos.maxClose*(1.0-pct)
			},
		})

	case "chandelier_exit":
		period, err := def.Params.Int("period")
		if err != nil {
			return err
		}
		mult, err := def.Params.FloatOr("multiplier", 3.0)
		if err != nil {
			return err
		}
		atr := indicators.ATR(e.table.Bars, period)
		hh := indicators.HighestHigh(e.table.Bars, period)
		slot := e.trailCount
		e.trailCount++
		e.trails = append(e.trails, condition{
			name: def.Name,
			fires: func(pos *Position, day int, close float64) bool {
				if math.IsNaN(atr[day]) || math.IsNaN(hh[day]) {
					logger.Debug().Str("exit", def.Name).Msg("lookback not yet available, trail inactive")
					return false
				}
				level := hh[day] - mult*atr[day]
				// The floor only ever tightens as new highs are made.
				if level > pos.trailFloor[slot] {
					pos.trailFloor[slot] = level
				}
				return close < pos.trailFloor[slot]
			},
		})

	case "ma_cross_exit":
		fast, err := def.Params.Int("fast_period")
		if err != nil {
			return err
		}
		slow, err := def.Params.Int("slow_period")
		if err != nil {
			return err
		}
		fastMA := indicators.SMA(closes, fast)
		slowMA := indicators.SMA(closes, slow)
		e.reversals = append(e.reversals, condition{
			name: def.Name,
			fires: func(pos *Position, day int, close float64) bool {
				return !math.IsNaN(fastMA[day]) && !math.IsNaN(slowMA[day]) && fastMA[day] < slowMA[day]
			},
		})

	default:
		return fmt.Errorf("%w: %q", rules.ErrUnknownRuleType, def.Type)
	}
	return nil
}

func (e *Evaluator) atrParams(params rules.Params) ([]float64, float64, error) {
	period, err := params.Int("period")
	if err != nil {
		return nil, 0, err
	}
	mult, err := params.Float("multiplier")
	if err != nil {
		return nil, 0, err
	}
	return indicators.ATR(e.table.Bars, period), mult, nil
}

// Open starts a new position at the close of the given session
func (e *Evaluator) Open(day int) *Position {
	price := e.table.Bars[day].Close
	return &Position{
		EntryIndex: day,
		EntryPrice: price,
		maxClose:   price,
		trailFloor: negInfSlice(e.trailCount),
	}
}

// Evaluate resolves all exit conditions for one session of an open
// position. Precedence: hard stop, then take-profit and trailing, then
// indicator reversal, then the unconditional hold-period fallback.
func (e *Evaluator) Evaluate(pos *Position, day int) Reason {
	close := e.table.Bars[day].Close
	if close > pos.maxClose {
		pos.maxClose = close
	}

	for _, groups := range []struct {
		conds  []condition
		reason Reason
	}{
		{e.hardStops, HardStop},
		{e.targets, TargetHit},
		{e.trails, TrailExit},
		{e.reversals, IndicatorExit},
	} {
		for _, c := range groups.conds {
			if c.fires(pos, day, close) {
				return groups.reason
			}
		}
	}

	if day-pos.EntryIndex >= e.holdPeriod {
		return TimeExit
	}
	return NoExit
}

// HoldPeriod returns the configured unconditional exit horizon
func (e *Evaluator) HoldPeriod() int {
	return e.holdPeriod
}

func negInfSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Inf(-1)
	}
	return out
}
