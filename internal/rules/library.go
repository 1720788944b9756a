package rules

import (
	"math"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/domain/indicators"
)

// builtins returns the rule library. Every function maps a price table to
// one boolean per session; warmup positions (NaN indicator values) are
// false. The same functions serve entry rules, context filters, and
// preconditions — what differs is the table they are pointed at and how
// the caller consumes the series.
func builtins() map[string]Func {
	return map[string]Func{
		"sma_crossover":    smaCrossover,
		"ema_crossover":    emaCrossover,
		"price_above_sma":  priceAboveSMA,
		"rsi_below":        rsiBelow,
		"rsi_above":        rsiAbove,
		"momentum_above":   momentumAbove,
		"volume_above_sma": volumeAboveSMA,
		"atr_pct_above":    atrPctAbove,
	}
}

// smaCrossover is true while the fast SMA sits above the slow SMA
func smaCrossover(table *data.PriceTable, params Params) ([]bool, error) {
	fast, err := params.Int("fast_period")
	if err != nil {
		return nil, err
	}
	slow, err := params.Int("slow_period")
	if err != nil {
		return nil, err
	}
	closes := table.Closes()
	return greaterThan(indicators.SMA(closes, fast), indicators.SMA(closes, slow)), nil
}

// emaCrossover is true while the fast EMA sits above the slow EMA
func emaCrossover(table *data.PriceTable, params Params) ([]bool, error) {
	fast, err := params.Int("fast_period")
	if err != nil {
		return nil, err
	}
	slow, err := params.Int("slow_period")
	if err != nil {
		return nil, err
	}
	closes := table.Closes()
	return greaterThan(indicators.EMA(closes, fast), indicators.EMA(closes, slow)), nil
}

// priceAboveSMA is true while the close sits above its own moving average.
// Applied to an index table this is the classic market-uptrend context
// filter; applied over a recent window it is a trend precondition.
func priceAboveSMA(table *data.PriceTable, params Params) ([]bool, error) {
	period, err := params.Int("period")
	if err != nil {
		return nil, err
	}
	closes := table.Closes()
	return greaterThan(closes, indicators.SMA(closes, period)), nil
}

// rsiBelow is true while RSI is under the threshold (oversold entries)
func rsiBelow(table *data.PriceTable, params Params) ([]bool, error) {
	period, err := params.Int("period")
	if err != nil {
		return nil, err
	}
	threshold, err := params.Float("threshold")
	if err != nil {
		return nil, err
	}
	rsi := indicators.RSI(table.Closes(), period)
	out := make([]bool, len(rsi))
	for i, v := range rsi {
		out[i] = !math.IsNaN(v) && v < threshold
	}
	return out, nil
}

// rsiAbove is true while RSI is over the threshold (momentum confirmation)
func rsiAbove(table *data.PriceTable, params Params) ([]bool, error) {
	period, err := params.Int("period")
	if err != nil {
		return nil, err
	}
	threshold, err := params.Float("threshold")
	if err != nil {
		return nil, err
	}
	rsi := indicators.RSI(table.Closes(), period)
	out := make([]bool, len(rsi))
	for i, v := range rsi {
		out[i] = !math.IsNaN(v) && v > threshold
	}
	return out, nil
}

// momentumAbove is true while the rate of change over the period exceeds
// min_roc (a fraction, optional, default 0)
func momentumAbove(table *data.PriceTable, params Params) ([]bool, error) {
	period, err := params.Int("period")
	if err != nil {
		return nil, err
	}
	minROC, err := params.FloatOr("min_roc", 0)
	if err != nil {
		return nil, err
	}
	roc := indicators.ROC(table.Closes(), period)
	out := make([]bool, len(roc))
	for i, v := range roc {
		out[i] = !math.IsNaN(v) && v > minROC
	}
	return out, nil
}

// volumeAboveSMA is true when volume exceeds multiplier times its own
// rolling average (volume spike confirmation)
func volumeAboveSMA(table *data.PriceTable, params Params) ([]bool, error) {
	period, err := params.Int("period")
	if err != nil {
		return nil, err
	}
	mult, err := params.FloatOr("multiplier", 1.0)
	if err != nil {
		return nil, err
	}
	vols := table.Volumes()
	avg := indicators.SMA(vols, period)
	out := make([]bool, len(vols))
	for i := range vols {
		out[i] = !math.IsNaN(avg[i]) && vols[i] > mult*avg[i]
	}
	return out, nil
}

// atrPctAbove is true while ATR as a fraction of the close exceeds the
// threshold. The usual volatility precondition: "does this instrument
// actually move enough to trade".
func atrPctAbove(table *data.PriceTable, params Params) ([]bool, error) {
	period, err := params.Int("period")
	if err != nil {
		return nil, err
	}
	threshold, err := params.Float("threshold")
	if err != nil {
		return nil, err
	}
	atr := indicators.ATR(table.Bars, period)
	closes := table.Closes()
	out := make([]bool, len(atr))
	for i, v := range atr {
		out[i] = !math.IsNaN(v) && closes[i] > 0 && v/closes[i] >= threshold
	}
	return out, nil
}

func greaterThan(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = !math.IsNaN(a[i]) && !math.IsNaN(b[i]) && a[i] > b[i]
	}
	return out
}
