package indicators

import (
	"math"

	"github.com/edgerank/edgerank/internal/data"
)

// All series functions return one value per input session. Positions that
// cannot be computed yet (the warmup window) hold NaN; callers treat NaN
// comparisons as false signals rather than errors.

// SMA returns the simple moving average series over the given period
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the exponential moving average series, seeded with an SMA
// over the first period
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[period-1] = ema

	alpha := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		ema = values[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}
	return out
}

// RSI returns the Relative Strength Index series using Wilder's smoothing
func RSI(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// ATR returns the Average True Range series using Wilder's smoothing.
// True range needs the prior close, so the first valid value lands at
// index period.
func ATR(bars []data.Bar, period int) []float64 {
	out := nanSeries(len(bars))
	if period <= 0 || len(bars) < period+1 {
		return out
	}

	tr := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)
	out[period] = atr

	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(bars); i++ {
		atr = atr*(1-alpha) + tr[i]*alpha
		out[i] = atr
	}
	return out
}

// ROC returns the rate-of-change series as a fraction over the period
func ROC(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period; i < len(values); i++ {
		if values[i-period] != 0 {
			out[i] = values[i]/values[i-period] - 1.0
		}
	}
	return out
}

// HighestHigh returns the rolling maximum of bar highs over the period,
// inclusive of the current session
func HighestHigh(bars []data.Bar, period int) []float64 {
	out := nanSeries(len(bars))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		hh := bars[i].High
		for j := i - period + 1; j < i; j++ {
			if bars[j].High > hh {
				hh = bars[j].High
			}
		}
		out[i] = hh
	}
	return out
}

// LastValid returns the most recent non-NaN value in the series
func LastValid(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i], true
		}
	}
	return 0, false
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
