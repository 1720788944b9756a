package sim

import "math"

// Metrics aggregates a trade list. Sharpe is trade-level and unannualized:
// mean trade return over the sample standard deviation of trade returns,
// matching the rule-level sampling of this strategy family.
type Metrics struct {
	TotalTrades int     `json:"total_trades"`
	WinPct      float64 `json:"win_pct"`
	AvgReturn   float64 `json:"avg_return"`
	TotalReturn float64 `json:"total_return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Sharpe      float64 `json:"sharpe"`
}

// Compute derives aggregate metrics from a trade list. Zero trades yields
// all-zero metrics, never an error.
func Compute(trades []Trade) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	m := Metrics{TotalTrades: len(trades)}

	wins := 0
	sum := 0.0
	equity := 1.0
	peak := 1.0
	for _, t := range trades {
		if t.Return > 0 {
			wins++
		}
		sum += t.Return
		equity *= 1.0 + t.Return
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := 1.0 - equity/peak
			if dd > m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
	}

	m.WinPct = float64(wins) / float64(len(trades))
	m.AvgReturn = sum / float64(len(trades))
	m.TotalReturn = equity - 1.0

	if len(trades) > 1 {
		variance := 0.0
		for _, t := range trades {
			d := t.Return - m.AvgReturn
			variance += d * d
		}
		variance /= float64(len(trades) - 1)
		if std := math.Sqrt(variance); std > 0 {
			m.Sharpe = m.AvgReturn / std
		}
	}

	return m
}
