package exits

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/rules"
)

func newTable(t *testing.T, closes ...float64) *data.PriceTable {
	t.Helper()
	bars := make([]data.Bar, len(closes))
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = data.Bar{Date: day.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	pt, err := data.NewPriceTable("TEST", bars)
	require.NoError(t, err)
	return pt
}

func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func def(name, typ string, params rules.Params) rules.Definition {
	return rules.Definition{Name: name, Type: typ, Params: params}
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "hard_stop", HardStop.String())
	assert.Equal(t, "target_hit", TargetHit.String())
	assert.Equal(t, "trail_exit", TrailExit.String())
	assert.Equal(t, "indicator_exit", IndicatorExit.String())
	assert.Equal(t, "time_exit", TimeExit.String())
	assert.Equal(t, "no_exit", NoExit.String())
}

func TestFixedStopLoss(t *testing.T) {
	// Entry at 100, 5% stop. 97 is above the stop, 94 is through it.
	pt := newTable(t, 100, 97, 94, 94)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("stop", "stop_loss_pct", rules.Params{"pct": 0.05}),
	}, 20)
	require.NoError(t, err)

	pos := ev.Open(0)
	assert.Equal(t, NoExit, ev.Evaluate(pos, 1))
	assert.Equal(t, HardStop, ev.Evaluate(pos, 2))
}

func TestFixedTakeProfit(t *testing.T) {
	pt := newTable(t, 100, 104, 106)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("target", "take_profit_pct", rules.Params{"pct": 0.05}),
	}, 20)
	require.NoError(t, err)

	pos := ev.Open(0)
	assert.Equal(t, NoExit, ev.Evaluate(pos, 1))
	assert.Equal(t, TargetHit, ev.Evaluate(pos, 2))
}

func TestHardStopBeatsReversalSameDay(t *testing.T) {
	// A collapse makes both the reversal and the stop true on the same
	// session; the hard stop has precedence.
	closes := []float64{100, 101, 102, 103, 104, 105, 60, 60}
	pt := newTable(t, closes...)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("reversal", "ma_cross_exit", rules.Params{"fast_period": 2, "slow_period": 4}),
		def("stop", "stop_loss_pct", rules.Params{"pct": 0.10}),
	}, 20)
	require.NoError(t, err)

	pos := ev.Open(4)
	assert.Equal(t, NoExit, ev.Evaluate(pos, 5))
	assert.Equal(t, HardStop, ev.Evaluate(pos, 6))
}

func TestATRStopNeverFiresOnConstantPrice(t *testing.T) {
	// No volatility: ATR is ~0, the stop collapses onto the entry price
	// and must not fire. Only the hold-period fallback closes.
	pt := newTable(t, flatCloses(40, 100)...)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("atr_stop", "stop_loss_atr", rules.Params{"period": 14, "multiplier": 2.0}),
	}, 10)
	require.NoError(t, err)

	pos := ev.Open(15)
	for day := 16; day < 25; day++ {
		reason := ev.Evaluate(pos, day)
		if day-15 >= 10 {
			assert.Equal(t, TimeExit, reason, "day %d", day)
			return
		}
		assert.Equal(t, NoExit, reason, "day %d", day)
	}
}

func TestATRStopInactiveDuringWarmup(t *testing.T) {
	pt := newTable(t, 100, 50, 25, 12)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("atr_stop", "stop_loss_atr", rules.Params{"period": 14, "multiplier": 2.0}),
	}, 20)
	require.NoError(t, err)

	// ATR needs 15 bars; with 4 the stop never activates.
	pos := ev.Open(0)
	assert.Equal(t, NoExit, ev.Evaluate(pos, 1))
	assert.Equal(t, NoExit, ev.Evaluate(pos, 2))
}

func TestTrailingStopArmsOnlyAfterProfit(t *testing.T) {
	// 10% trail. Price dips 10% right after entry: not armed, no exit.
	pt := newTable(t, 100, 90, 95, 100, 112, 100)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("trail", "trailing_stop_pct", rules.Params{"pct": 0.10}),
	}, 20)
	require.NoError(t, err)

	pos := ev.Open(0)
	assert.Equal(t, NoExit, ev.Evaluate(pos, 1)) // -10% but unarmed
	assert.Equal(t, NoExit, ev.Evaluate(pos, 2))
	assert.Equal(t, NoExit, ev.Evaluate(pos, 3))
	assert.Equal(t, NoExit, ev.Evaluate(pos, 4)) // +12%, arms the trail
	// 100 <= 112*0.9: through the trail floor.
	assert.Equal(t, TrailExit, ev.Evaluate(pos, 5))
}

func TestChandelierFloorOnlyTightens(t *testing.T) {
	closes := []float64{
		100, 101, 102, 103, 104, 105, 106, 107, 108, 109,
		110, 111, 112, 113, 114, 115, 116, 117, 118, 119,
		120, 121, 122, 118, 110, 100,
	}
	pt := newTable(t, closes...)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("chandelier", "chandelier_exit", rules.Params{"period": 10, "multiplier": 3.0}),
	}, 50)
	require.NoError(t, err)

	pos := ev.Open(18)
	var exitDay int
	var reason Reason
	for day := 19; day < pt.Len(); day++ {
		reason = ev.Evaluate(pos, day)
		if reason != NoExit {
			exitDay = day
			break
		}
	}
	require.Equal(t, TrailExit, reason)
	// The sharp fade through the tightened floor forces the exit.
	assert.GreaterOrEqual(t, exitDay, 23)
}

func TestMACrossReversal(t *testing.T) {
	// Ramp up then collapse so the fast SMA crosses under the slow SMA.
	closes := []float64{
		100, 102, 104, 106, 108, 110, 112, 114, 116, 118,
		116, 110, 104, 98, 92, 86, 80, 74, 68, 62,
	}
	pt := newTable(t, closes...)
	ev, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("reversal", "ma_cross_exit", rules.Params{"fast_period": 3, "slow_period": 8}),
	}, 50)
	require.NoError(t, err)

	pos := ev.Open(9)
	var reason Reason
	for day := 10; day < pt.Len(); day++ {
		reason = ev.Evaluate(pos, day)
		if reason != NoExit {
			break
		}
	}
	assert.Equal(t, IndicatorExit, reason)
}

func TestHoldPeriodFallback(t *testing.T) {
	pt := newTable(t, flatCloses(30, 100)...)
	ev, err := NewEvaluator(zerolog.Nop(), pt, nil, 5)
	require.NoError(t, err)

	pos := ev.Open(3)
	for day := 4; day < 8; day++ {
		assert.Equal(t, NoExit, ev.Evaluate(pos, day), "day %d", day)
	}
	assert.Equal(t, TimeExit, ev.Evaluate(pos, 8))
}

func TestInvalidParamsRejectedAtBuild(t *testing.T) {
	pt := newTable(t, flatCloses(10, 100)...)

	_, err := NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("stop", "stop_loss_pct", rules.Params{"pct": -0.05}),
	}, 20)
	assert.ErrorIs(t, err, rules.ErrInvalidParameter)

	_, err = NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("stop", "stop_loss_pct", rules.Params{"pct": 0.05}),
	}, 0)
	assert.ErrorIs(t, err, rules.ErrInvalidParameter)

	_, err = NewEvaluator(zerolog.Nop(), pt, []rules.Definition{
		def("mystery", "no_such_exit", nil),
	}, 20)
	assert.ErrorIs(t, err, rules.ErrUnknownRuleType)
}
