package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgerank/edgerank/internal/data"
)

func bars(closes ...float64) []data.Bar {
	out := make([]data.Bar, len(closes))
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = data.Bar{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestSMA_InsufficientData(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	got := EMA([]float64{2, 4, 6, 8}, 3)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 4.0, got[2], 1e-9) // SMA seed
	// alpha = 0.5: 8*0.5 + 4*0.5
	assert.InDelta(t, 6.0, got[3], 1e-9)
}

func TestRSI_AllGains(t *testing.T) {
	got := RSI([]float64{1, 2, 3, 4, 5, 6, 7}, 3)
	last, ok := LastValid(got)
	require.True(t, ok)
	assert.InDelta(t, 100.0, last, 1e-9)
}

func TestRSI_Neutral(t *testing.T) {
	// Alternating equal gains and losses should settle near 50.
	closes := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11}
	got := RSI(closes, 4)
	last, ok := LastValid(got)
	require.True(t, ok)
	assert.InDelta(t, 50.0, last, 10.0)
}

func TestATR_ConstantPriceIsZero(t *testing.T) {
	flat := make([]data.Bar, 20)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range flat {
		flat[i] = data.Bar{Date: day.AddDate(0, 0, i), Open: 50, High: 50, Low: 50, Close: 50, Volume: 1}
	}

	got := ATR(flat, 14)
	last, ok := LastValid(got)
	require.True(t, ok)
	assert.InDelta(t, 0.0, last, 1e-12)
}

func TestATR_WarmupIsNaN(t *testing.T) {
	got := ATR(bars(10, 11, 12, 13, 14, 15), 3)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[2]))
	assert.False(t, math.IsNaN(got[3]))
}

func TestROC(t *testing.T) {
	got := ROC([]float64{100, 110, 121}, 1)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 0.10, got[1], 1e-9)
	assert.InDelta(t, 0.10, got[2], 1e-9)
}

func TestHighestHigh(t *testing.T) {
	b := bars(10, 30, 20, 15)
	got := HighestHigh(b, 2)

	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 30*1.01, got[1], 1e-9)
	assert.InDelta(t, 30*1.01, got[2], 1e-9)
	assert.InDelta(t, 20*1.01, got[3], 1e-9)
}

func TestLastValid_Empty(t *testing.T) {
	_, ok := LastValid(nil)
	assert.False(t, ok)

	_, ok = LastValid([]float64{math.NaN(), math.NaN()})
	assert.False(t, ok)
}
