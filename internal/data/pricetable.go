package data

import (
	"fmt"
	"math"
	"time"
)

// Bar represents one daily OHLCV session
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceTable holds the full daily price history for one instrument.
// It is immutable for the duration of a run: the engine only reads it.
type PriceTable struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// NewPriceTable builds a validated price table for a symbol
func NewPriceTable(symbol string, bars []Bar) (*PriceTable, error) {
	t := &PriceTable{Symbol: symbol, Bars: bars}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the price table invariants: dates strictly increasing,
// every field numeric and present. Missing sessions are fine; out-of-order
// or duplicate dates are not.
func (t *PriceTable) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("price table has no symbol")
	}
	for i, bar := range t.Bars {
		if bar.Date.IsZero() {
			return fmt.Errorf("%s: bar %d has zero date", t.Symbol, i)
		}
		if i > 0 && !t.Bars[i-1].Date.Before(bar.Date) {
			return fmt.Errorf("%s: dates not strictly increasing at %s",
				t.Symbol, bar.Date.Format("2006-01-02"))
		}
		for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close, bar.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%s: non-numeric field at %s",
					t.Symbol, bar.Date.Format("2006-01-02"))
			}
		}
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return fmt.Errorf("%s: non-positive price at %s",
				t.Symbol, bar.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Len returns the number of sessions
func (t *PriceTable) Len() int {
	return len(t.Bars)
}

// Dates returns the table's calendar
func (t *PriceTable) Dates() []time.Time {
	dates := make([]time.Time, len(t.Bars))
	for i, bar := range t.Bars {
		dates[i] = bar.Date
	}
	return dates
}

// Closes returns the close price series
func (t *PriceTable) Closes() []float64 {
	closes := make([]float64, len(t.Bars))
	for i, bar := range t.Bars {
		closes[i] = bar.Close
	}
	return closes
}

// Volumes returns the volume series
func (t *PriceTable) Volumes() []float64 {
	vols := make([]float64, len(t.Bars))
	for i, bar := range t.Bars {
		vols[i] = bar.Volume
	}
	return vols
}

// Truncate returns a copy of the table with every session after the cutoff
// removed. Runs pinned to a historical date use this to keep future bars
// out of the engine.
func (t *PriceTable) Truncate(cutoff time.Time) *PriceTable {
	if cutoff.IsZero() {
		return t
	}
	end := len(t.Bars)
	for i, bar := range t.Bars {
		if bar.Date.After(cutoff) {
			end = i
			break
		}
	}
	return &PriceTable{Symbol: t.Symbol, Bars: t.Bars[:end]}
}

// Last returns the most recent bar, or false when the table is empty
func (t *PriceTable) Last() (Bar, bool) {
	if len(t.Bars) == 0 {
		return Bar{}, false
	}
	return t.Bars[len(t.Bars)-1], true
}
