package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// csv layout: date,open,high,low,close,volume with a header row

// ReadCSV parses daily bars from a reader
func ReadCSV(symbol string, r io.Reader) (*PriceTable, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv for %s: %w", symbol, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv for %s has no data rows", symbol)
	}

	bars := make([]Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 6 {
			return nil, fmt.Errorf("csv for %s: row %d has %d fields, want 6", symbol, i+2, len(rec))
		}
		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv for %s: bad date on row %d: %w", symbol, i+2, err)
		}
		fields := make([]float64, 5)
		for j := 0; j < 5; j++ {
			fields[j], err = strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("csv for %s: bad value on row %d: %w", symbol, i+2, err)
			}
		}
		bars = append(bars, Bar{
			Date:   date,
			Open:   fields[0],
			High:   fields[1],
			Low:    fields[2],
			Close:  fields[3],
			Volume: fields[4],
		})
	}

	return NewPriceTable(symbol, bars)
}

// LoadCSVFile reads daily bars from a local csv file
func LoadCSVFile(symbol, path string) (*PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(symbol, f)
}
