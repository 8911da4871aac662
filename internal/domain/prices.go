// Package domain holds the types shared between price providers and the analysis pipeline.
package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PriceRow is one trading day of closing prices keyed by symbol
type PriceRow struct {
	Date   time.Time          `msgpack:"date"`
	Closes map[string]float64 `msgpack:"closes"`
}

// PriceTable holds closing prices ordered by ascending date.
// Symbols fixes the column order used by every downstream vector and matrix.
type PriceTable struct {
	Symbols []string   `msgpack:"symbols"`
	Rows    []PriceRow `msgpack:"rows"`
}

// DatedPrice is a single close for one symbol
type DatedPrice struct {
	Date  time.Time
	Close float64
}

// Empty reports whether the table has no rows
func (t PriceTable) Empty() bool {
	return len(t.Rows) == 0
}

// Len returns the number of rows
func (t PriceTable) Len() int {
	return len(t.Rows)
}

// Dates returns the row dates in order
func (t PriceTable) Dates() []time.Time {
	dates := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		dates[i] = r.Date
	}
	return dates
}

// Column returns the close series for symbol
func (t PriceTable) Column(symbol string) ([]float64, error) {
	if !t.HasSymbol(symbol) {
		return nil, fmt.Errorf("%w: unknown symbol %s", ErrInvalidInput, symbol)
	}
	col := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		v, ok := r.Closes[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: %s missing on %s", ErrInvalidInput, symbol, r.Date.Format("2006-01-02"))
		}
		col[i] = v
	}
	return col, nil
}

// HasSymbol reports whether symbol is one of the table's columns
func (t PriceTable) HasSymbol(symbol string) bool {
	for _, s := range t.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Validate checks the table is usable for return estimation: at least one
// symbol, no duplicates, at least two rows, strictly increasing dates and a
// finite positive close for every symbol on every row.
func (t PriceTable) Validate() error {
	if len(t.Symbols) == 0 {
		return fmt.Errorf("%w: price table has no symbols", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(t.Symbols))
	for _, s := range t.Symbols {
		if seen[s] {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalidInput, s)
		}
		seen[s] = true
	}
	if len(t.Rows) < 2 {
		return fmt.Errorf("%w: need at least 2 price rows, got %d", ErrInvalidInput, len(t.Rows))
	}

	for i, r := range t.Rows {
		if i > 0 && !r.Date.After(t.Rows[i-1].Date) {
			return fmt.Errorf("%w: dates not strictly increasing at row %d", ErrInvalidInput, i)
		}
		for _, s := range t.Symbols {
			v, ok := r.Closes[s]
			if !ok {
				return fmt.Errorf("%w: %s missing on %s", ErrInvalidInput, s, r.Date.Format("2006-01-02"))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return fmt.Errorf("%w: %s has non-positive price %g on %s", ErrInvalidInput, s, v, r.Date.Format("2006-01-02"))
			}
		}
	}
	return nil
}

// Select returns a copy restricted to the given symbols, in that order
func (t PriceTable) Select(symbols []string) (PriceTable, error) {
	for _, s := range symbols {
		if !t.HasSymbol(s) {
			return PriceTable{}, fmt.Errorf("%w: %s", ErrNoData, s)
		}
	}
	out := PriceTable{Symbols: append([]string(nil), symbols...), Rows: make([]PriceRow, 0, len(t.Rows))}
	for _, r := range t.Rows {
		closes := make(map[string]float64, len(symbols))
		for _, s := range symbols {
			if v, ok := r.Closes[s]; ok {
				closes[s] = v
			}
		}
		out.Rows = append(out.Rows, PriceRow{Date: r.Date, Closes: closes})
	}
	return out, nil
}

// Between returns the rows with start <= date < end
func (t PriceTable) Between(start, end time.Time) PriceTable {
	out := PriceTable{Symbols: t.Symbols}
	for _, r := range t.Rows {
		if r.Date.Before(start) || !r.Date.Before(end) {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// AlignSeries joins per-symbol series on their common dates.
// Dates missing for any symbol are dropped; the result is sorted ascending
// and its columns follow the order of symbols.
func AlignSeries(symbols []string, series map[string][]DatedPrice) PriceTable {
	table := PriceTable{Symbols: append([]string(nil), symbols...)}
	if len(symbols) == 0 {
		return table
	}

	byDate := make(map[time.Time]map[string]float64)
	for _, sym := range symbols {
		for _, p := range series[sym] {
			day := truncateDay(p.Date)
			closes, ok := byDate[day]
			if !ok {
				closes = make(map[string]float64, len(symbols))
				byDate[day] = closes
			}
			closes[sym] = p.Close
		}
	}

	for day, closes := range byDate {
		if len(closes) != len(symbols) {
			continue
		}
		table.Rows = append(table.Rows, PriceRow{Date: day, Closes: closes})
	}
	sort.Slice(table.Rows, func(i, j int) bool {
		return table.Rows[i].Date.Before(table.Rows[j].Date)
	})
	return table
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
