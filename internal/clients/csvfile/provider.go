// Package csvfile provides a price history provider reading closing prices from a local CSV file.
//
// The file has a header row "Date,SYM1,SYM2,..." followed by one row per
// trading day with ISO dates. Empty cells mark days a symbol did not trade.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Provider implements domain.PriceHistoryProvider over a CSV file
type Provider struct {
	path string
	log  zerolog.Logger
}

// NewProvider creates a provider reading path on every Fetch
func NewProvider(path string, log zerolog.Logger) *Provider {
	return &Provider{
		path: path,
		log:  log.With().Str("client", "csvfile").Str("path", path).Logger(),
	}
}

// Fetch reads the file and returns the requested columns over [start, end)
func (p *Provider) Fetch(ctx context.Context, symbols []string, start, end time.Time) (domain.PriceTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceTable{}, err
	}

	f, err := os.Open(p.path)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	series, err := parsePrices(f)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("failed to parse %s: %w", p.path, err)
	}

	selected := make(map[string][]domain.DatedPrice, len(symbols))
	for _, sym := range symbols {
		prices, ok := series[sym]
		if !ok {
			return domain.PriceTable{}, fmt.Errorf("%w: %s not in %s", domain.ErrNoData, sym, p.path)
		}
		for _, dp := range prices {
			if dp.Date.Before(start) || !dp.Date.Before(end) {
				continue
			}
			selected[sym] = append(selected[sym], dp)
		}
	}

	table := domain.AlignSeries(symbols, selected)
	if table.Empty() {
		return domain.PriceTable{}, fmt.Errorf("%w: no rows between %s and %s", domain.ErrNoData,
			start.Format(dateLayout), end.Format(dateLayout))
	}

	p.log.Debug().Int("rows", table.Len()).Strs("symbols", symbols).Msg("Loaded prices from file")
	return table, nil
}

// parsePrices reads the wide CSV format into per-symbol series
func parsePrices(r io.Reader) (map[string][]domain.DatedPrice, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", domain.ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return nil, fmt.Errorf("%w: header must start with Date and name at least one symbol", domain.ErrInvalidInput)
	}

	symbols := make([]string, len(header)-1)
	for i, h := range header[1:] {
		symbols[i] = strings.ToUpper(strings.TrimSpace(h))
	}

	series := make(map[string][]domain.DatedPrice, len(symbols))
	for _, s := range symbols {
		series[s] = nil
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", domain.ErrInvalidInput, line, record[0])
		}

		for i, cell := range record[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad price %q for %s", domain.ErrInvalidInput, line, cell, symbols[i])
			}
			series[symbols[i]] = append(series[symbols[i]], domain.DatedPrice{Date: date, Close: v})
		}
	}

	return series, nil
}
