package optimization

import (
	"math"
	"time"

	"github.com/aristath/markowitz/internal/domain"
)

// syntheticPrices builds a deterministic price table of rows trading days.
// Each symbol follows its own smooth oscillation around a drift.
func syntheticPrices(symbols []string, rows int) domain.PriceTable {
	table := domain.PriceTable{Symbols: symbols}
	start := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	level := make([]float64, len(symbols))
	for j := range level {
		level[j] = 50 + 25*float64(j)
	}
	for i := 0; i < rows; i++ {
		closes := make(map[string]float64, len(symbols))
		for j, sym := range symbols {
			if i > 0 {
				drift := 0.0004 * float64(j+1)
				shock := 0.01 * float64(j+1) * math.Sin(float64(i*(j+2))+float64(j))
				level[j] *= math.Exp(drift + shock)
			}
			closes[sym] = level[j]
		}
		table.Rows = append(table.Rows, domain.PriceRow{Date: start.AddDate(0, 0, i), Closes: closes})
	}
	return table
}
