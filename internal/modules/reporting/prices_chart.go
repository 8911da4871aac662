package reporting

import (
	"fmt"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/vicanso/go-charts/v2"
)

// RenderPriceHistory draws the closing prices of every symbol and returns PNG bytes
func RenderPriceHistory(prices domain.PriceTable) ([]byte, error) {
	if prices.Empty() {
		return nil, fmt.Errorf("no prices to plot")
	}

	values := make([][]float64, 0, len(prices.Symbols))
	for _, sym := range prices.Symbols {
		col, err := prices.Column(sym)
		if err != nil {
			return nil, err
		}
		values = append(values, col)
	}

	xLabels := make([]string, prices.Len())
	for i, d := range prices.Dates() {
		xLabels[i] = d.Format("2006-01-02")
	}

	split := 10
	if prices.Len() <= 30 {
		split = prices.Len() / 3
		if split < 3 {
			split = 3
		}
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc("Stock Price"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: split,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: prices.Symbols,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(800),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render price chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}
