package reporting

import (
	"fmt"
	"io"
	"math"

	"github.com/aristath/markowitz/internal/modules/optimization"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderScatter draws sampled portfolios as volatility vs expected return,
// colored by Sharpe ratio, with the optimum as a large green dot.
func RenderScatter(w io.Writer, samples []optimization.SampledPortfolio, optimal optimization.PortfolioStats) error {
	if len(samples) == 0 {
		return fmt.Errorf("no sampled portfolios to plot")
	}

	vols := make([]float64, len(samples))
	rets := make([]float64, len(samples))
	sharpes := make([]float64, len(samples))
	minSharpe, maxSharpe := math.Inf(1), math.Inf(-1)
	for i, sp := range samples {
		vols[i] = sp.Stats.Volatility
		rets[i] = sp.Stats.ExpectedReturn
		sharpes[i] = sp.Stats.SharpeRatio
		minSharpe = math.Min(minSharpe, sharpes[i])
		maxSharpe = math.Max(maxSharpe, sharpes[i])
	}

	bySharpe := func(xr, yr chart.Range, index int, x, y float64) drawing.Color {
		return chart.Viridis(sharpes[index], minSharpe, maxSharpe)
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%d portfolios, max Sharpe %.2f", len(samples), optimal.SharpeRatio),
		Width:  1000,
		Height: 600,
		XAxis:  chart.XAxis{Name: "Expected Volatility"},
		YAxis:  chart.YAxis{Name: "Expected Return"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Sampled portfolios",
				Style: chart.Style{
					StrokeWidth:      chart.Disabled,
					DotWidth:         2,
					DotColorProvider: bySharpe,
				},
				XValues: vols,
				YValues: rets,
			},
			chart.ContinuousSeries{
				Name: "Optimal portfolio",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    10,
					DotColor:    drawing.ColorGreen,
				},
				XValues: []float64{optimal.Volatility},
				YValues: []float64{optimal.ExpectedReturn},
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render scatter chart: %w", err)
	}
	return nil
}
