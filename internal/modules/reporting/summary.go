package reporting

import (
	"fmt"
	"strings"

	"github.com/aristath/markowitz/internal/modules/optimization"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// round2 formats v rounded half away from zero to two decimals
func round2(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// percent formats a weight as a percentage with two decimals
func percent(w float64) string {
	return decimal.NewFromFloat(w).Mul(hundred).Round(2).StringFixed(2)
}

// RoundedWeights rounds each weight to two decimals
func RoundedWeights(w optimization.WeightVector) []decimal.Decimal {
	out := make([]decimal.Decimal, len(w))
	for i, v := range w {
		out[i] = decimal.NewFromFloat(v).Round(2)
	}
	return out
}

// Summary builds the Markdown report of the optimal portfolio
func Summary(in Input, topN int) string {
	var b strings.Builder

	b.WriteString("# Optimal portfolio\n\n")
	if in.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`", in.RunID)
		if in.Prices.Len() > 0 {
			dates := in.Prices.Dates()
			fmt.Fprintf(&b, " over %d trading days, %s to %s",
				in.Prices.Len(), dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"))
		}
		b.WriteString(".\n\n")
	}

	rounded := RoundedWeights(in.Optimal)
	parts := make([]string, len(rounded))
	for i, r := range rounded {
		parts[i] = r.StringFixed(2)
	}
	fmt.Fprintf(&b, "Weights: `[%s]`\n\n", strings.Join(parts, " "))

	b.WriteString("| Asset | Weight |\n|---|---:|\n")
	for i, sym := range in.Symbols {
		if i >= len(in.Optimal) {
			break
		}
		fmt.Fprintf(&b, "| %s | %s %% x %s |\n", sym, percent(in.Optimal[i]), sym)
	}

	fmt.Fprintf(&b, "\nExpected return %s, volatility %s and Sharpe ratio: %s\n",
		round2(in.OptimalStats.ExpectedReturn),
		round2(in.OptimalStats.Volatility),
		round2(in.OptimalStats.SharpeRatio))

	if best := optimization.BestSamples(in.Samples, topN); len(best) > 0 {
		fmt.Fprintf(&b, "\n## Best of %d sampled portfolios\n\n", len(in.Samples))
		b.WriteString("| # | Return | Volatility | Sharpe | Weights |\n|---:|---:|---:|---:|---|\n")
		for i, sp := range best {
			ws := make([]string, len(sp.Weights))
			for j, w := range sp.Weights {
				ws[j] = percent(w)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", i+1,
				round2(sp.Stats.ExpectedReturn), round2(sp.Stats.Volatility), round2(sp.Stats.SharpeRatio),
				strings.Join(ws, " / "))
		}
	}

	if len(in.Correlations) > 0 {
		b.WriteString("\n## Highly correlated pairs\n\n")
		for _, c := range in.Correlations {
			fmt.Fprintf(&b, "- %s / %s: %s\n", c.Symbol1, c.Symbol2, round2(c.Correlation))
		}
	}

	return b.String()
}

// renderMarkdown renders md for the terminal with glamour
func renderMarkdown(md, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render(md)
}
