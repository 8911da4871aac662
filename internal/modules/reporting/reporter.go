// Package reporting renders the outcome of an analysis run: a terminal summary
// of the optimal portfolio and optional PNG charts.
package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// Input is everything a report needs. It is read, never modified.
type Input struct {
	RunID        string
	Symbols      []string
	Prices       domain.PriceTable
	Optimal      optimization.WeightVector
	OptimalStats optimization.PortfolioStats
	Samples      []optimization.SampledPortfolio
	Correlations []optimization.CorrelationPair
}

// Config controls report output
type Config struct {
	Dir          string // Charts are written to Dir/<run id>/
	RenderCharts bool
	TopSamples   int
	Style        string // glamour standard style; "notty" renders plain text
	WordWrap     int
}

// Reporter writes the summary to out and charts to disk
type Reporter struct {
	cfg Config
	out io.Writer
	log zerolog.Logger
}

// NewReporter creates a reporter writing the summary to out
func NewReporter(cfg Config, out io.Writer, log zerolog.Logger) *Reporter {
	if cfg.TopSamples <= 0 {
		cfg.TopSamples = 5
	}
	if cfg.Style == "" {
		cfg.Style = "notty"
	}
	if cfg.WordWrap <= 0 {
		cfg.WordWrap = 100
	}
	return &Reporter{
		cfg: cfg,
		out: out,
		log: log.With().Str("component", "reporter").Logger(),
	}
}

// Report prints the summary and, when enabled, writes the charts
func (r *Reporter) Report(ctx context.Context, in Input) error {
	md := Summary(in, r.cfg.TopSamples)

	rendered, err := renderMarkdown(md, r.cfg.Style, r.cfg.WordWrap)
	if err != nil {
		r.log.Warn().Err(err).Msg("Markdown rendering failed, printing raw summary")
		rendered = md
	}
	if _, err := io.WriteString(r.out, rendered); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if !r.cfg.RenderCharts {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(r.cfg.Dir, in.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	pricePNG, err := RenderPriceHistory(in.Prices)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "prices.png"), pricePNG, 0644); err != nil {
		return fmt.Errorf("failed to write price chart: %w", err)
	}

	var scatter bytes.Buffer
	if err := RenderScatter(&scatter, in.Samples, in.OptimalStats); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "portfolios.png"), scatter.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write scatter chart: %w", err)
	}

	r.log.Info().Str("dir", dir).Msg("Charts written")
	return nil
}
