// Package yahoo provides a price history provider backed by Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
	"golang.org/x/sync/errgroup"
)

// Yahoo rate-limits aggressively, so only a few symbols are requested at once
const maxConcurrentFetches = 4

// historyFunc loads daily bars for one symbol over a Yahoo period.
// It is called concurrently for different symbols.
type historyFunc func(symbol, period string) ([]models.Bar, error)

// NativeClient implements domain.PriceHistoryProvider using the go-yfinance library
type NativeClient struct {
	history    historyFunc
	maxRetries int
	baseWait   time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewNativeClient creates a new native Yahoo Finance client
func NewNativeClient(maxRetries int, log zerolog.Logger) *NativeClient {
	if maxRetries <= 0 {
		maxRetries = 3 // default
	}
	return &NativeClient{
		history:    tickerHistory,
		maxRetries: maxRetries,
		baseWait:   time.Second,
		now:        time.Now,
		log:        log.With().Str("client", "yahoo-native").Logger(),
	}
}

func tickerHistory(symbol, period string) ([]models.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	return t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
}

// Fetch loads auto-adjusted daily closes for symbols over [start, end) and
// aligns them on the dates every symbol traded.
func (c *NativeClient) Fetch(ctx context.Context, symbols []string, start, end time.Time) (domain.PriceTable, error) {
	if len(symbols) == 0 {
		return domain.PriceTable{}, fmt.Errorf("%w: no symbols requested", domain.ErrInvalidInput)
	}
	if !end.After(start) {
		return domain.PriceTable{}, fmt.Errorf("%w: end %s not after start %s", domain.ErrInvalidInput,
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	period := periodCovering(start, c.now())
	fetched := make([][]domain.DatedPrice, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, symbol := range symbols {
		g.Go(func() error {
			prices, err := c.fetchSymbol(gctx, symbol, period, start, end)
			if err != nil {
				return err
			}
			fetched[i] = prices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.PriceTable{}, err
	}

	series := make(map[string][]domain.DatedPrice, len(symbols))
	for i, symbol := range symbols {
		series[symbol] = fetched[i]
	}

	table := domain.AlignSeries(symbols, series)
	if table.Empty() {
		return domain.PriceTable{}, fmt.Errorf("%w: symbols share no trading dates", domain.ErrNoData)
	}

	c.log.Info().
		Strs("symbols", symbols).
		Int("rows", table.Len()).
		Msg("Loaded aligned price history")

	return table, nil
}

// fetchSymbol loads one symbol's closes within [start, end)
func (c *NativeClient) fetchSymbol(ctx context.Context, symbol, period string, start, end time.Time) ([]domain.DatedPrice, error) {
	bars, err := c.historyWithRetry(ctx, strings.ToUpper(symbol), period)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices for %s: %w", symbol, err)
	}

	prices := make([]domain.DatedPrice, 0, len(bars))
	for _, bar := range bars {
		if bar.Date.Before(start) || !bar.Date.Before(end) || bar.Close <= 0 {
			continue
		}
		prices = append(prices, domain.DatedPrice{Date: bar.Date, Close: bar.Close})
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: %s has no closes between %s and %s", domain.ErrNoData,
			symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("bars", len(prices)).
		Msg("Fetched price history")
	return prices, nil
}

// historyWithRetry retries failed requests with exponential backoff
func (c *NativeClient) historyWithRetry(ctx context.Context, symbol, period string) ([]models.Bar, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := c.history(symbol, period)
		if err == nil {
			return bars, nil
		}
		lastErr = err

		if attempt < c.maxRetries-1 {
			waitTime := c.baseWait * time.Duration(1<<uint(attempt))
			c.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt+1).Dur("wait", waitTime).Msg("Retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
			}
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// periodCovering returns the shortest Yahoo period reaching back to start
func periodCovering(start, now time.Time) string {
	periods := []struct {
		name  string
		years int
		month int
	}{
		{"1mo", 0, 1},
		{"3mo", 0, 3},
		{"6mo", 0, 6},
		{"1y", 1, 0},
		{"2y", 2, 0},
		{"5y", 5, 0},
		{"10y", 10, 0},
	}
	for _, p := range periods {
		if !start.Before(now.AddDate(-p.years, -p.month, 0)) {
			return p.name
		}
	}
	return "max"
}
