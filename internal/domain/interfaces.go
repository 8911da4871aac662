package domain

import (
	"context"
	"time"
)

// PriceHistoryProvider supplies daily closing prices.
// Implementations return a table covering [start, end) with one column per
// requested symbol, or an error wrapping ErrNoData when nothing is available.
type PriceHistoryProvider interface {
	Fetch(ctx context.Context, symbols []string, start, end time.Time) (PriceTable, error)
}

// ProviderFunc adapts a function to PriceHistoryProvider
type ProviderFunc func(ctx context.Context, symbols []string, start, end time.Time) (PriceTable, error)

// Fetch calls f
func (f ProviderFunc) Fetch(ctx context.Context, symbols []string, start, end time.Time) (PriceTable, error) {
	return f(ctx, symbols, start, end)
}
