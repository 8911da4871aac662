package yahoo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnjoon/go-yfinance/pkg/models"
)

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestClient(history historyFunc) *NativeClient {
	c := NewNativeClient(3, zerolog.Nop())
	c.history = history
	c.baseWait = time.Millisecond
	c.now = func() time.Time { return utcDay(2024, 6, 1) }
	return c
}

func TestNewNativeClient(t *testing.T) {
	client := NewNativeClient(0, zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, 3, client.maxRetries)

	var _ domain.PriceHistoryProvider = client
}

func TestFetch_FiltersWindowAndAligns(t *testing.T) {
	bars := map[string][]models.Bar{
		"META": {
			{Date: utcDay(2023, 12, 29), Close: 350},
			{Date: utcDay(2024, 1, 2), Close: 346},
			{Date: utcDay(2024, 1, 3), Close: 344},
			{Date: utcDay(2024, 1, 4), Close: 347},
		},
		"MS": {
			{Date: utcDay(2024, 1, 2), Close: 93},
			{Date: utcDay(2024, 1, 4), Close: 92},
			{Date: utcDay(2024, 1, 5), Close: 91},
		},
	}
	var (
		mu      sync.Mutex
		periods []string
	)
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		mu.Lock()
		periods = append(periods, period)
		mu.Unlock()
		return bars[symbol], nil
	})

	table, err := client.Fetch(context.Background(), []string{"META", "MS"}, utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, []string{"META", "MS"}, table.Symbols)
	assert.Equal(t, []time.Time{utcDay(2024, 1, 2), utcDay(2024, 1, 4)}, table.Dates())
	assert.Equal(t, 347.0, table.Rows[1].Closes["META"])
	assert.Equal(t, []string{"6mo", "6mo"}, periods)
}

func TestFetch_FailsWhenAnySymbolFails(t *testing.T) {
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		if symbol == "BAD" {
			return nil, errors.New("not found")
		}
		return []models.Bar{{Date: utcDay(2024, 1, 2), Close: 10}, {Date: utcDay(2024, 1, 3), Close: 11}}, nil
	})

	_, err := client.Fetch(context.Background(), []string{"META", "BAD", "MS"}, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD")
	assert.Contains(t, err.Error(), "not found")
}

func TestFetch_KeepsRequestedColumnOrder(t *testing.T) {
	symbols := []string{"E", "D", "C", "B", "A", "F"}
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		return []models.Bar{
			{Date: utcDay(2024, 1, 2), Close: float64(symbol[0])},
			{Date: utcDay(2024, 1, 3), Close: float64(symbol[0]) + 1},
		}, nil
	})

	table, err := client.Fetch(context.Background(), symbols, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, symbols, table.Symbols)
	assert.Equal(t, float64('C'), table.Rows[0].Closes["C"])
}

func TestFetch_NoDataInWindow(t *testing.T) {
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		return []models.Bar{{Date: utcDay(2020, 1, 2), Close: 10}}, nil
	})

	_, err := client.Fetch(context.Background(), []string{"META"}, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestFetch_NoCommonDates(t *testing.T) {
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		if symbol == "A" {
			return []models.Bar{{Date: utcDay(2024, 1, 2), Close: 10}}, nil
		}
		return []models.Bar{{Date: utcDay(2024, 1, 3), Close: 10}}, nil
	})

	_, err := client.Fetch(context.Background(), []string{"A", "B"}, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("429 too many requests")
		}
		return []models.Bar{{Date: utcDay(2024, 1, 2), Close: 10}, {Date: utcDay(2024, 1, 3), Close: 11}}, nil
	})

	table, err := client.Fetch(context.Background(), []string{"META"}, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, table.Len())
}

func TestFetch_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		calls++
		return nil, errors.New("unavailable")
	})

	_, err := client.Fetch(context.Background(), []string{"META"}, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestFetch_HonorsCancelledContext(t *testing.T) {
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		t.Fatal("history must not be requested after cancellation")
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, []string{"META"}, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_InvalidArguments(t *testing.T) {
	client := newTestClient(nil)

	_, err := client.Fetch(context.Background(), nil, utcDay(2024, 1, 1), utcDay(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = client.Fetch(context.Background(), []string{"META"}, utcDay(2024, 2, 1), utcDay(2024, 1, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPeriodCovering(t *testing.T) {
	now := utcDay(2024, 6, 1)
	testCases := []struct {
		start    time.Time
		expected string
	}{
		{utcDay(2024, 5, 15), "1mo"},
		{utcDay(2024, 3, 1), "3mo"},
		{utcDay(2024, 1, 1), "6mo"},
		{utcDay(2023, 7, 1), "1y"},
		{utcDay(2022, 7, 1), "2y"},
		{utcDay(2020, 1, 1), "5y"},
		{utcDay(2015, 1, 1), "10y"},
		{utcDay(2013, 1, 1), "max"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, periodCovering(tc.start, now))
		})
	}
}
