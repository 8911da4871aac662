package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func twoSymbolTable() PriceTable {
	return PriceTable{
		Symbols: []string{"A", "B"},
		Rows: []PriceRow{
			{Date: day(0), Closes: map[string]float64{"A": 100, "B": 50}},
			{Date: day(1), Closes: map[string]float64{"A": 101, "B": 49}},
			{Date: day(2), Closes: map[string]float64{"A": 102, "B": 51}},
		},
	}
}

func TestPriceTable_Validate(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		assert.NoError(t, twoSymbolTable().Validate())
	})

	testCases := []struct {
		name   string
		mutate func(p *PriceTable)
	}{
		{"no symbols", func(p *PriceTable) { p.Symbols = nil }},
		{"duplicate symbols", func(p *PriceTable) { p.Symbols = []string{"A", "A"} }},
		{"single row", func(p *PriceTable) { p.Rows = p.Rows[:1] }},
		{"zero price", func(p *PriceTable) { p.Rows[1].Closes["A"] = 0 }},
		{"negative price", func(p *PriceTable) { p.Rows[2].Closes["B"] = -3 }},
		{"NaN price", func(p *PriceTable) { p.Rows[2].Closes["B"] = math.NaN() }},
		{"missing symbol", func(p *PriceTable) { delete(p.Rows[1].Closes, "B") }},
		{"unordered dates", func(p *PriceTable) { p.Rows[2].Date = day(0) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table := twoSymbolTable()
			tc.mutate(&table)
			err := table.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestPriceTable_Column(t *testing.T) {
	table := twoSymbolTable()

	col, err := table.Column("B")
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 49, 51}, col)

	_, err = table.Column("C")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPriceTable_SelectAndBetween(t *testing.T) {
	table := twoSymbolTable()

	sel, err := table.Select([]string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, sel.Symbols)
	assert.Equal(t, 3, sel.Len())
	_, hasA := sel.Rows[0].Closes["A"]
	assert.False(t, hasA)

	_, err = table.Select([]string{"Z"})
	assert.ErrorIs(t, err, ErrNoData)

	window := table.Between(day(1), day(2))
	require.Equal(t, 1, window.Len())
	assert.Equal(t, day(1), window.Rows[0].Date)
	assert.True(t, table.Between(day(5), day(9)).Empty())
}

func TestAlignSeries_IntersectsDates(t *testing.T) {
	series := map[string][]DatedPrice{
		"A": {{day(2), 3}, {day(0), 1}, {day(1), 2}},
		"B": {{day(1), 20}, {day(2), 30}, {day(3), 40}},
	}

	table := AlignSeries([]string{"A", "B"}, series)

	assert.Equal(t, []string{"A", "B"}, table.Symbols)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []time.Time{day(1), day(2)}, table.Dates())
	assert.Equal(t, 2.0, table.Rows[0].Closes["A"])
	assert.Equal(t, 30.0, table.Rows[1].Closes["B"])
}

func TestAlignSeries_MissingSymbolYieldsEmpty(t *testing.T) {
	table := AlignSeries([]string{"A", "B"}, map[string][]DatedPrice{
		"A": {{day(0), 1}},
	})
	assert.True(t, table.Empty())
}

func TestErrorKinds(t *testing.T) {
	shape := NewShapeMismatch("weights", 3, 2)
	assert.ErrorIs(t, shape, ErrShapeMismatch)
	assert.Contains(t, shape.Error(), "expected 3")

	var sm *ShapeMismatchError
	require.ErrorAs(t, shape, &sm)
	assert.Equal(t, 2, sm.Got)

	opt := &OptimizationFailedError{Method: "BFGS", Status: "IterationLimit"}
	assert.ErrorIs(t, opt, ErrOptimizationFailed)
	assert.NotErrorIs(t, opt, ErrShapeMismatch)
	assert.Contains(t, opt.Error(), "IterationLimit")
}
