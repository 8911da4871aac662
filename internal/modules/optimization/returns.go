package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LogReturnSeries holds ln(P_t / P_{t-1}) per asset, one row per trading day
// after the first price row.
type LogReturnSeries struct {
	Symbols []string
	Dates   []time.Time
	values  *mat.Dense
}

// Len returns the number of return observations
func (s *LogReturnSeries) Len() int {
	r, _ := s.values.Dims()
	return r
}

// At returns the log return of asset j on observation i
func (s *LogReturnSeries) At(i, j int) float64 {
	return s.values.At(i, j)
}

// Column returns a copy of one asset's return series
func (s *LogReturnSeries) Column(j int) []float64 {
	return mat.Col(nil, j, s.values)
}

// Matrix exposes the observations as a read-only matrix
func (s *LogReturnSeries) Matrix() mat.Matrix {
	return s.values
}

// ExpectedReturns returns the column means scaled by tradingDays
func (s *LogReturnSeries) ExpectedReturns(tradingDays int) []float64 {
	_, c := s.values.Dims()
	mu := make([]float64, c)
	for j := 0; j < c; j++ {
		mu[j] = stat.Mean(s.Column(j), nil) * float64(tradingDays)
	}
	return mu
}

// EstimateReturns converts a price table into daily log returns and their
// annualized sample covariance (denominator N-1, scaled by tradingDays).
// Tables with fewer than three rows are rejected because a sample covariance
// needs at least two return observations.
func EstimateReturns(prices domain.PriceTable, tradingDays int) (*LogReturnSeries, *mat.SymDense, error) {
	if tradingDays <= 0 {
		return nil, nil, fmt.Errorf("%w: trading days must be positive, got %d", domain.ErrInvalidInput, tradingDays)
	}
	if err := prices.Validate(); err != nil {
		return nil, nil, err
	}
	if prices.Len() < 3 {
		return nil, nil, fmt.Errorf("%w: need at least 3 price rows for a covariance, got %d",
			domain.ErrInvalidInput, prices.Len())
	}

	n := len(prices.Symbols)
	rows := prices.Len() - 1
	values := mat.NewDense(rows, n, nil)
	dates := make([]time.Time, rows)

	for i := 1; i < prices.Len(); i++ {
		prev, cur := prices.Rows[i-1], prices.Rows[i]
		dates[i-1] = cur.Date
		for j, sym := range prices.Symbols {
			values.Set(i-1, j, math.Log(cur.Closes[sym]/prev.Closes[sym]))
		}
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, values, nil)
	cov.ScaleSym(float64(tradingDays), cov)

	series := &LogReturnSeries{
		Symbols: append([]string(nil), prices.Symbols...),
		Dates:   dates,
		values:  values,
	}
	return series, cov, nil
}

// RiskModelBuilder estimates the return model once per run
type RiskModelBuilder struct {
	tradingDays int
	log         zerolog.Logger
}

// NewRiskModelBuilder creates a builder annualizing with tradingDays
func NewRiskModelBuilder(tradingDays int, log zerolog.Logger) *RiskModelBuilder {
	return &RiskModelBuilder{
		tradingDays: tradingDays,
		log:         log.With().Str("component", "risk_model_builder").Logger(),
	}
}

// Build estimates log returns, annualized expected returns and covariance
func (rb *RiskModelBuilder) Build(prices domain.PriceTable) (*RiskModel, error) {
	series, cov, err := EstimateReturns(prices, rb.tradingDays)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate returns: %w", err)
	}

	model := &RiskModel{
		Symbols:         series.Symbols,
		Returns:         series,
		ExpectedReturns: series.ExpectedReturns(rb.tradingDays),
		Covariance:      cov,
		TradingDays:     rb.tradingDays,
	}

	for i, sym := range model.Symbols {
		variance := cov.At(i, i)
		if variance == 0 {
			rb.log.Warn().Str("symbol", sym).Msg("Asset has zero return variance")
		}
		rb.log.Debug().
			Str("symbol", sym).
			Float64("expected_return", model.ExpectedReturns[i]).
			Float64("volatility", math.Sqrt(variance)).
			Msg("Estimated asset moments")
	}

	rb.log.Info().
		Int("assets", model.NumAssets()).
		Int("observations", series.Len()).
		Int("trading_days", rb.tradingDays).
		Msg("Built risk model")

	return model, nil
}
