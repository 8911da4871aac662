// Package optimization estimates the return model of a basket of assets and
// searches for the portfolio with the highest Sharpe ratio.
package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/markowitz/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultWeightTolerance bounds the allowed drift of a weight sum from 1
const DefaultWeightTolerance = 1e-6

// WeightVector is a long-only allocation: non-negative entries summing to 1
type WeightVector []float64

// Sum returns the total allocation
func (w WeightVector) Sum() float64 {
	return floats.Sum(w)
}

// Validate checks bounds [0, 1] and that the entries sum to 1 within tol
func (w WeightVector) Validate(tol float64) error {
	if len(w) == 0 {
		return fmt.Errorf("%w: empty weight vector", domain.ErrInvalidInput)
	}
	for i, v := range w {
		if math.IsNaN(v) || v < -tol || v > 1+tol {
			return fmt.Errorf("%w: weight %d out of bounds: %g", domain.ErrInvalidInput, i, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > tol {
		return fmt.Errorf("%w: weights sum to %g", domain.ErrInvalidInput, sum)
	}
	return nil
}

// Normalized returns a copy with negatives clipped to zero, rescaled to sum to 1
func (w WeightVector) Normalized() WeightVector {
	out := make(WeightVector, len(w))
	for i, v := range w {
		out[i] = math.Max(0, v)
	}
	if sum := floats.Sum(out); sum > 0 {
		floats.Scale(1/sum, out)
	}
	return out
}

// Clone returns an independent copy
func (w WeightVector) Clone() WeightVector {
	return append(WeightVector(nil), w...)
}

// PortfolioStats are the annualized moments of a weighted portfolio
type PortfolioStats struct {
	ExpectedReturn float64
	Volatility     float64
	SharpeRatio    float64
}

// SampledPortfolio is one Monte Carlo draw with its statistics
type SampledPortfolio struct {
	Weights WeightVector
	Stats   PortfolioStats
}

// OptimizationResult describes the solver outcome
type OptimizationResult struct {
	Weights         WeightVector
	Success         bool
	Status          string
	Message         string
	Method          string
	Iterations      int
	FuncEvaluations int
}

// RiskModel is the estimated return model handed to the sampler and optimizer.
// It is computed once per run and never mutated.
type RiskModel struct {
	Symbols         []string
	Returns         *LogReturnSeries
	ExpectedReturns []float64
	Covariance      *mat.SymDense
	TradingDays     int
}

// NumAssets returns the number of assets in the model
func (m *RiskModel) NumAssets() int {
	return len(m.Symbols)
}

// CorrelationPair is a pair of assets whose returns move together
type CorrelationPair struct {
	Symbol1     string
	Symbol2     string
	Correlation float64
}
