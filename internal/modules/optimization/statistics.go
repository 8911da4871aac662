package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/markowitz/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PortfolioStatistics computes expected return, volatility and Sharpe ratio
// of weights under the annualized return model. A slightly negative quadratic
// form from rounding is clamped to zero; a zero volatility is reported as
// ErrDegenerateVariance instead of an infinite ratio.
func PortfolioStatistics(weights WeightVector, expectedReturns []float64, cov mat.Symmetric) (PortfolioStats, error) {
	if err := checkModelShape(len(weights), expectedReturns, cov); err != nil {
		return PortfolioStats{}, err
	}

	ret, variance := portfolioMoments(weights, expectedReturns, cov)
	volatility := math.Sqrt(variance)
	if volatility == 0 {
		return PortfolioStats{}, fmt.Errorf("%w: portfolio volatility is zero", domain.ErrDegenerateVariance)
	}

	return PortfolioStats{
		ExpectedReturn: ret,
		Volatility:     volatility,
		SharpeRatio:    ret / volatility,
	}, nil
}

// portfolioMoments returns w·μ and max(wᵀΣw, 0). Shapes must already be checked.
func portfolioMoments(w, mu []float64, cov mat.Symmetric) (ret, variance float64) {
	ret = floats.Dot(w, mu)
	v := mat.NewVecDense(len(w), w)
	variance = mat.Inner(v, cov, v)
	if variance < 0 {
		variance = 0
	}
	return ret, variance
}

// checkModelShape verifies μ and Σ both describe numAssets assets
func checkModelShape(numAssets int, expectedReturns []float64, cov mat.Symmetric) error {
	if numAssets < 1 {
		return fmt.Errorf("%w: need at least one asset", domain.ErrInvalidInput)
	}
	if len(expectedReturns) != numAssets {
		return domain.NewShapeMismatch("expected returns", numAssets, len(expectedReturns))
	}
	if cov == nil {
		return fmt.Errorf("%w: covariance matrix is nil", domain.ErrInvalidInput)
	}
	if n := cov.SymmetricDim(); n != numAssets {
		return domain.NewShapeMismatch("covariance matrix", numAssets, n)
	}
	return nil
}
