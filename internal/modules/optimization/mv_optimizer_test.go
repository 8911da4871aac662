package optimization

import (
	"testing"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMVOptimizer_TwoIndependentAssets(t *testing.T) {
	mu, cov := twoAssetModel()
	optimizer := NewMVOptimizer(zerolog.Nop())

	result, err := optimizer.Optimize(mu, cov, WeightVector{0.5, 0.5}, 2)
	require.NoError(t, err)
	require.True(t, result.Success)

	// Tangency portfolio is proportional to Σ⁻¹μ = [2.5, 2.2222]
	assert.InDelta(t, 0.5294, result.Weights[0], 1e-3)
	assert.InDelta(t, 0.4706, result.Weights[1], 1e-3)

	stats, err := PortfolioStatistics(result.Weights, mu, cov)
	require.NoError(t, err)
	assert.InDelta(t, 0.8333, stats.SharpeRatio, 1e-4)
	assert.Greater(t, stats.SharpeRatio, 0.10/0.2)
	assert.Greater(t, stats.SharpeRatio, 0.20/0.3)
}

func TestMVOptimizer_WeightsSatisfyConstraints(t *testing.T) {
	mu := []float64{0.08, 0.12, 0.15, 0.05}
	cov := mat.NewSymDense(4, []float64{
		0.040, 0.006, 0.010, 0.002,
		0.006, 0.050, 0.012, 0.001,
		0.010, 0.012, 0.090, 0.003,
		0.002, 0.001, 0.003, 0.020,
	})
	optimizer := NewMVOptimizer(zerolog.Nop())

	result, err := optimizer.Optimize(mu, cov, WeightVector{0.1, 0.2, 0.3, 0.4}, 4)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.Weights.Sum(), 1e-6)
	for _, w := range result.Weights {
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0)
	}

	optimal, err := PortfolioStatistics(result.Weights, mu, cov)
	require.NoError(t, err)

	// No random portfolio should beat the optimum
	samples, err := seededSampler().Sample(mu, cov, 4, 5000)
	require.NoError(t, err)
	for _, sp := range samples {
		assert.LessOrEqual(t, sp.Stats.SharpeRatio, optimal.SharpeRatio+1e-6)
	}
}

func TestMVOptimizer_CornerSolution(t *testing.T) {
	// A losing asset uncorrelated with the others should be dropped entirely
	mu := []float64{0.10, 0.20, -0.05}
	cov := mat.NewSymDense(3, []float64{
		0.04, 0, 0,
		0, 0.09, 0,
		0, 0, 0.01,
	})
	optimizer := NewMVOptimizer(zerolog.Nop())

	result, err := optimizer.Optimize(mu, cov, WeightVector{0.3, 0.3, 0.4}, 3)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.Weights[2], 1e-3)
	stats, err := PortfolioStatistics(result.Weights, mu, cov)
	require.NoError(t, err)
	assert.InDelta(t, 0.8333, stats.SharpeRatio, 1e-3)
}

func TestMVOptimizer_Idempotent(t *testing.T) {
	mu, cov := twoAssetModel()
	optimizer := NewMVOptimizer(zerolog.Nop())
	initial := WeightVector{0.3, 0.7}

	first, err := optimizer.Optimize(mu, cov, initial, 2)
	require.NoError(t, err)
	second, err := optimizer.Optimize(mu, cov, initial, 2)
	require.NoError(t, err)

	s1, err := PortfolioStatistics(first.Weights, mu, cov)
	require.NoError(t, err)
	s2, err := PortfolioStatistics(second.Weights, mu, cov)
	require.NoError(t, err)
	assert.InDelta(t, s1.SharpeRatio, s2.SharpeRatio, 1e-9)
	assert.Equal(t, WeightVector{0.3, 0.7}, initial, "initial weights must not be mutated")
}

func TestMVOptimizer_SingleAsset(t *testing.T) {
	optimizer := NewMVOptimizer(zerolog.Nop())
	cov := mat.NewSymDense(1, []float64{0.04})

	result, err := optimizer.Optimize([]float64{0.1}, cov, WeightVector{1.0}, 1)
	require.NoError(t, err)

	assert.Equal(t, WeightVector{1.0}, result.Weights)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Iterations)
}

func TestMVOptimizer_ShapeMismatch(t *testing.T) {
	mu, cov := twoAssetModel()
	optimizer := NewMVOptimizer(zerolog.Nop())

	_, err := optimizer.Optimize(mu, cov, WeightVector{0.2, 0.3, 0.5}, 2)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)

	_, err = optimizer.Optimize(mu, cov, WeightVector{0.2, 0.3, 0.5}, 3)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestMVOptimizer_InitialMustBeWeightVector(t *testing.T) {
	mu, cov := twoAssetModel()
	optimizer := NewMVOptimizer(zerolog.Nop())

	_, err := optimizer.Optimize(mu, cov, WeightVector{0.9, 0.9}, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSharpeProblem_GradientMatchesFiniteDifference(t *testing.T) {
	mu := []float64{0.08, 0.12, 0.15}
	cov := mat.NewSymDense(3, []float64{
		0.040, 0.006, 0.010,
		0.006, 0.050, 0.012,
		0.010, 0.012, 0.090,
	})
	problem := sharpeProblem(mu, cov, 10)
	x := []float64{0.5, 0.7, 0.6}

	grad := make([]float64, 3)
	problem.Grad(grad, x)

	const h = 1e-6
	for i := range x {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[i] += h
		xm[i] -= h
		numeric := (problem.Func(xp) - problem.Func(xm)) / (2 * h)
		assert.InDelta(t, numeric, grad[i], 1e-6)
	}
}
