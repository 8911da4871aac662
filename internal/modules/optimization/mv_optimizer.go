package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	// Floor applied to wᵀΣw inside the objective so the line search never divides by zero
	varianceFloor = 1e-10
	// Lower bound on starting weights; a zero coordinate has zero gradient and could never move
	minStartWeight = 1e-4
)

// acceptedStatuses are the terminal solver statuses treated as converged
var acceptedStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionConvergence: true,
	optimize.GradientThreshold:   true,
	optimize.MethodConverge:      true,
}

// MVOptimizer finds the long-only, fully invested portfolio with the highest Sharpe ratio.
//
// Weights are parametrized as wᵢ = xᵢ² / Σx², which satisfies Σw = 1 and
// 0 ≤ wᵢ ≤ 1 for every x. The parametrization is invariant to the scale of x,
// so a penalty on (Σx² - 1)² pins the radial direction and keeps the
// unconstrained problem well conditioned for BFGS.
type MVOptimizer struct {
	penaltyWeight float64
	maxIterations int
	log           zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer
func NewMVOptimizer(log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		penaltyWeight: 10.0,
		maxIterations: 2000,
		log:           log.With().Str("component", "mv_optimizer").Logger(),
	}
}

// Optimize maximizes (wᵀμ)/√(wᵀΣw) starting from initial.
// It runs one optimization attempt; when BFGS stops on a non-converged status
// the same start is retried with Nelder-Mead, and if that also fails the
// error wraps domain.ErrOptimizationFailed.
func (mvo *MVOptimizer) Optimize(
	expectedReturns []float64,
	cov mat.Symmetric,
	initial WeightVector,
	numAssets int,
) (*OptimizationResult, error) {
	if len(initial) != numAssets {
		return nil, domain.NewShapeMismatch("initial weights", numAssets, len(initial))
	}
	if err := checkModelShape(numAssets, expectedReturns, cov); err != nil {
		return nil, err
	}
	if err := initial.Validate(DefaultWeightTolerance); err != nil {
		return nil, fmt.Errorf("initial weights: %w", err)
	}

	// A single asset has exactly one feasible point
	if numAssets == 1 {
		return &OptimizationResult{
			Weights: WeightVector{1.0},
			Success: true,
			Status:  optimize.Success.String(),
			Message: "single asset",
			Method:  "none",
		}, nil
	}

	problem := sharpeProblem(expectedReturns, cov, mvo.penaltyWeight)

	x0 := make([]float64, numAssets)
	for i, w := range initial {
		x0[i] = math.Sqrt(math.Max(w, minStartWeight))
	}

	method := "BFGS"
	result, err := optimize.Minimize(problem, x0, mvo.settings(), &optimize.BFGS{})
	if err != nil || result == nil || !acceptedStatuses[result.Status] {
		mvo.log.Debug().
			Str("status", statusOf(result)).
			Err(err).
			Msg("BFGS did not converge, retrying with Nelder-Mead")

		firstEvals := 0
		if result != nil {
			firstEvals = result.FuncEvaluations
		}
		method = "NelderMead"
		result, err = optimize.Minimize(problem, x0, mvo.settings(), &optimize.NelderMead{})
		if result != nil {
			result.FuncEvaluations += firstEvals
		}
	}

	if err != nil || result == nil || !acceptedStatuses[result.Status] {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return nil, &domain.OptimizationFailedError{
			Method:  method,
			Status:  statusOf(result),
			Message: msg,
		}
	}

	weights := simplexWeights(result.X).Normalized()
	if err := weights.Validate(DefaultWeightTolerance); err != nil {
		return nil, &domain.OptimizationFailedError{Method: method, Status: statusOf(result), Message: err.Error()}
	}

	mvo.log.Debug().
		Str("method", method).
		Str("status", result.Status.String()).
		Int("iterations", result.MajorIterations).
		Int("func_evaluations", result.FuncEvaluations).
		Float64("sharpe", -result.F).
		Msg("Optimization converged")

	return &OptimizationResult{
		Weights:         weights,
		Success:         true,
		Status:          result.Status.String(),
		Message:         "optimization terminated successfully",
		Method:          method,
		Iterations:      result.MajorIterations,
		FuncEvaluations: result.FuncEvaluations,
	}, nil
}

func (mvo *MVOptimizer) settings() *optimize.Settings {
	return &optimize.Settings{
		GradientThreshold: 1e-9,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 100,
		},
		MajorIterations: mvo.maxIterations,
	}
}

// sharpeProblem builds the negative Sharpe objective over the simplex
// parametrization. It depends only on its arguments.
func sharpeProblem(mu []float64, cov mat.Symmetric, penaltyWeight float64) optimize.Problem {
	n := len(mu)

	return optimize.Problem{
		Func: func(x []float64) float64 {
			q := floats.Dot(x, x)
			if q == 0 {
				return math.Inf(1)
			}
			w := simplexWeights(x)
			ret, variance := portfolioMoments(w, mu, cov)
			sharpe := ret / math.Sqrt(math.Max(variance, varianceFloor))
			return -sharpe + penaltyWeight*(q-1)*(q-1)
		},
		Grad: func(grad, x []float64) {
			q := floats.Dot(x, x)
			if q == 0 {
				for i := range grad {
					grad[i] = 0
				}
				return
			}
			w := simplexWeights(x)
			ret, variance := portfolioMoments(w, mu, cov)
			stdDev := math.Sqrt(math.Max(variance, varianceFloor))

			// dS/dwᵢ = μᵢ/σ - r(Σw)ᵢ/σ³
			sigmaW := mat.NewVecDense(n, nil)
			sigmaW.MulVec(cov, mat.NewVecDense(n, w))
			g := make([]float64, n)
			for i := 0; i < n; i++ {
				g[i] = mu[i]/stdDev - ret*sigmaW.AtVec(i)/(stdDev*stdDev*stdDev)
			}
			gBar := floats.Dot(w, g)

			// Chain rule through wₖ = xₖ²/q: ∂wₖ/∂xᵢ = (2xᵢ/q)(δₖᵢ - wₖ)
			for i := 0; i < n; i++ {
				grad[i] = -(2*x[i]/q)*(g[i]-gBar) + 4*penaltyWeight*(q-1)*x[i]
			}
		},
	}
}

// simplexWeights maps x onto the probability simplex as xᵢ²/Σx²
func simplexWeights(x []float64) WeightVector {
	w := make(WeightVector, len(x))
	q := floats.Dot(x, x)
	if q == 0 {
		return w
	}
	for i, v := range x {
		w[i] = v * v / q
	}
	return w
}

func statusOf(result *optimize.Result) string {
	if result == nil {
		return optimize.NotTerminated.String()
	}
	return result.Status.String()
}
