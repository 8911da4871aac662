package optimization

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws random long-only portfolios (Monte Carlo simulation)
type Sampler struct {
	uniform        distuv.Uniform
	skipDegenerate bool
	log            zerolog.Logger
}

// NewSampler creates a sampler drawing from src. A nil src is seeded from the clock.
func NewSampler(src rand.Source, log zerolog.Logger) *Sampler {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1)
	}
	return &Sampler{
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
		log:     log.With().Str("component", "sampler").Logger(),
	}
}

// SetSkipDegenerate makes Sample drop zero-volatility draws instead of failing
func (s *Sampler) SetSkipDegenerate(skip bool) {
	s.skipDegenerate = skip
}

// RandomWeights draws numAssets uniforms in [0, 1) and normalizes them by their sum.
// An all-zero draw is redrawn.
func (s *Sampler) RandomWeights(numAssets int) WeightVector {
	w := make(WeightVector, numAssets)
	for {
		for i := range w {
			w[i] = s.uniform.Rand()
		}
		if sum := floats.Sum(w); sum > 0 {
			floats.Scale(1/sum, w)
			return w
		}
	}
}

// Sample draws numSamples random portfolios and computes their statistics.
func (s *Sampler) Sample(expectedReturns []float64, cov mat.Symmetric, numAssets, numSamples int) ([]SampledPortfolio, error) {
	if numSamples < 1 {
		return nil, fmt.Errorf("%w: number of samples must be at least 1, got %d", domain.ErrInvalidInput, numSamples)
	}
	if numAssets < 1 {
		return nil, fmt.Errorf("%w: number of assets must be at least 1, got %d", domain.ErrInvalidInput, numAssets)
	}
	if err := checkModelShape(numAssets, expectedReturns, cov); err != nil {
		return nil, err
	}

	samples := make([]SampledPortfolio, 0, numSamples)
	skipped := 0
	for i := 0; i < numSamples; i++ {
		w := s.RandomWeights(numAssets)
		stats, err := PortfolioStatistics(w, expectedReturns, cov)
		if err != nil {
			if s.skipDegenerate && errors.Is(err, domain.ErrDegenerateVariance) {
				skipped++
				continue
			}
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		samples = append(samples, SampledPortfolio{Weights: w, Stats: stats})
	}

	if skipped > 0 {
		s.log.Warn().
			Int("skipped", skipped).
			Int("requested", numSamples).
			Msg("Skipped zero-volatility portfolios")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: every sampled portfolio had zero volatility", domain.ErrDegenerateVariance)
	}

	s.log.Debug().Int("samples", len(samples)).Int("assets", numAssets).Msg("Sampled portfolios")
	return samples, nil
}

// WeightsOf returns the weight vectors of samples in order
func WeightsOf(samples []SampledPortfolio) []WeightVector {
	batch := make([]WeightVector, len(samples))
	for i, sp := range samples {
		batch[i] = sp.Weights
	}
	return batch
}

// StartingWeights checks that batch is non-empty and that every row has
// exactly numAssets entries, then returns a copy of the first row.
func StartingWeights(batch []WeightVector, numAssets int) (WeightVector, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: empty weight batch", domain.ErrInvalidInput)
	}
	for i, w := range batch {
		if len(w) != numAssets {
			return nil, domain.NewShapeMismatch(fmt.Sprintf("weight batch row %d", i), numAssets, len(w))
		}
	}
	return batch[0].Clone(), nil
}

// BestSamples returns up to n samples ordered by descending Sharpe ratio
func BestSamples(samples []SampledPortfolio, n int) []SampledPortfolio {
	if n > len(samples) {
		n = len(samples)
	}
	if n <= 0 {
		return nil
	}
	sorted := append([]SampledPortfolio(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stats.SharpeRatio > sorted[j].Stats.SharpeRatio
	})
	return sorted[:n]
}
