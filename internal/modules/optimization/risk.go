package optimization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultCorrelationThreshold flags pairs whose correlation magnitude is at least 0.80
const DefaultCorrelationThreshold = 0.80

// HighCorrelations extracts asset pairs whose correlation magnitude reaches
// threshold. Assets with zero variance have no defined correlation and are skipped.
// Pairs are ordered by descending magnitude.
func HighCorrelations(cov mat.Symmetric, symbols []string, threshold float64) []CorrelationPair {
	n := cov.SymmetricDim()
	if n == 0 || len(symbols) != n {
		return []CorrelationPair{}
	}

	variances := make([]float64, n)
	for i := 0; i < n; i++ {
		variances[i] = cov.At(i, i)
	}

	pairs := make([]CorrelationPair, 0)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if variances[i] <= 0 || variances[j] <= 0 {
				continue
			}
			correlation := cov.At(i, j) / math.Sqrt(variances[i]*variances[j])
			if math.Abs(correlation) >= threshold {
				pairs = append(pairs, CorrelationPair{
					Symbol1:     symbols[i],
					Symbol2:     symbols[j],
					Correlation: correlation,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs
}
