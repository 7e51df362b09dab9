package balance

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultActiveExponent shapes the active-resource damping term.
	DefaultActiveExponent = 1.0
	// DefaultCVWeight scales the coefficient of variation in the damping
	// denominator 1/(1 + w*cv).
	DefaultCVWeight = 1.0
)

// Evaluator scores how evenly a resource pool's loads are spread, on a
// 0-100 scale. The raw score is the Jain fairness index rescaled from its
// achievable range [1/n, 1]; a damping factor then penalizes pools that
// only look fair because few resources are active. The damping exponents
// are empirical constants and stay tunable.
type Evaluator struct {
	ActiveExponent float64 // Exponent on the active-resource fraction
	CVWeight       float64 // Weight on the coefficient of variation
}

// NewEvaluator creates an evaluator with the default damping constants.
func NewEvaluator() Evaluator {
	return Evaluator{
		ActiveExponent: DefaultActiveExponent,
		CVWeight:       DefaultCVWeight,
	}
}

// Score returns the damped fairness score of the given loads in [0, 100].
// Empty or all-zero pools score 0.
func (e Evaluator) Score(loads []float64) float64 {
	n := len(loads)
	if n == 0 {
		return 0
	}

	maxLoad := floats.Max(loads)
	if maxLoad <= 0 {
		return 0
	}

	normalized := make([]float64, n)
	for i, load := range loads {
		normalized[i] = load / maxLoad
	}

	// Jain fairness J = (sum x)^2 / (n * sum x^2); the max-normalized pool
	// always contains a 1, so the denominator is nonzero.
	sum := floats.Sum(normalized)
	sumSquares := floats.Dot(normalized, normalized)
	jain := sum * sum / (float64(n) * sumSquares)

	// Rescale from the achievable range [1/n, 1] to [0, 100].
	raw := 100.0
	if n > 1 {
		minJain := 1.0 / float64(n)
		raw = (jain - minJain) / (1.0 - minJain) * 100.0
	}

	score := raw * e.damping(normalized)

	return math.Min(math.Max(score, 0), 100)
}

// Imbalance returns 100 - Score, the quantity minimized by the solver.
func (e Evaluator) Imbalance(loads []float64) float64 {
	return 100.0 - e.Score(loads)
}

// damping computes (active fraction)^a / (1 + w*cv) over the normalized
// loads, where cv is the population coefficient of variation of the
// nonzero entries.
func (e Evaluator) damping(normalized []float64) float64 {
	active := make([]float64, 0, len(normalized))
	for _, x := range normalized {
		if x > 0 {
			active = append(active, x)
		}
	}
	if len(active) == 0 {
		return 0
	}

	activeRatio := float64(len(active)) / float64(len(normalized))

	cv := 0.0
	if mean := stat.Mean(active, nil); mean > 0 {
		cv = stat.PopStdDev(active, nil) / mean
	}

	return math.Pow(activeRatio, e.ActiveExponent) / (1.0 + e.CVWeight*cv)
}
