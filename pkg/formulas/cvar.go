package formulas

import (
	"math"
	"sort"
)

// CalculateVaR calculates Value at Risk at the specified confidence level.
// VaR is the return at the (1-confidence) percentile of the distribution,
// i.e. the loss threshold that is only exceeded with probability 1-confidence.
//
// Args:
//   - returns: Simulated or historical returns (negative values are losses)
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - VaR value (negative for losses)
func CalculateVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	return Percentile(returns, (1.0-confidence)*100.0)
}

// CalculateCVaR calculates Conditional Value at Risk (CVaR) at the specified
// confidence level. CVaR is the expected loss given that the loss exceeds the
// VaR threshold, i.e. the mean of the worst (1-confidence) fraction of outcomes.
//
// Args:
//   - returns: Simulated or historical returns (negative values are losses)
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - CVaR value (negative for losses, positive for gains in tail)
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	if len(returns) == 1 {
		return returns[0]
	}

	// Sort returns in ascending order (worst first)
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// For 95% confidence, we want the worst 5% of returns
	tailProbability := 1.0 - confidence
	tailCount := int(math.Ceil(float64(len(sorted)) * tailProbability))

	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	// CVaR is the average of returns in the tail
	tailReturns := sorted[:tailCount]
	sum := 0.0
	for _, r := range tailReturns {
		sum += r
	}

	return sum / float64(len(tailReturns))
}

// ProbabilityBelow returns the empirical probability that a return falls at or
// below the given threshold. Used for P(loss), P(loss > 5%), etc.
func ProbabilityBelow(returns []float64, threshold float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	count := 0
	for _, r := range returns {
		if r <= threshold {
			count++
		}
	}
	return float64(count) / float64(len(returns))
}
