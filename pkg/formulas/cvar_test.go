package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateVaR(t *testing.T) {
	// 100 returns from -0.50 up to 0.49 in steps of 0.01.
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = -0.50 + float64(i)*0.01
	}

	// 95% VaR is the 5th percentile: rank 0.05*99 = 4.95.
	v := CalculateVaR(returns, 0.95)
	assert.InDelta(t, -0.4505, v, 1e-9)

	// 90% VaR sits higher than 95% VaR.
	assert.Greater(t, CalculateVaR(returns, 0.90), v)

	assert.Equal(t, 0.0, CalculateVaR(nil, 0.95))
}

func TestCalculateCVaR(t *testing.T) {
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = -0.50 + float64(i)*0.01
	}

	// Worst 5 returns: -0.50 .. -0.46, mean -0.48.
	cvar := CalculateCVaR(returns, 0.95)
	assert.InDelta(t, -0.48, cvar, 1e-9)

	// CVaR is never better than VaR at the same confidence.
	assert.LessOrEqual(t, cvar, CalculateVaR(returns, 0.95))

	assert.Equal(t, 0.0, CalculateCVaR(nil, 0.95))
	assert.Equal(t, -0.1, CalculateCVaR([]float64{-0.1}, 0.95))
}

func TestProbabilityBelow(t *testing.T) {
	returns := []float64{-0.2, -0.1, 0.0, 0.1, 0.2}

	assert.InDelta(t, 0.6, ProbabilityBelow(returns, 0.0), 1e-12)
	assert.InDelta(t, 0.2, ProbabilityBelow(returns, -0.15), 1e-12)
	assert.InDelta(t, 1.0, ProbabilityBelow(returns, 1.0), 1e-12)
	assert.InDelta(t, 0.0, ProbabilityBelow(returns, -1.0), 1e-12)
	assert.Equal(t, 0.0, ProbabilityBelow(nil, 0.0))
}
