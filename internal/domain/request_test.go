package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationConfigNormalized(t *testing.T) {
	cfg := SimulationConfig{}.Normalized()

	assert.Equal(t, DefaultPaths, cfg.NumPaths)
	assert.Equal(t, DefaultSteps, cfg.NumSteps)
	assert.Equal(t, FatTailStudentT, cfg.FatTailMethod)
	assert.Equal(t, DefaultDrawdownThreshold, cfg.DrawdownThreshold)
	assert.Equal(t, DefaultHistogramBins, cfg.HistogramBins)
	assert.NoError(t, cfg.Validate())

	// Explicit values survive normalization.
	cfg = SimulationConfig{NumPaths: 50_000, FatTailMethod: FatTailGaussianCopula}.Normalized()
	assert.Equal(t, 50_000, cfg.NumPaths)
	assert.Equal(t, FatTailGaussianCopula, cfg.FatTailMethod)
}

func TestSimulationConfigValidate(t *testing.T) {
	base := SimulationConfig{}.Normalized()

	tests := []struct {
		name   string
		mutate func(*SimulationConfig)
	}{
		{"too few paths", func(c *SimulationConfig) { c.NumPaths = MinPaths - 1 }},
		{"too many paths", func(c *SimulationConfig) { c.NumPaths = MaxPaths + 1 }},
		{"zero steps", func(c *SimulationConfig) { c.NumSteps = -1 }},
		{"unknown fat tail method", func(c *SimulationConfig) { c.FatTailMethod = "cauchy" }},
		{"drawdown threshold too high", func(c *SimulationConfig) { c.DrawdownThreshold = 1.0 }},
		{"negative drawdown threshold", func(c *SimulationConfig) { c.DrawdownThreshold = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOptimizationConfigNormalized(t *testing.T) {
	cfg := OptimizationConfig{}.Normalized()

	assert.Equal(t, DefaultRiskFreeRate, cfg.RiskFreeRate)
	assert.Equal(t, DefaultSwapSize, cfg.SwapSize)
	assert.Equal(t, DefaultTopSwaps, cfg.TopSwaps)
	assert.Equal(t, DefaultPaths, cfg.Simulation.NumPaths)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, OptimizationConfig{SwapSize: 0.5, Simulation: SimulationConfig{}.Normalized()}.Validate())
}

func TestSimulationRequestValidate(t *testing.T) {
	req := SimulationRequest{
		Positions: []Position{
			{Ticker: "AAPL", Quantity: 10, Price: 150, Percentiles: validPercentiles()},
			{Ticker: "MSFT", Quantity: 5, Price: 300, Percentiles: validPercentiles()},
		},
	}

	out, err := req.Validate()
	require.NoError(t, err)

	// Missing correlation defaults to identity, config to defaults.
	require.Equal(t, 2, out.Correlation.Dim())
	assert.Equal(t, 1.0, out.Correlation[0][0])
	assert.Equal(t, 0.0, out.Correlation[0][1])
	assert.Equal(t, DefaultPaths, out.Config.NumPaths)

	// Original request untouched.
	assert.Nil(t, req.Correlation)
	assert.Equal(t, 0, req.Config.NumPaths)
}

func TestSimulationRequestValidateRejectsBadInput(t *testing.T) {
	_, err := SimulationRequest{}.Validate()
	assert.Error(t, err)

	_, err = SimulationRequest{
		Positions: []Position{
			{Ticker: "AAPL", Quantity: 10, Price: 150, Percentiles: validPercentiles()},
		},
		Correlation: CorrelationMatrix{{1, 0.3}, {0.3, 1}},
	}.Validate()
	assert.Error(t, err) // dimension mismatch
}

func TestOptimizationRequestRequiresTwoPositions(t *testing.T) {
	_, err := OptimizationRequest{
		Positions: []Position{
			{Ticker: "AAPL", Quantity: 10, Price: 150, Percentiles: validPercentiles()},
		},
	}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 positions")
}
