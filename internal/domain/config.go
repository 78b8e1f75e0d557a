package domain

import (
	"fmt"
)

// Fat-tail injection methods supported by the sampler.
const (
	FatTailStudentT       = "student_t"
	FatTailGaussianCopula = "gaussian_copula"
)

// Simulation sizing limits. The upper bound keeps a runaway request from
// exhausting memory on the host; the dashboard offers 10K-250K.
const (
	MinPaths = 100
	MaxPaths = 1_000_000

	DefaultPaths             = 10_000
	DefaultSteps             = 12
	DefaultHistogramBins     = 40
	DefaultDrawdownThreshold = 0.20
)

// SimulationConfig controls a single Monte Carlo run. Immutable per run.
type SimulationConfig struct {
	NumPaths          int     `json:"num_paths"`
	NumSteps          int     `json:"num_steps"` // intra-path compounding steps over the horizon
	FatTailMethod     string  `json:"fat_tail_method"`
	UseQMC            bool    `json:"use_qmc"`
	DrawdownThreshold float64 `json:"drawdown_threshold"`
	HistogramBins     int     `json:"histogram_bins"`
	Seed              uint64  `json:"seed"`
}

// Normalized returns a copy with defaults applied to zero-valued fields.
func (c SimulationConfig) Normalized() SimulationConfig {
	out := c
	if out.NumPaths == 0 {
		out.NumPaths = DefaultPaths
	}
	if out.NumSteps == 0 {
		out.NumSteps = DefaultSteps
	}
	if out.FatTailMethod == "" {
		out.FatTailMethod = FatTailStudentT
	}
	if out.DrawdownThreshold == 0 {
		out.DrawdownThreshold = DefaultDrawdownThreshold
	}
	if out.HistogramBins == 0 {
		out.HistogramBins = DefaultHistogramBins
	}
	return out
}

// Validate checks a normalized configuration.
func (c SimulationConfig) Validate() error {
	if c.NumPaths < MinPaths || c.NumPaths > MaxPaths {
		return fmt.Errorf("num_paths must be in [%d,%d], got %d", MinPaths, MaxPaths, c.NumPaths)
	}
	if c.NumSteps < 1 {
		return fmt.Errorf("num_steps must be >= 1, got %d", c.NumSteps)
	}
	if c.FatTailMethod != FatTailStudentT && c.FatTailMethod != FatTailGaussianCopula {
		return fmt.Errorf("unknown fat_tail_method %q", c.FatTailMethod)
	}
	if c.DrawdownThreshold < 0 || c.DrawdownThreshold >= 1 {
		return fmt.Errorf("drawdown_threshold must be in [0,1), got %v", c.DrawdownThreshold)
	}
	if c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be >= 1, got %d", c.HistogramBins)
	}
	return nil
}

// Optimization defaults.
const (
	DefaultSwapSize     = 0.02 // 2% of NLV per swap leg
	DefaultTopSwaps     = 10
	DefaultRiskFreeRate = 0.03
)

// OptimizationConfig controls a risk attribution and trade ranking run.
// The embedded simulation config drives the Monte Carlo validation pass.
type OptimizationConfig struct {
	RiskFreeRate float64          `json:"risk_free_rate"`
	SwapSize     float64          `json:"swap_size"` // fraction of NLV moved per swap
	TopSwaps     int              `json:"top_swaps"` // candidates validated with a full MC pass
	Simulation   SimulationConfig `json:"simulation"`
}

// Normalized returns a copy with defaults applied.
func (c OptimizationConfig) Normalized() OptimizationConfig {
	out := c
	if out.RiskFreeRate == 0 {
		out.RiskFreeRate = DefaultRiskFreeRate
	}
	if out.SwapSize == 0 {
		out.SwapSize = DefaultSwapSize
	}
	if out.TopSwaps == 0 {
		out.TopSwaps = DefaultTopSwaps
	}
	out.Simulation = out.Simulation.Normalized()
	return out
}

// Validate checks a normalized configuration.
func (c OptimizationConfig) Validate() error {
	if c.SwapSize <= 0 || c.SwapSize > 0.25 {
		return fmt.Errorf("swap_size must be in (0,0.25], got %v", c.SwapSize)
	}
	if c.TopSwaps < 0 {
		return fmt.Errorf("top_swaps cannot be negative, got %d", c.TopSwaps)
	}
	return c.Simulation.Validate()
}
