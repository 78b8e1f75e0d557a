package simulation

import (
	"math"
	"sort"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/pkg/formulas"
)

// Summarize reduces one scalar-per-path ensemble into a Distribution.
// NaN values are filtered; an empty or all-NaN ensemble yields the
// HasData=false sentinel instead of propagating NaN to consumers.
func Summarize(values []float64, histogramBins int) domain.Distribution {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return domain.Distribution{HasData: false}
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	return domain.Distribution{
		HasData: true,
		Mean:    formulas.Mean(clean),
		StdDev:  formulas.StdDev(clean),
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Percentiles: domain.ScenarioValues{
			P5:  formulas.PercentileSorted(sorted, 5),
			P25: formulas.PercentileSorted(sorted, 25),
			P50: formulas.PercentileSorted(sorted, 50),
			P75: formulas.PercentileSorted(sorted, 75),
			P95: formulas.PercentileSorted(sorted, 95),
		},
		Histogram: formulas.Histogram(clean, histogramBins),
	}
}

// LossProbabilities computes the empirical CDF at the fixed loss thresholds
// surfaced in the dashboard.
func LossProbabilities(returns []float64) domain.ProbLoss {
	return domain.ProbLoss{
		Breakeven: formulas.ProbabilityBelow(returns, 0),
		Loss5:     formulas.ProbabilityBelow(returns, -0.05),
		Loss10:    formulas.ProbabilityBelow(returns, -0.10),
		Loss20:    formulas.ProbabilityBelow(returns, -0.20),
		Loss30:    formulas.ProbabilityBelow(returns, -0.30),
	}
}

// TailRisk computes VaR and CVaR at the 95% and 90% levels from the terminal
// return ensemble.
func TailRisk(returns []float64) domain.RiskMetrics {
	return domain.RiskMetrics{
		VaR5:   formulas.CalculateVaR(returns, 0.95),
		VaR10:  formulas.CalculateVaR(returns, 0.90),
		CVaR5:  formulas.CalculateCVaR(returns, 0.95),
		CVaR10: formulas.CalculateCVaR(returns, 0.90),
	}
}

// Contributions computes each position's weighted return contribution for
// the named scenarios. For a percentile scenario the path whose portfolio
// return is nearest that percentile is re-evaluated asset by asset; for the
// mean scenario contributions are averaged across all paths. For every
// scenario the contributions sum to the portfolio return of that scenario's
// representative path (or the ensemble mean).
func Contributions(
	tickers []string,
	weights []float64,
	terminalReturns []float64,
	assetGrowth [][]float64,
) []domain.PositionContribution {
	n := len(tickers)
	out := make([]domain.PositionContribution, n)
	for i := range out {
		out[i] = domain.PositionContribution{
			Ticker:    tickers[i],
			Weight:    weights[i],
			Scenarios: make(map[string]float64, 6),
		}
	}
	if len(terminalReturns) == 0 {
		return out
	}

	sorted := make([]float64, len(terminalReturns))
	copy(sorted, terminalReturns)
	sort.Float64s(sorted)

	scenarios := []struct {
		name       string
		percentile float64
	}{
		{domain.ScenarioP5, 5},
		{domain.ScenarioP25, 25},
		{domain.ScenarioP50, 50},
		{domain.ScenarioP75, 75},
		{domain.ScenarioP95, 95},
	}

	for _, sc := range scenarios {
		target := formulas.PercentileSorted(sorted, sc.percentile)
		path := nearestPath(terminalReturns, target)
		for i := 0; i < n; i++ {
			out[i].Scenarios[sc.name] = weights[i] * (assetGrowth[path][i] - 1.0)
		}
	}

	// Mean scenario: average weighted contribution over the full ensemble.
	for i := 0; i < n; i++ {
		var sum float64
		for p := range assetGrowth {
			sum += assetGrowth[p][i] - 1.0
		}
		out[i].Scenarios[domain.ScenarioMean] = weights[i] * sum / float64(len(assetGrowth))
	}

	return out
}

// nearestPath returns the index of the path whose terminal return is closest
// to target.
func nearestPath(terminalReturns []float64, target float64) int {
	best := 0
	bestDist := math.Inf(1)
	for p, r := range terminalReturns {
		d := math.Abs(r - target)
		if d < bestDist {
			bestDist = d
			best = p
		}
	}
	return best
}
