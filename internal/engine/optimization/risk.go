// Package optimization ranks pairwise trades and risk-parity allocations
// using closed-form risk attribution, cross-checked by Monte Carlo.
package optimization

import (
	"fmt"
	"math"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/pkg/formulas"
)

// iSharpeDelta is the incremental reallocation size used for the per-position
// Sharpe sensitivity (1% of NLV into the position, funded pro-rata).
const iSharpeDelta = 0.01

// Analytics precomputes everything the closed-form attribution needs:
// Sigma*w, portfolio return/variance/Sharpe. With Sigma*w in hand every swap
// evaluation is O(1), which is what makes the O(N^2) swap matrix cheap.
type Analytics struct {
	Tickers []string
	Weights []float64
	Mus     []float64
	Cov     [][]float64

	SigmaW   []float64 // (Sigma * w)_i
	PortRet  float64
	PortVar  float64
	PortVol  float64
	Sharpe   float64
	RiskFree float64
}

// NewAnalytics builds the closed-form attribution state for a portfolio.
func NewAnalytics(tickers []string, weights, mus []float64, cov [][]float64, riskFree float64) (*Analytics, error) {
	n := len(tickers)
	if n == 0 {
		return nil, fmt.Errorf("no positions provided")
	}
	if len(weights) != n || len(mus) != n || len(cov) != n {
		return nil, fmt.Errorf("dimension mismatch: %d tickers, %d weights, %d mus, %d cov rows",
			n, len(weights), len(mus), len(cov))
	}

	a := &Analytics{
		Tickers:  tickers,
		Weights:  weights,
		Mus:      mus,
		Cov:      cov,
		SigmaW:   make([]float64, n),
		RiskFree: riskFree,
	}

	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += cov[i][j] * weights[j]
		}
		a.SigmaW[i] = sum
		a.PortRet += weights[i] * mus[i]
		a.PortVar += weights[i] * sum
	}
	a.PortVol = math.Sqrt(math.Max(a.PortVar, 1e-12))
	a.Sharpe = formulas.Sharpe(a.PortRet, a.PortVol, riskFree)

	return a, nil
}

// MCTR returns position i's marginal contribution to total risk,
// (Sigma*w)_i / sigma_p.
func (a *Analytics) MCTR(i int) float64 {
	return a.SigmaW[i] / a.PortVol
}

// RiskContributions returns each position's fractional contribution to
// portfolio volatility, w_i * MCTR_i / sigma_p. The contributions sum to 1
// for any valid covariance and weight vector.
func (a *Analytics) RiskContributions() []float64 {
	out := make([]float64, len(a.Weights))
	for i := range out {
		out[i] = a.Weights[i] * a.SigmaW[i] / a.PortVar
	}
	return out
}

// ISharpe returns the change in portfolio Sharpe from moving delta of NLV
// into position i, funded pro-rata from the rest of the book. Computed
// exactly from the precomputed quadratic forms rather than a first-order
// expansion, which stays accurate for the small deltas used here.
func (a *Analytics) ISharpe(i int, delta float64) float64 {
	newRet := (a.PortRet + delta*a.Mus[i]) / (1 + delta)
	newVar := (a.PortVar + 2*delta*a.SigmaW[i] + delta*delta*a.Cov[i][i]) / ((1 + delta) * (1 + delta))
	newVol := math.Sqrt(math.Max(newVar, 1e-12))
	return formulas.Sharpe(newRet, newVol, a.RiskFree) - a.Sharpe
}

// SwapDeltas returns the analytical (deltaReturn, deltaVol, deltaSharpe) of
// selling size of ticker i to buy ticker j. O(1) given Sigma*w.
func (a *Analytics) SwapDeltas(i, j int, size float64) (float64, float64, float64) {
	deltaRet := size * (a.Mus[j] - a.Mus[i])

	newVar := a.PortVar +
		2*size*(a.SigmaW[j]-a.SigmaW[i]) +
		size*size*(a.Cov[i][i]+a.Cov[j][j]-2*a.Cov[i][j])
	newVol := math.Sqrt(math.Max(newVar, 1e-12))

	deltaVol := newVol - a.PortVol
	deltaSharpe := formulas.Sharpe(a.PortRet+deltaRet, newVol, a.RiskFree) - a.Sharpe

	return deltaRet, deltaVol, deltaSharpe
}

// MetricsFor evaluates portfolio return, volatility and Sharpe for an
// arbitrary weight vector against the same mus/covariance. Used for the
// risk-parity comparison.
func (a *Analytics) MetricsFor(weights []float64) (float64, float64, float64) {
	n := len(weights)
	var ret, variance float64
	for i := 0; i < n; i++ {
		ret += weights[i] * a.Mus[i]
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * a.Cov[i][j]
		}
	}
	vol := math.Sqrt(math.Max(variance, 1e-12))
	return ret, vol, formulas.Sharpe(ret, vol, a.RiskFree)
}

// PositionRisks assembles the per-position attribution rows.
func (a *Analytics) PositionRisks(sigmas []float64) []domain.PositionRisk {
	contributions := a.RiskContributions()
	out := make([]domain.PositionRisk, len(a.Tickers))
	for i := range out {
		out[i] = domain.PositionRisk{
			Ticker:           a.Tickers[i],
			Weight:           a.Weights[i],
			Mu:               a.Mus[i],
			Sigma:            sigmas[i],
			MCTR:             a.MCTR(i),
			RiskContribution: contributions[i],
			ISharpe:          a.ISharpe(i, iSharpeDelta),
		}
	}
	return out
}
