// Package simulation turns sampled return paths into the distributions,
// probabilities and contribution tables the dashboard displays.
package simulation

import (
	"math"
)

// Aggregator reduces per-asset step returns into one scalar per path for
// terminal return, terminal dollars and maximum drawdown, while retaining the
// terminal per-asset growth needed for scenario contributions.
//
// The portfolio path is buy-and-hold: weights apply to cumulative asset
// growth, so the terminal portfolio return is exactly the weighted sum of
// terminal asset returns (which keeps contribution conservation exact).
//
// Different paths may be observed concurrently (one goroutine per path), but
// steps of a single path must arrive in order. No intra-path state beyond
// the running peak is retained.
type Aggregator struct {
	weights    []float64
	startValue float64
	numSteps   int

	assetGrowth [][]float64 // [path][asset] cumulative growth factor
	terminal    []float64   // terminal portfolio return per path
	dollars     []float64   // terminal portfolio dollar value per path
	maxDrawdown []float64   // max peak-to-trough decline per path
	peak        []float64
}

// NewAggregator allocates path storage for one run.
func NewAggregator(weights []float64, startValue float64, numPaths, numSteps int) *Aggregator {
	a := &Aggregator{
		weights:     weights,
		startValue:  startValue,
		numSteps:    numSteps,
		assetGrowth: make([][]float64, numPaths),
		terminal:    make([]float64, numPaths),
		dollars:     make([]float64, numPaths),
		maxDrawdown: make([]float64, numPaths),
		peak:        make([]float64, numPaths),
	}
	return a
}

// Observe consumes one simulated step. Implements the sampler's Visit
// contract.
func (a *Aggregator) Observe(path, step int, assetReturns []float64) {
	n := len(a.weights)

	growth := a.assetGrowth[path]
	if step == 0 {
		growth = make([]float64, n)
		for i := range growth {
			growth[i] = 1.0
		}
		a.assetGrowth[path] = growth
		a.peak[path] = 1.0
	}

	var value float64
	for i := 0; i < n; i++ {
		growth[i] *= 1.0 + assetReturns[i]
		value += a.weights[i] * growth[i]
	}

	if value > a.peak[path] {
		a.peak[path] = value
	}
	if a.peak[path] > 0 {
		dd := (a.peak[path] - value) / a.peak[path]
		if dd > a.maxDrawdown[path] {
			a.maxDrawdown[path] = dd
		}
	}

	if step == a.numSteps-1 {
		ret := value - 1.0
		if math.IsNaN(ret) || math.IsInf(ret, 0) {
			ret = 0
			value = 1
		}
		a.terminal[path] = ret
		a.dollars[path] = a.startValue * value
	}
}

// TerminalReturns returns the terminal portfolio return per path.
func (a *Aggregator) TerminalReturns() []float64 { return a.terminal }

// TerminalDollars returns the terminal portfolio dollar value per path.
func (a *Aggregator) TerminalDollars() []float64 { return a.dollars }

// MaxDrawdowns returns the maximum drawdown per path.
func (a *Aggregator) MaxDrawdowns() []float64 { return a.maxDrawdown }

// AssetGrowth returns the terminal cumulative growth factor per path and
// asset. Entry [p][i] minus 1 is asset i's cumulative return on path p.
func (a *Aggregator) AssetGrowth() [][]float64 { return a.assetGrowth }
