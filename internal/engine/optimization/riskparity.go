package optimization

import (
	"math"
)

// Risk parity solver budget. Convergence failure is degraded, not fatal:
// the best-effort weights are returned with Converged=false.
const (
	riskParityMaxIter   = 500
	riskParityTolerance = 1e-6
	riskParityDamping   = 0.5
)

// SolveRiskParity iterates toward the allocation where every position
// contributes exactly 1/N of portfolio risk, using damped multiplicative
// updates on the weights: w_i <- w_i * (target / RC_i)^damping, renormalized
// each round.
//
// Returns the weights, the iterations used, and whether the contributions
// converged within tolerance before the iteration budget ran out.
func SolveRiskParity(cov [][]float64) ([]float64, int, bool) {
	n := len(cov)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	if n == 1 {
		return weights, 0, true
	}

	target := 1.0 / float64(n)
	sigmaW := make([]float64, n)

	for iter := 1; iter <= riskParityMaxIter; iter++ {
		var portVar float64
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += cov[i][j] * weights[j]
			}
			sigmaW[i] = sum
			portVar += weights[i] * sum
		}
		if portVar <= 0 {
			return weights, iter, false
		}

		maxDev := 0.0
		for i := 0; i < n; i++ {
			rc := weights[i] * sigmaW[i] / portVar
			if dev := math.Abs(rc - target); dev > maxDev {
				maxDev = dev
			}
		}
		if maxDev < riskParityTolerance {
			return weights, iter, true
		}

		var total float64
		for i := 0; i < n; i++ {
			rc := weights[i] * sigmaW[i] / portVar
			if rc < 1e-12 {
				rc = 1e-12
			}
			weights[i] *= math.Pow(target/rc, riskParityDamping)
			total += weights[i]
		}
		for i := range weights {
			weights[i] /= total
		}
	}

	return weights, riskParityMaxIter, false
}
