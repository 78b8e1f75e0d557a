// Package covariance builds the shrinkage covariance model that feeds the
// correlated sampler and the analytical risk attribution.
package covariance

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
)

// Shrinkage intensity bounds. The simplified Ledoit-Wolf estimator below is
// kept inside these so a pathological input can never collapse the matrix
// entirely onto the structured target.
const (
	defaultShrinkage = 0.2
	maxShrinkage     = 0.5
)

// Model is the covariance estimate for one simulation run. Owned transiently
// per run and never persisted.
type Model struct {
	// Cov is the shrunk covariance matrix Sigma.
	Cov [][]float64
	// Corr is the correlation structure implied by Cov, unit diagonal.
	// This is what the sampler factorizes.
	Corr domain.CorrelationMatrix
	// Vols are the per-asset volatilities sqrt(Cov[i][i]).
	Vols []float64
	// Shrinkage is the intensity applied toward the constant-correlation target.
	Shrinkage float64
	// Repaired reports whether the input correlation matrix needed PSD repair.
	Repaired bool
}

// Estimator builds shrinkage covariance matrices from per-asset volatilities
// and a correlation matrix.
type Estimator struct {
	log zerolog.Logger
}

// NewEstimator creates a new covariance estimator.
func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{
		log: log.With().Str("component", "covariance").Logger(),
	}
}

// Estimate builds Sigma = D*R*D from per-asset sigmas and a correlation
// matrix, then applies Ledoit-Wolf shrinkage toward the constant-correlation
// target. The correlation matrix is PSD-repaired first; repair is logged but
// non-fatal. The result is guaranteed positive semi-definite.
//
// Reference: Ledoit, O., & Wolf, M. (2004). "Honey, I Shrunk the Sample
// Covariance Matrix".
func (e *Estimator) Estimate(sigmas []float64, corr domain.CorrelationMatrix) (*Model, error) {
	n := len(sigmas)
	if n == 0 {
		return nil, fmt.Errorf("no assets provided")
	}
	if corr.Dim() != n {
		return nil, fmt.Errorf("correlation matrix dimension %d does not match %d assets", corr.Dim(), n)
	}
	for i, s := range sigmas {
		if s <= 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("asset %d has invalid sigma %v", i, s)
		}
	}

	repairedCorr, wasRepaired, err := RepairCorrelation(corr)
	if err != nil {
		return nil, fmt.Errorf("failed to repair correlation matrix: %w", err)
	}
	if wasRepaired {
		e.log.Warn().Int("num_assets", n).Msg("Correlation matrix repaired to nearest PSD")
	}

	// Sample covariance: Sigma_ij = sigma_i * sigma_j * rho_ij.
	sampleCov := make([][]float64, n)
	for i := range sampleCov {
		sampleCov[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			sampleCov[i][j] = sigmas[i] * sigmas[j] * repairedCorr[i][j]
		}
	}

	shrunk, intensity := applyShrinkage(sampleCov, repairedCorr, sigmas)

	e.log.Debug().
		Int("num_assets", n).
		Float64("shrinkage", intensity).
		Msg("Built shrinkage covariance matrix")

	vols := make([]float64, n)
	for i := 0; i < n; i++ {
		vols[i] = math.Sqrt(math.Max(shrunk[i][i], 1e-12))
	}

	// Correlation implied by the shrunk covariance. Both shrinkage
	// components are PSD, so this stays PSD up to rounding; repair once
	// more to absorb rounding before Cholesky sees it.
	implied := make(domain.CorrelationMatrix, n)
	for i := range implied {
		implied[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			implied[i][j] = shrunk[i][j] / (vols[i] * vols[j])
		}
		implied[i][i] = 1.0
	}
	finalCorr, _, err := RepairCorrelation(implied)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize shrunk correlation: %w", err)
	}

	return &Model{
		Cov:       shrunk,
		Corr:      finalCorr,
		Vols:      vols,
		Shrinkage: intensity,
		Repaired:  wasRepaired,
	}, nil
}

// applyShrinkage blends the sample covariance with the constant-correlation
// target: Sigma_shrunk = (1-a)*Sigma_sample + a*Sigma_target. The intensity
// uses a simplified dispersion-based estimate of the optimal Ledoit-Wolf
// alpha, clamped to [0, maxShrinkage].
func applyShrinkage(sampleCov [][]float64, corr domain.CorrelationMatrix, sigmas []float64) ([][]float64, float64) {
	n := len(sampleCov)

	// Average pairwise correlation defines the target's single parameter.
	avgCorr := 0.0
	if n > 1 {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					avgCorr += corr[i][j]
				}
			}
		}
		avgCorr /= float64(n * (n - 1))
	}

	target := make([][]float64, n)
	for i := range target {
		target[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				target[i][j] = sigmas[i] * sigmas[i]
			} else {
				target[i][j] = avgCorr * sigmas[i] * sigmas[j]
			}
		}
	}

	intensity := defaultShrinkage
	if n > 2 {
		// Dispersion of the sample around the target versus overall
		// dispersion of the sample entries.
		var sumSqDiff, sumSq, sum float64
		count := float64(n * n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := sampleCov[i][j] - target[i][j]
				sumSqDiff += diff * diff
				sum += sampleCov[i][j]
				sumSq += sampleCov[i][j] * sampleCov[i][j]
			}
		}
		meanSqDiff := sumSqDiff / count
		mean := sum / count
		varSample := sumSq/count - mean*mean

		if varSample > 0 && meanSqDiff > 0 {
			intensity = math.Min(maxShrinkage, math.Max(0.0, varSample/(varSample+meanSqDiff)))
		}
	}

	shrunk := make([][]float64, n)
	for i := range shrunk {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			shrunk[i][j] = (1-intensity)*sampleCov[i][j] + intensity*target[i][j]
		}
	}

	return shrunk, intensity
}
