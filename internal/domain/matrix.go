package domain

import (
	"fmt"
	"math"
)

// symmetryTolerance is the maximum absolute difference allowed between
// mirrored entries before a correlation matrix is rejected as non-symmetric.
const symmetryTolerance = 1e-8

// CorrelationMatrix is a square matrix of pairwise correlations, in the same
// order as the position list it accompanies. Entries outside [-1,1] and
// non-PSD structure are repairable downstream (eigenvalue clipping);
// non-square or non-symmetric matrices are hard input errors.
type CorrelationMatrix [][]float64

// NewIdentityCorrelation returns an n-by-n identity correlation matrix.
func NewIdentityCorrelation(n int) CorrelationMatrix {
	m := make(CorrelationMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1.0
	}
	return m
}

// Dim returns the matrix dimension.
func (m CorrelationMatrix) Dim() int {
	return len(m)
}

// Validate rejects structurally malformed matrices: wrong dimension for the
// portfolio, non-square shape, NaN entries, or asymmetry. Out-of-range
// entries are deliberately NOT rejected here - they are clamped and
// PSD-repaired by the covariance estimator.
func (m CorrelationMatrix) Validate(numAssets int) error {
	if len(m) != numAssets {
		return fmt.Errorf("correlation matrix has %d rows, expected %d", len(m), numAssets)
	}
	for i, row := range m {
		if len(row) != numAssets {
			return fmt.Errorf("correlation matrix row %d has %d entries, expected %d", i, len(row), numAssets)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("correlation matrix entry (%d,%d) is not finite", i, j)
			}
		}
	}
	for i := 0; i < numAssets; i++ {
		for j := i + 1; j < numAssets; j++ {
			if math.Abs(m[i][j]-m[j][i]) > symmetryTolerance {
				return fmt.Errorf("correlation matrix is not symmetric at (%d,%d): %v vs %v", i, j, m[i][j], m[j][i])
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the matrix.
func (m CorrelationMatrix) Clone() CorrelationMatrix {
	out := make(CorrelationMatrix, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
