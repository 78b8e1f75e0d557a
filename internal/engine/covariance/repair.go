package covariance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
)

// eigenFloor is the value negative eigenvalues are clipped to. Small enough
// not to distort the matrix, large enough that Cholesky stays stable.
const eigenFloor = 1e-8

// RepairCorrelation returns the nearest valid correlation matrix: entries
// clamped to [-1,1], exact symmetry, negative eigenvalues clipped to a small
// positive floor, and the diagonal renormalized to exactly 1.0.
//
// The boolean reports whether any repair was applied. The sampler depends on
// the output being positive semi-definite so that Cholesky succeeds.
func RepairCorrelation(corr domain.CorrelationMatrix) (domain.CorrelationMatrix, bool, error) {
	n := corr.Dim()
	if n == 0 {
		return nil, false, fmt.Errorf("empty correlation matrix")
	}

	repaired := false

	// Clamp out-of-range entries and force exact symmetry.
	work := make([][]float64, n)
	for i := range work {
		work[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		work[i][i] = 1.0
		if corr[i][i] != 1.0 {
			repaired = true
		}
		for j := i + 1; j < n; j++ {
			v := (corr[i][j] + corr[j][i]) / 2
			clamped := math.Min(1, math.Max(-1, v))
			if clamped != corr[i][j] || clamped != corr[j][i] {
				repaired = true
			}
			work[i][j] = clamped
			work[j][i] = clamped
		}
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, work[i][j])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, false, fmt.Errorf("eigendecomposition failed")
	}

	values := eig.Values(nil)
	clipped := false
	for i, v := range values {
		if v < eigenFloor {
			values[i] = eigenFloor
			clipped = true
		}
	}

	if !clipped {
		out := make(domain.CorrelationMatrix, n)
		for i := range out {
			out[i] = work[i]
		}
		return out, repaired, nil
	}

	// Rebuild V * diag(clipped) * V' and renormalize back to unit diagonal.
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	rebuilt := make([][]float64, n)
	for i := range rebuilt {
		rebuilt[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += vecs.At(i, k) * values[k] * vecs.At(j, k)
			}
			rebuilt[i][j] = sum
			rebuilt[j][i] = sum
		}
	}

	out := make(domain.CorrelationMatrix, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		di := math.Sqrt(math.Max(rebuilt[i][i], eigenFloor))
		for j := 0; j < n; j++ {
			dj := math.Sqrt(math.Max(rebuilt[j][j], eigenFloor))
			out[i][j] = rebuilt[i][j] / (di * dj)
		}
		out[i][i] = 1.0
	}

	// Renormalization can nudge off-diagonals past 1 by rounding.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				out[i][j] = math.Min(1, math.Max(-1, out[i][j]))
			}
		}
	}

	return out, true, nil
}

// MinEigenvalue returns the smallest eigenvalue of a symmetric matrix,
// used by tests and diagnostics to confirm PSD repairs.
func MinEigenvalue(m [][]float64) (float64, error) {
	n := len(m)
	if n == 0 {
		return 0, fmt.Errorf("empty matrix")
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (m[i][j]+m[j][i])/2)
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return 0, fmt.Errorf("eigendecomposition failed")
	}
	values := eig.Values(nil)
	min := values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
	}
	return min, nil
}
