package sampler

import (
	"golang.org/x/exp/rand"
)

// haltonBases are the first prime bases used for the low-discrepancy
// sequence, one per dimension. Extended on demand for larger portfolios.
var haltonBases = []int{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
	53, 59, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113,
}

// nextPrimeAfter returns the smallest prime greater than n. Only used when a
// portfolio needs more dimensions than the precomputed base table.
func nextPrimeAfter(n int) int {
	for candidate := n + 1; ; candidate++ {
		isPrime := candidate >= 2
		for d := 2; d*d <= candidate; d++ {
			if candidate%d == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			return candidate
		}
	}
}

// lowDiscrepancySeq generates scrambled Halton points in (0,1)^dim.
//
// Each dimension uses the radical-inverse function in a distinct prime base
// with a seeded random digit permutation (sigma(0)=0 so the expansion stays
// finite). Scrambling breaks the correlation artifacts that plain Halton
// exhibits between high-indexed dimensions while keeping the sequence fully
// deterministic for a fixed seed, which is what gives the engine reproducible
// QMC runs with the ~O(1/N) empirical convergence the dashboard relies on.
type lowDiscrepancySeq struct {
	bases []int
	perms [][]int // perms[d][digit] is the scrambled digit for dimension d
}

// newLowDiscrepancySeq creates a scrambled sequence generator for the given
// dimension count and scramble seed.
func newLowDiscrepancySeq(dim int, seed uint64) *lowDiscrepancySeq {
	bases := make([]int, dim)
	for d := 0; d < dim; d++ {
		if d < len(haltonBases) {
			bases[d] = haltonBases[d]
		} else {
			bases[d] = nextPrimeAfter(bases[d-1])
		}
	}

	rng := rand.New(rand.NewSource(seed))
	perms := make([][]int, dim)
	for d, b := range bases {
		// Random permutation of digits 1..b-1, identity on 0.
		perm := make([]int, b)
		for i := range perm {
			perm[i] = i
		}
		for i := b - 1; i > 1; i-- {
			j := 1 + rng.Intn(i)
			perm[i], perm[j] = perm[j], perm[i]
		}
		perms[d] = perm
	}

	return &lowDiscrepancySeq{bases: bases, perms: perms}
}

// Dim returns the number of dimensions per point.
func (s *lowDiscrepancySeq) Dim() int {
	return len(s.bases)
}

// Point fills out with the scrambled point at the given index. Index 0 (the
// all-zeros point) is skipped internally. Coordinates are clamped away from
// 0 and 1 so downstream quantile transforms stay finite.
func (s *lowDiscrepancySeq) Point(index int, out []float64) {
	n := index + 1
	for d := range s.bases {
		out[d] = s.radicalInverse(d, n)
		if out[d] < 1e-12 {
			out[d] = 1e-12
		} else if out[d] > 1-1e-12 {
			out[d] = 1 - 1e-12
		}
	}
}

func (s *lowDiscrepancySeq) radicalInverse(dim, n int) float64 {
	base := s.bases[dim]
	perm := s.perms[dim]

	invBase := 1.0 / float64(base)
	factor := invBase
	value := 0.0
	for n > 0 {
		digit := n % base
		value += float64(perm[digit]) * factor
		factor *= invBase
		n /= base
	}
	return value
}
