package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPrimeAfter(t *testing.T) {
	assert.Equal(t, 2, nextPrimeAfter(1))
	assert.Equal(t, 127, nextPrimeAfter(113))
	assert.Equal(t, 101, nextPrimeAfter(100))
}

func TestLowDiscrepancySeqDeterministic(t *testing.T) {
	a := newLowDiscrepancySeq(3, 42)
	b := newLowDiscrepancySeq(3, 42)

	pa := make([]float64, 3)
	pb := make([]float64, 3)
	for i := 0; i < 100; i++ {
		a.Point(i, pa)
		b.Point(i, pb)
		assert.Equal(t, pa, pb, "point %d differs between identically seeded sequences", i)
	}
}

func TestLowDiscrepancySeqSeedChangesScramble(t *testing.T) {
	a := newLowDiscrepancySeq(3, 42)
	b := newLowDiscrepancySeq(3, 43)

	pa := make([]float64, 3)
	pb := make([]float64, 3)
	differs := false
	for i := 0; i < 100 && !differs; i++ {
		a.Point(i, pa)
		b.Point(i, pb)
		for d := range pa {
			if pa[d] != pb[d] {
				differs = true
			}
		}
	}
	assert.True(t, differs, "different seeds should produce different scrambles")
}

func TestLowDiscrepancySeqOpenInterval(t *testing.T) {
	seq := newLowDiscrepancySeq(5, 7)
	p := make([]float64, 5)

	for i := 0; i < 2000; i++ {
		seq.Point(i, p)
		for d, v := range p {
			require.Greater(t, v, 0.0, "point %d dim %d", i, d)
			require.Less(t, v, 1.0, "point %d dim %d", i, d)
		}
	}
}

func TestLowDiscrepancySeqEquidistribution(t *testing.T) {
	seq := newLowDiscrepancySeq(2, 11)
	p := make([]float64, 2)

	const numPoints = 4096
	sums := [2]float64{}
	quadrants := [4]int{}
	for i := 0; i < numPoints; i++ {
		seq.Point(i, p)
		sums[0] += p[0]
		sums[1] += p[1]
		q := 0
		if p[0] >= 0.5 {
			q |= 1
		}
		if p[1] >= 0.5 {
			q |= 2
		}
		quadrants[q]++
	}

	// A low-discrepancy stream covers the square far more evenly than random
	// draws would at this sample size.
	assert.InDelta(t, 0.5, sums[0]/numPoints, 0.01)
	assert.InDelta(t, 0.5, sums[1]/numPoints, 0.01)
	for q, count := range quadrants {
		assert.InDelta(t, numPoints/4, count, float64(numPoints)*0.02, "quadrant %d", q)
	}
}

func TestLowDiscrepancySeqHighDimensions(t *testing.T) {
	// Past the precomputed base table the generator extends with fresh primes.
	seq := newLowDiscrepancySeq(35, 1)
	require.Equal(t, 35, seq.Dim())
	assert.Equal(t, 127, seq.bases[30])

	p := make([]float64, 35)
	seq.Point(0, p)
	for _, v := range p {
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}
