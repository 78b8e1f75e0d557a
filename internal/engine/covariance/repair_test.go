package covariance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
)

func TestRepairCorrelationValidMatrixUntouched(t *testing.T) {
	corr := domain.CorrelationMatrix{
		{1.0, 0.3},
		{0.3, 1.0},
	}

	out, repaired, err := RepairCorrelation(corr)
	require.NoError(t, err)
	assert.False(t, repaired)
	assert.InDelta(t, 0.3, out[0][1], 1e-12)
	assert.InDelta(t, 0.3, out[1][0], 1e-12)
	assert.Equal(t, 1.0, out[0][0])
}

func TestRepairCorrelationClampsOutOfRange(t *testing.T) {
	corr := domain.CorrelationMatrix{
		{1.0, 1.5},
		{1.5, 1.0},
	}

	out, repaired, err := RepairCorrelation(corr)
	require.NoError(t, err)
	assert.True(t, repaired)

	// Diagonal stays exactly 1, off-diagonals inside [-1,1].
	assert.Equal(t, 1.0, out[0][0])
	assert.Equal(t, 1.0, out[1][1])
	assert.LessOrEqual(t, out[0][1], 1.0)
	assert.GreaterOrEqual(t, out[0][1], -1.0)
	assert.InDelta(t, out[0][1], out[1][0], 1e-12)

	minEig, err := MinEigenvalue(out)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, minEig, 0.0)
}

func TestRepairCorrelationFixesNonPSD(t *testing.T) {
	// Three assets with pairwise correlations that cannot coexist:
	// A-B and A-C strongly positive, B-C strongly negative.
	corr := domain.CorrelationMatrix{
		{1.0, 0.9, 0.9},
		{0.9, 1.0, -0.9},
		{0.9, -0.9, 1.0},
	}

	before, err := MinEigenvalue(corr)
	require.NoError(t, err)
	require.Negative(t, before)

	out, repaired, err := RepairCorrelation(corr)
	require.NoError(t, err)
	assert.True(t, repaired)

	after, err := MinEigenvalue(out)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after, 0.0)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, out[i][i])
		for j := 0; j < 3; j++ {
			assert.InDelta(t, out[i][j], out[j][i], 1e-12)
			assert.LessOrEqual(t, out[i][j], 1.0)
			assert.GreaterOrEqual(t, out[i][j], -1.0)
		}
	}
}

func TestRepairCorrelationSymmetrizesSmallAsymmetry(t *testing.T) {
	corr := domain.CorrelationMatrix{
		{1.0, 0.30000001},
		{0.29999999, 1.0},
	}

	out, repaired, err := RepairCorrelation(corr)
	require.NoError(t, err)
	assert.True(t, repaired)
	assert.InDelta(t, 0.3, out[0][1], 1e-7)
	assert.Equal(t, out[0][1], out[1][0])
}

func TestRepairCorrelationEmpty(t *testing.T) {
	_, _, err := RepairCorrelation(nil)
	assert.Error(t, err)
}
