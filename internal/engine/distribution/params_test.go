package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
)

func TestPercentilesFromParams_Symmetric(t *testing.T) {
	m := domain.Moments{Mu: 0.08, Sigma: 0.20, Skew: 0, TailDf: 30}
	p := PercentilesFromParams(m)

	assert.InDelta(t, 0.08, p.P50, 1e-12, "median equals mu with no skew")
	assert.InDelta(t, p.P50-p.P5, p.P95-p.P50, 1e-12, "tails symmetric with no skew")
	assert.InDelta(t, 0.08-0.20*1.6449, p.P5, 1e-3)
	assert.InDelta(t, 0.08+0.20*0.6745, p.P75, 1e-3)
}

func TestPercentilesFromParams_Ordering(t *testing.T) {
	tests := []struct {
		name string
		m    domain.Moments
	}{
		{"gaussian", domain.Moments{Mu: 0.05, Sigma: 0.15, Skew: 0, TailDf: 30}},
		{"fat tails", domain.Moments{Mu: 0.05, Sigma: 0.15, Skew: 0, TailDf: 3}},
		{"positive skew", domain.Moments{Mu: 0.05, Sigma: 0.15, Skew: 0.8, TailDf: 10}},
		{"negative skew", domain.Moments{Mu: -0.02, Sigma: 0.30, Skew: -0.8, TailDf: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PercentilesFromParams(tt.m)
			assert.Less(t, p.P5, p.P25)
			assert.Less(t, p.P25, p.P50)
			assert.Less(t, p.P50, p.P75)
			assert.Less(t, p.P75, p.P95)
		})
	}
}

func TestPercentilesFromParams_FatTailsWidenOuterQuantiles(t *testing.T) {
	gaussian := PercentilesFromParams(domain.Moments{Mu: 0, Sigma: 0.2, TailDf: 30})
	fat := PercentilesFromParams(domain.Moments{Mu: 0, Sigma: 0.2, TailDf: 3})

	assert.Less(t, fat.P5, gaussian.P5, "fat tails push P5 lower")
	assert.Greater(t, fat.P95, gaussian.P95, "fat tails push P95 higher")
	assert.InDelta(t, gaussian.P50, fat.P50, 1e-12, "median unaffected by tails")

	// At df=3 the outer spread grows by exactly tailSlope.
	assert.InDelta(t, 1.5, (fat.P95-fat.P5)/(gaussian.P95-gaussian.P5), 1e-9)
}

func TestParamsFromPercentiles_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    domain.Moments
	}{
		{"gaussian", domain.Moments{Mu: 0.08, Sigma: 0.20, Skew: 0, TailDf: 30}},
		{"fat tails", domain.Moments{Mu: 0.05, Sigma: 0.15, Skew: 0, TailDf: 6}},
		{"skewed", domain.Moments{Mu: 0.03, Sigma: 0.25, Skew: 0.5, TailDf: 12}},
		{"skewed fat", domain.Moments{Mu: -0.01, Sigma: 0.18, Skew: -0.6, TailDf: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := PercentilesFromParams(tt.m)
			recovered := ParamsFromPercentiles(orig)
			regen := PercentilesFromParams(recovered)

			// Percentile round trip must hold within 5% relative error.
			for _, pair := range [][2]float64{
				{orig.P5, regen.P5},
				{orig.P25, regen.P25},
				{orig.P50, regen.P50},
				{orig.P75, regen.P75},
				{orig.P95, regen.P95},
			} {
				tol := 0.05 * absOrFloor(pair[0])
				assert.InDelta(t, pair[0], pair[1], tol)
			}
		})
	}
}

func absOrFloor(v float64) float64 {
	if v < 0 {
		v = -v
	}
	if v < 0.01 {
		return 0.01
	}
	return v
}

func TestParamsFromPercentiles_Clamps(t *testing.T) {
	// A degenerate, nearly flat belief must still produce valid parameters.
	p := domain.Percentiles{P5: 0.009, P25: 0.0095, P50: 0.01, P75: 0.0105, P95: 0.011}
	m := ParamsFromPercentiles(p)

	assert.GreaterOrEqual(t, m.Sigma, MinSigma)
	assert.GreaterOrEqual(t, m.TailDf, MinTailDf)
	assert.LessOrEqual(t, m.TailDf, MaxTailDf)
	assert.GreaterOrEqual(t, m.Skew, -1.0)
	assert.LessOrEqual(t, m.Skew, 1.0)
}

func TestClamp(t *testing.T) {
	m := Clamp(domain.Moments{Mu: 0.1, Sigma: -5, Skew: 3, TailDf: 1})
	assert.Equal(t, MinSigma, m.Sigma)
	assert.Equal(t, 1.0, m.Skew)
	assert.Equal(t, MinTailDf, m.TailDf)

	// Zero tail_df means Gaussian tails.
	m = Clamp(domain.Moments{Sigma: 0.2})
	assert.Equal(t, MaxTailDf, m.TailDf)
}

func TestMomentsFor(t *testing.T) {
	moments := &domain.Moments{Mu: 0.07, Sigma: 0.22, Skew: 0.1, TailDf: 8}
	pos := domain.Position{Ticker: "AAPL", Quantity: 10, Price: 150, Moments: moments}
	got := MomentsFor(pos)
	assert.Equal(t, *moments, got)

	pct := PercentilesFromParams(*moments)
	pos = domain.Position{Ticker: "AAPL", Quantity: 10, Price: 150, Percentiles: &pct}
	got = MomentsFor(pos)
	require.InDelta(t, moments.Mu, got.Mu, 0.005)
	require.InDelta(t, moments.Sigma, got.Sigma, 0.01)
}
