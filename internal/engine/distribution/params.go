// Package distribution converts between the two forms of a return belief:
// five percentile estimates (what the user edits) and parametric moments
// (what the sampler consumes). The inverse direction is a lossy estimate;
// callers must tolerate round-trip drift within a few percent.
package distribution

import (
	"math"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
)

// Standard normal quantiles for the fixed percentile levels.
const (
	zOuter = 1.6448536269514722 // |z| at P5 / P95
	zInner = 0.6744897501960817 // |z| at P25 / P75
)

// Calibration constants. These are empirical approximations carried over
// from the original risk model, not derived from a named estimator; tune
// with care and keep forward and inverse in sync.
const (
	// tailSlope controls how much the outer quantiles widen as tail_df
	// falls from 30 to 3: at df=3 the P5/P95 spread grows by 50%.
	tailSlope = 0.5
	// skewScale controls how strongly the skew parameter bends the
	// quantiles away from symmetry.
	skewScale = 0.3
)

// Parameter clamps. Everything is clamped rather than rejected; the module
// has no failure modes.
const (
	MinSigma  = 0.01
	MinTailDf = 3.0
	MaxTailDf = 30.0
)

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// tailFactor widens a quantile when the tails are fat. The widening scales
// linearly with both the df deficit below 30 and the quantile depth |z|, so
// the median is never shifted by tail thickness.
func tailFactor(tailDf, z float64) float64 {
	if tailDf >= MaxTailDf {
		return 1.0
	}
	return 1.0 + tailSlope*((MaxTailDf-tailDf)/(MaxTailDf-MinTailDf))*(math.Abs(z)/zOuter)
}

// quantile maps one standard-normal quantile z to a return under the given
// moments: scale by sigma and tail factor, then add the skew bend.
func quantile(m domain.Moments, z float64) float64 {
	return m.Mu + m.Sigma*z*tailFactor(m.TailDf, z) + m.Sigma*(skewScale/2)*m.Skew*(z*z-1)
}

// Clamp returns a copy of the moments with every parameter forced into its
// valid range. A zero tail_df means "no tail thickening" and maps to 30.
func Clamp(m domain.Moments) domain.Moments {
	out := m
	if out.Sigma < MinSigma {
		out.Sigma = MinSigma
	}
	out.Skew = clamp(out.Skew, -1, 1)
	if out.TailDf == 0 {
		out.TailDf = MaxTailDf
	}
	out.TailDf = clamp(out.TailDf, MinTailDf, MaxTailDf)
	return out
}

// PercentilesFromParams produces the five named percentiles implied by a set
// of moments. Parameters are clamped first, so any input is accepted.
func PercentilesFromParams(m domain.Moments) domain.Percentiles {
	c := Clamp(m)
	return domain.Percentiles{
		P5:  quantile(c, -zOuter),
		P25: quantile(c, -zInner),
		P50: quantile(c, 0),
		P75: quantile(c, zInner),
		P95: quantile(c, zOuter),
	}
}

// ParamsFromPercentiles estimates moments from five percentile beliefs.
//
// Sigma and tail_df are solved jointly from the P25/P75 and P5/P95 spreads:
// both spreads are linear in sigma and the tail factor, which gives a closed
// form. Skew comes from the asymmetry of the two outer tails, and mu undoes
// the skew-induced median shift. This inverse is exact for percentiles that
// were generated by PercentilesFromParams with in-range parameters, and a
// bounded approximation otherwise.
func ParamsFromPercentiles(p domain.Percentiles) domain.Moments {
	outerSpread := p.P95 - p.P5
	iqr := p.P75 - p.P25

	// a = sigma * tailFactor(df, zOuter); b = sigma * tailFactor(df, zInner).
	// tailFactor is linear in |z|, so b = sigma*(1-r) + a*r with r = zInner/zOuter.
	a := outerSpread / (2 * zOuter)
	b := iqr / (2 * zInner)
	r := zInner / zOuter

	sigma := math.Max((b-a*r)/(1-r), MinSigma)
	tfOuter := a / sigma
	tailDf := clamp(MaxTailDf-(MaxTailDf-MinTailDf)*(tfOuter-1)/tailSlope, MinTailDf, MaxTailDf)

	rightTail := p.P95 - p.P50
	leftTail := p.P50 - p.P5
	skew := 0.0
	if rightTail+leftTail > 0 {
		skew = clamp((rightTail-leftTail)/(sigma*skewScale*zOuter*zOuter), -1, 1)
	}

	mu := p.P50 + sigma*(skewScale/2)*skew

	return domain.Moments{
		Mu:     mu,
		Sigma:  sigma,
		Skew:   skew,
		TailDf: tailDf,
	}
}

// MomentsFor resolves a position's belief to clamped moments, converting
// percentile beliefs as needed.
func MomentsFor(p domain.Position) domain.Moments {
	if p.Moments != nil {
		return Clamp(*p.Moments)
	}
	return ParamsFromPercentiles(*p.Percentiles)
}
