package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Percentile returns the p-th percentile (0-100) of the data using linear
// interpolation between the two nearest ranks on a sorted copy.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return PercentileSorted(sorted, p)
}

// PercentileSorted returns the p-th percentile (0-100) of already-sorted data.
// Callers that need several percentiles from the same ensemble should sort once
// and use this variant.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100.0 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// HistogramBin is a single bin of an equal-width histogram.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// Histogram bins data into numBins equal-width bins between min and max.
// Returns nil for empty data. Zero-width distributions collapse into a single
// bin holding everything.
func Histogram(data []float64, numBins int) []HistogramBin {
	if len(data) == 0 || numBins <= 0 {
		return nil
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		return []HistogramBin{{Low: lo, High: hi, Count: len(data), Pct: 100.0}}
	}

	bins := make([]HistogramBin, numBins)
	width := (hi - lo) / float64(numBins)
	for i := range bins {
		bins[i].Low = lo + float64(i)*width
		bins[i].High = lo + float64(i+1)*width
	}

	for _, v := range data {
		idx := int((v - lo) / width)
		if idx >= numBins {
			idx = numBins - 1 // max value lands in the last bin
		}
		bins[idx].Count++
	}

	total := float64(len(data))
	for i := range bins {
		bins[i].Pct = float64(bins[i].Count) / total * 100.0
	}

	return bins
}

// Sharpe calculates the Sharpe ratio from an expected return, volatility and
// risk-free rate. Returns 0 for non-positive volatility.
func Sharpe(expectedReturn, volatility, riskFree float64) float64 {
	if volatility <= 0 {
		return 0
	}
	return (expectedReturn - riskFree) / volatility
}
