// Package domain defines the value types exchanged between the dashboard and
// the simulation/optimization engine. All types are plain data: they carry no
// behavior beyond validation and are treated as immutable snapshots per run.
package domain

import (
	"fmt"
)

// Percentiles expresses a return belief as five quantiles of the annual
// return distribution. Values are decimals (0.08 = 8%).
type Percentiles struct {
	P5  float64 `json:"p5"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

// Validate checks that the percentiles are strictly increasing.
func (p Percentiles) Validate() error {
	if !(p.P5 < p.P25 && p.P25 < p.P50 && p.P50 < p.P75 && p.P75 < p.P95) {
		return fmt.Errorf("percentiles must be strictly increasing: p5=%v p25=%v p50=%v p75=%v p95=%v",
			p.P5, p.P25, p.P50, p.P75, p.P95)
	}
	return nil
}

// Moments expresses a return belief as parametric moments of a skewed,
// fat-tailed distribution.
type Moments struct {
	Mu     float64 `json:"mu"`
	Sigma  float64 `json:"sigma"`
	Skew   float64 `json:"skew"`
	TailDf float64 `json:"tail_df"`
}

// Validate checks the finite-variance requirements for the Student-t tails.
func (m Moments) Validate() error {
	if m.Sigma <= 0 {
		return fmt.Errorf("sigma must be positive, got %v", m.Sigma)
	}
	if m.TailDf < 3 {
		return fmt.Errorf("tail_df must be >= 3 for finite variance, got %v", m.TailDf)
	}
	return nil
}

// Position is a single portfolio holding with a return belief attached.
// The belief is expressed either as percentiles or as moments; exactly one
// of the two must be set.
type Position struct {
	Ticker      string       `json:"ticker"`
	Quantity    float64      `json:"quantity"`
	Price       float64      `json:"price"`
	Percentiles *Percentiles `json:"percentiles,omitempty"`
	Moments     *Moments     `json:"moments,omitempty"`
}

// MarketValue returns the current dollar value of the position.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.Price
}

// Validate checks structural invariants for a single position.
func (p Position) Validate() error {
	if p.Ticker == "" {
		return fmt.Errorf("position ticker is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("position %s: price cannot be negative, got %v", p.Ticker, p.Price)
	}
	if p.Percentiles == nil && p.Moments == nil {
		return fmt.Errorf("position %s: return belief is required (percentiles or moments)", p.Ticker)
	}
	if p.Percentiles != nil && p.Moments != nil {
		return fmt.Errorf("position %s: return belief must be percentiles or moments, not both", p.Ticker)
	}
	if p.Percentiles != nil {
		if err := p.Percentiles.Validate(); err != nil {
			return fmt.Errorf("position %s: %w", p.Ticker, err)
		}
	}
	if p.Moments != nil {
		if err := p.Moments.Validate(); err != nil {
			return fmt.Errorf("position %s: %w", p.Ticker, err)
		}
	}
	return nil
}

// ValidatePositions validates a portfolio and checks ticker uniqueness.
func ValidatePositions(positions []Position) error {
	if len(positions) == 0 {
		return fmt.Errorf("at least one position is required")
	}

	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Ticker] {
			return fmt.Errorf("duplicate ticker %s", p.Ticker)
		}
		seen[p.Ticker] = true
	}
	return nil
}

// TotalValue returns the net liquidation value of the portfolio.
func TotalValue(positions []Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.MarketValue()
	}
	return total
}

// Weights returns the value weights of the portfolio in position order.
// A zero-value portfolio falls back to equal weights.
func Weights(positions []Position) []float64 {
	weights := make([]float64, len(positions))
	total := TotalValue(positions)
	if total <= 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(len(positions))
		}
		return weights
	}
	for i, p := range positions {
		weights[i] = p.MarketValue() / total
	}
	return weights
}
