package domain

import (
	"fmt"
)

// SimulationRequest is the immutable input snapshot for one simulation run.
// The engine never mutates it; concurrent runs each hold their own copy.
type SimulationRequest struct {
	Positions   []Position        `json:"positions"`
	Correlation CorrelationMatrix `json:"correlation"`
	Config      SimulationConfig  `json:"config"`
}

// Validate applies defaults and checks all engine input invariants. It
// returns a normalized copy; the receiver is left untouched.
func (r SimulationRequest) Validate() (SimulationRequest, error) {
	if err := ValidatePositions(r.Positions); err != nil {
		return r, err
	}

	out := r
	if out.Correlation == nil {
		out.Correlation = NewIdentityCorrelation(len(out.Positions))
	}
	if err := out.Correlation.Validate(len(out.Positions)); err != nil {
		return r, err
	}

	out.Config = out.Config.Normalized()
	if err := out.Config.Validate(); err != nil {
		return r, err
	}
	return out, nil
}

// OptimizationRequest is the immutable input snapshot for one optimization run.
type OptimizationRequest struct {
	Positions   []Position         `json:"positions"`
	Correlation CorrelationMatrix  `json:"correlation"`
	Config      OptimizationConfig `json:"config"`
}

// Validate applies defaults and checks input invariants, returning a
// normalized copy.
func (r OptimizationRequest) Validate() (OptimizationRequest, error) {
	if err := ValidatePositions(r.Positions); err != nil {
		return r, err
	}
	if len(r.Positions) < 2 {
		return r, fmt.Errorf("optimization requires at least 2 positions, got %d", len(r.Positions))
	}

	out := r
	if out.Correlation == nil {
		out.Correlation = NewIdentityCorrelation(len(out.Positions))
	}
	if err := out.Correlation.Validate(len(out.Positions)); err != nil {
		return r, err
	}

	out.Config = out.Config.Normalized()
	if err := out.Config.Validate(); err != nil {
		return r, err
	}
	return out, nil
}
