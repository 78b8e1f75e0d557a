package optimization

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/covariance"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/distribution"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/simulation"
	"github.com/kevinren1128/montecarlo-engine/internal/task"
)

// Phase names reported through the progress callback.
const (
	PhaseAnalytics    = "analytics"
	PhaseBaseline     = "baseline_mc"
	PhaseMCValidation = "mc_validation"
	PhaseRiskParity   = "risk_parity"
)

// Service runs the full risk attribution and trade ranking pipeline.
type Service struct {
	log       zerolog.Logger
	estimator *covariance.Estimator
	sim       *simulation.Service
	workers   int
}

// NewService creates an optimization service sharing the simulation service
// for its Monte Carlo passes.
func NewService(log zerolog.Logger, sim *simulation.Service, workers int) *Service {
	return &Service{
		log:       log.With().Str("component", "optimization").Logger(),
		estimator: covariance.NewEstimator(log),
		sim:       sim,
		workers:   workers,
	}
}

// Run executes one optimization over an immutable request snapshot:
// analytical attribution, the O(N^2) swap matrix, Monte Carlo validation of
// the top candidates, and the risk-parity target allocation.
func (s *Service) Run(ctx context.Context, req domain.OptimizationRequest, cb task.Callback) (*domain.OptimizationResult, error) {
	req, err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid optimization request: %w", err)
	}

	task.Call(cb, 0, 1, PhaseAnalytics)

	n := len(req.Positions)
	tickers := make([]string, n)
	mus := make([]float64, n)
	sigmas := make([]float64, n)
	for i, p := range req.Positions {
		m := distribution.MomentsFor(p)
		tickers[i] = p.Ticker
		mus[i] = m.Mu
		sigmas[i] = m.Sigma
	}

	model, err := s.estimator.Estimate(sigmas, req.Correlation)
	if err != nil {
		return nil, fmt.Errorf("covariance estimation failed: %w", err)
	}

	weights := domain.Weights(req.Positions)
	analytics, err := NewAnalytics(tickers, weights, mus, model.Cov, req.Config.RiskFreeRate)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("num_positions", n).
		Float64("portfolio_vol", analytics.PortVol).
		Float64("sharpe", analytics.Sharpe).
		Msg("Starting optimization")

	swapMatrix, candidates := BuildSwapMatrix(analytics, req.Config.SwapSize)
	topSwaps := TopSwaps(candidates, req.Config.TopSwaps)

	// Baseline MC pass: the same sampler and path count the validations use.
	task.Call(cb, 0, len(topSwaps)+1, PhaseBaseline)
	baseline, err := s.sim.Run(ctx, domain.SimulationRequest{
		Positions:   req.Positions,
		Correlation: req.Correlation,
		Config:      req.Config.Simulation,
	}, nil)
	if err != nil {
		return nil, err
	}

	validator := &swapValidator{
		log:       s.log,
		sim:       s.sim,
		positions: req.Positions,
		corr:      req.Correlation,
		simCfg:    req.Config.Simulation,
		base:      baseline,
		riskFree:  req.Config.RiskFreeRate,
		swapSize:  req.Config.SwapSize,
		workers:   s.workers,
	}

	validated, err := validator.validate(ctx, topSwaps, func(done, total int) {
		task.Call(cb, done+1, total+1, PhaseMCValidation)
	})
	if err != nil {
		return nil, err
	}

	task.Call(cb, len(topSwaps)+1, len(topSwaps)+1, PhaseRiskParity)

	rpWeights, iterations, converged := SolveRiskParity(model.Cov)
	if !converged {
		s.log.Warn().Int("iterations", iterations).Msg("Risk parity solver did not converge; returning best-effort weights")
	}
	_, _, rpSharpe := analytics.MetricsFor(rpWeights)

	riskParity := domain.RiskParity{
		Converged:     converged,
		Iterations:    iterations,
		Weights:       make(map[string]float64, n),
		Sharpe:        rpSharpe,
		DeltaSharpe:   rpSharpe - analytics.Sharpe,
		WeightChanges: make(map[string]float64, n),
	}
	for i, t := range tickers {
		riskParity.Weights[t] = rpWeights[i]
		riskParity.WeightChanges[t] = rpWeights[i] - weights[i]
	}

	result := &domain.OptimizationResult{
		SchemaVersion: domain.SchemaVersion,
		Current: domain.PortfolioMetrics{
			PortfolioReturn: analytics.PortRet,
			PortfolioVol:    analytics.PortVol,
			Sharpe:          analytics.Sharpe,
			MCResults:       baseline,
		},
		Positions:  analytics.PositionRisks(sigmas),
		TopSwaps:   validated,
		SwapMatrix: swapMatrix,
		RiskParity: riskParity,
	}

	s.log.Info().
		Int("top_swaps", len(validated)).
		Bool("risk_parity_converged", converged).
		Msg("Optimization complete")

	return result, nil
}
