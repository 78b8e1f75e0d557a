package simulation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/covariance"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/distribution"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/sampler"
	"github.com/kevinren1128/montecarlo-engine/internal/task"
)

// Phase names reported through the progress callback.
const (
	PhaseEstimate   = "estimating"
	PhaseSimulate   = "simulating"
	PhaseStatistics = "statistics"
)

// Service runs complete Monte Carlo simulations: parameter resolution,
// covariance estimation, sampling, aggregation and statistics.
type Service struct {
	log       zerolog.Logger
	estimator *covariance.Estimator
	workers   int
}

// NewService creates a simulation service. workers <= 0 means one worker per
// CPU inside the sampler.
func NewService(log zerolog.Logger, workers int) *Service {
	return &Service{
		log:       log.With().Str("component", "simulation").Logger(),
		estimator: covariance.NewEstimator(log),
		workers:   workers,
	}
}

// Run executes one simulation over an immutable request snapshot. The
// context is polled between path batches; on cancellation the error is
// context.Canceled and no partial result is returned.
func (s *Service) Run(ctx context.Context, req domain.SimulationRequest, cb task.Callback) (*domain.SimulationResult, error) {
	req, err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid simulation request: %w", err)
	}

	task.Call(cb, 0, req.Config.NumPaths, PhaseEstimate)

	n := len(req.Positions)
	tickers := make([]string, n)
	moments := make([]domain.Moments, n)
	sigmas := make([]float64, n)
	for i, p := range req.Positions {
		tickers[i] = p.Ticker
		moments[i] = distribution.MomentsFor(p)
		sigmas[i] = moments[i].Sigma
	}

	model, err := s.estimator.Estimate(sigmas, req.Correlation)
	if err != nil {
		return nil, fmt.Errorf("covariance estimation failed: %w", err)
	}

	smp, err := sampler.New(s.log, model, moments, req.Config)
	if err != nil {
		return nil, err
	}

	weights := domain.Weights(req.Positions)
	startValue := domain.TotalValue(req.Positions)
	if startValue <= 0 {
		startValue = 1.0
	}

	agg := NewAggregator(weights, startValue, req.Config.NumPaths, req.Config.NumSteps)

	s.log.Info().
		Int("num_positions", n).
		Int("num_paths", req.Config.NumPaths).
		Int("num_steps", req.Config.NumSteps).
		Bool("qmc", req.Config.UseQMC).
		Str("fat_tail_method", req.Config.FatTailMethod).
		Msg("Starting simulation")

	err = smp.Run(ctx, s.workers, agg.Observe, func(done, total int) {
		task.Call(cb, done, total, PhaseSimulate)
	})
	if err != nil {
		return nil, err
	}

	task.Call(cb, req.Config.NumPaths, req.Config.NumPaths, PhaseStatistics)

	terminal := agg.TerminalReturns()
	drawdowns := agg.MaxDrawdowns()

	result := &domain.SimulationResult{
		SchemaVersion:   domain.SchemaVersion,
		NumPaths:        req.Config.NumPaths,
		StartingValue:   startValue,
		Terminal:        Summarize(terminal, req.Config.HistogramBins),
		TerminalDollars: Summarize(agg.TerminalDollars(), req.Config.HistogramBins),
		Drawdown:        Summarize(drawdowns, req.Config.HistogramBins),
		ProbLoss:        LossProbabilities(terminal),
		ProbDrawdown:    probAtLeast(drawdowns, req.Config.DrawdownThreshold),
		Risk:            TailRisk(terminal),
		Contributions:   Contributions(tickers, weights, terminal, agg.AssetGrowth()),
	}

	s.log.Info().
		Float64("median_return", result.Terminal.Percentiles.P50).
		Float64("var_5", result.Risk.VaR5).
		Msg("Simulation complete")

	return result, nil
}

// probAtLeast is the empirical probability that a value meets or exceeds the
// threshold. Used for the drawdown breach probability.
func probAtLeast(values []float64, threshold float64) float64 {
	if len(values) == 0 || threshold <= 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v >= threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}
