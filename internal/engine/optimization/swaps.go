package optimization

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/simulation"
	"github.com/kevinren1128/montecarlo-engine/pkg/formulas"
)

// BuildSwapMatrix evaluates every ordered sell/buy pair analytically and
// returns both the full N-by-N grids (for the dashboard heatmap) and the
// flattened candidate list. The diagonal stays zero.
func BuildSwapMatrix(a *Analytics, size float64) (domain.SwapMatrix, []domain.SwapCandidate) {
	n := len(a.Tickers)

	matrix := domain.SwapMatrix{
		Tickers:     a.Tickers,
		DeltaSharpe: make([][]float64, n),
		DeltaVol:    make([][]float64, n),
		DeltaReturn: make([][]float64, n),
	}
	for i := range matrix.DeltaSharpe {
		matrix.DeltaSharpe[i] = make([]float64, n)
		matrix.DeltaVol[i] = make([]float64, n)
		matrix.DeltaReturn[i] = make([]float64, n)
	}

	candidates := make([]domain.SwapCandidate, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dRet, dVol, dSharpe := a.SwapDeltas(i, j, size)
			matrix.DeltaReturn[i][j] = dRet
			matrix.DeltaVol[i][j] = dVol
			matrix.DeltaSharpe[i][j] = dSharpe
			candidates = append(candidates, domain.SwapCandidate{
				SellTicker:  a.Tickers[i],
				BuyTicker:   a.Tickers[j],
				DeltaReturn: dRet,
				DeltaVol:    dVol,
				DeltaSharpe: dSharpe,
			})
		}
	}

	return matrix, candidates
}

// TopSwaps returns the k best candidates by analytical deltaSharpe, with a
// deterministic tie-break on ticker names so rankings are stable across runs.
func TopSwaps(candidates []domain.SwapCandidate, k int) []domain.SwapCandidate {
	sorted := make([]domain.SwapCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].DeltaSharpe != sorted[b].DeltaSharpe {
			return sorted[a].DeltaSharpe > sorted[b].DeltaSharpe
		}
		if sorted[a].SellTicker != sorted[b].SellTicker {
			return sorted[a].SellTicker < sorted[b].SellTicker
		}
		return sorted[a].BuyTicker < sorted[b].BuyTicker
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// swapValidator re-simulates the top candidates with the full path count.
// The analytical ranking is only a pre-filter; these Monte Carlo numbers are
// what the dashboard surfaces.
type swapValidator struct {
	log       zerolog.Logger
	sim       *simulation.Service
	positions []domain.Position
	corr      domain.CorrelationMatrix
	simCfg    domain.SimulationConfig
	base      *domain.SimulationResult
	riskFree  float64
	swapSize  float64
	workers   int
}

// mcSharpe derives a Sharpe ratio from a simulated terminal distribution.
func mcSharpe(result *domain.SimulationResult, riskFree float64) float64 {
	if !result.Terminal.HasData {
		return 0
	}
	return formulas.Sharpe(result.Terminal.Mean, result.Terminal.StdDev, riskFree)
}

// validate runs the MC pass for all candidates in parallel, attaching the
// validated deltas in place. Each validation shares only read-only inputs,
// so the pool needs no coordination beyond the jobs/results channels.
func (v *swapValidator) validate(ctx context.Context, candidates []domain.SwapCandidate, progress func(done, total int)) ([]domain.SwapCandidate, error) {
	numJobs := len(candidates)
	if numJobs == 0 {
		return candidates, nil
	}

	workers := v.workers
	if workers <= 0 || workers > numJobs {
		workers = numJobs
	}

	jobs := make(chan int, numJobs)
	for i := 0; i < numJobs; i++ {
		jobs <- i
	}
	close(jobs)

	type outcome struct {
		idx int
		mc  *domain.MCValidation
		err error
	}
	results := make(chan outcome, numJobs)

	var done int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results <- outcome{idx: idx, err: ctx.Err()}
					continue
				}
				mc, err := v.validateOne(ctx, candidates[idx])
				results <- outcome{idx: idx, mc: mc, err: err}
				if progress != nil {
					progress(int(atomic.AddInt64(&done, 1)), numJobs)
				}
			}
		}()
	}
	wg.Wait()
	close(results)

	out := make([]domain.SwapCandidate, len(candidates))
	copy(out, candidates)
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		out[r.idx].MC = r.mc
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// validateOne re-simulates the portfolio with one swap applied, using the
// same seed and path count as the baseline run so the deltas are not noise.
func (v *swapValidator) validateOne(ctx context.Context, cand domain.SwapCandidate) (*domain.MCValidation, error) {
	swapped := applySwap(v.positions, cand.SellTicker, cand.BuyTicker, v.swapSize)

	result, err := v.sim.Run(ctx, domain.SimulationRequest{
		Positions:   swapped,
		Correlation: v.corr,
		Config:      v.simCfg,
	}, nil)
	if err != nil {
		return nil, err
	}

	return &domain.MCValidation{
		Sharpe:        mcSharpe(result, v.riskFree),
		DeltaProbLoss: result.ProbLoss.Breakeven - v.base.ProbLoss.Breakeven,
		DeltaVaR5:     result.Risk.VaR5 - v.base.Risk.VaR5,
		DeltaMedian:   result.Terminal.Percentiles.P50 - v.base.Terminal.Percentiles.P50,
	}, nil
}

// applySwap returns a copy of the portfolio with size (as a fraction of NLV)
// moved from the sell ticker to the buy ticker. The sell leg is capped at
// the available position value; the engine never opens shorts.
func applySwap(positions []domain.Position, sellTicker, buyTicker string, size float64) []domain.Position {
	out := make([]domain.Position, len(positions))
	copy(out, positions)

	nlv := domain.TotalValue(positions)
	if nlv <= 0 {
		return out
	}

	for i := range out {
		if out[i].Ticker == sellTicker && out[i].Price > 0 {
			sellValue := size * nlv
			if held := out[i].MarketValue(); sellValue > held {
				sellValue = held
			}
			out[i].Quantity -= sellValue / out[i].Price
		}
		if out[i].Ticker == buyTicker && out[i].Price > 0 {
			out[i].Quantity += size * nlv / out[i].Price
		}
	}
	return out
}
