// Package sampler draws correlated, fat-tailed, skew-adjusted return paths.
// This is the hot loop of the engine: paths * steps * assets operations,
// parallel across path chunks with no cross-path dependency.
package sampler

import (
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/covariance"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/distribution"
)

// chunkSize is the number of paths simulated per work unit. Each chunk owns
// an independently seeded random stream, so the ensemble is deterministic for
// a fixed seed no matter how many workers run or how they are scheduled.
const chunkSize = 1024

// seedGamma spaces the per-chunk seeds (golden-ratio increment, the same
// spacing splitmix64 uses).
const seedGamma = 0x9E3779B97F4A7C15

// Visit receives one simulated step of one path. Steps of a given path
// arrive in order from a single goroutine, but different paths may be
// visited concurrently. The returns slice is reused; consume it before
// returning.
type Visit func(path, step int, assetReturns []float64)

// Sampler generates the correlated return ensemble for one simulation run.
// It is immutable after construction and safe for concurrent use.
type Sampler struct {
	log zerolog.Logger
	cfg domain.SimulationConfig

	n       int
	stepMu  []float64 // per-step drift, mu_i / S
	stepVol []float64 // per-step volatility, sigma_i / sqrt(S)
	skews   []float64
	dfs     []float64

	lower *mat.TriDense // Cholesky factor of the shrunk correlation matrix

	// Student-t common mixing variable (preserves correlation under tail
	// stress). mixingStd standardizes the t-scale back to unit variance.
	mixingDf  float64
	mixingStd float64

	// Per-marginal t quantiles for the Gaussian copula method.
	tDists []distuv.StudentsT
	tStd   []float64

	// QMC state. One sequence point covers a whole path: each step owns a
	// distinct block of qmcPerStep coordinates, so step draws within a path
	// stay independent. Indexing the sequence per step instead would feed
	// consecutive Halton integers to the same dimensions, whose base-2
	// coordinate alternates around 0.5 and serially anti-correlates the
	// steps, collapsing terminal volatility.
	seq        *lowDiscrepancySeq // nil unless QMC is enabled
	qmcPerStep int
	qmcDim     int
}

// New builds a sampler from the covariance model and per-asset moments.
// Returns a *DecompositionError if the (already repaired) correlation
// structure cannot be factorized; that error is fatal for the run.
func New(log zerolog.Logger, model *covariance.Model, moments []domain.Moments, cfg domain.SimulationConfig) (*Sampler, error) {
	n := len(moments)
	steps := float64(cfg.NumSteps)

	s := &Sampler{
		log:     log.With().Str("component", "sampler").Logger(),
		cfg:     cfg,
		n:       n,
		stepMu:  make([]float64, n),
		stepVol: make([]float64, n),
		skews:   make([]float64, n),
		dfs:     make([]float64, n),
	}

	s.mixingDf = distribution.MaxTailDf
	for i, m := range moments {
		s.stepMu[i] = m.Mu / steps
		s.stepVol[i] = model.Vols[i] / math.Sqrt(steps)
		s.skews[i] = m.Skew
		s.dfs[i] = m.TailDf
		if m.TailDf < s.mixingDf {
			s.mixingDf = m.TailDf // most conservative tail drives the common mixing draw
		}
	}
	s.mixingStd = math.Sqrt(s.mixingDf / (s.mixingDf - 2))

	if cfg.FatTailMethod == domain.FatTailGaussianCopula {
		s.tDists = make([]distuv.StudentsT, n)
		s.tStd = make([]float64, n)
		for i := range moments {
			s.tDists[i] = distuv.StudentsT{Mu: 0, Sigma: 1, Nu: s.dfs[i]}
			s.tStd[i] = math.Sqrt(s.dfs[i] / (s.dfs[i] - 2))
		}
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, model.Corr[i][j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		// Rounding can leave a repaired matrix marginally indefinite.
		// A small ridge is the last resort before giving up.
		for i := 0; i < n; i++ {
			sym.SetSym(i, i, sym.At(i, i)+1e-6)
		}
		if ok := chol.Factorize(sym); !ok {
			return nil, &DecompositionError{NumAssets: n, Reason: "matrix not positive definite after repair"}
		}
		s.log.Warn().Int("num_assets", n).Msg("Applied diagonal ridge before Cholesky")
	}

	s.lower = mat.NewTriDense(n, mat.Lower, nil)
	chol.LTo(s.lower)

	if cfg.UseQMC {
		s.qmcPerStep = n
		if cfg.FatTailMethod == domain.FatTailStudentT {
			s.qmcPerStep = n + 1 // extra coordinate feeds the chi-squared mixing draw
		}
		s.qmcDim = s.qmcPerStep * cfg.NumSteps
		s.seq = newLowDiscrepancySeq(s.qmcDim, cfg.Seed)
	}

	return s, nil
}

// NumPaths returns the configured path count.
func (s *Sampler) NumPaths() int {
	return s.cfg.NumPaths
}

// pathState is the per-chunk working memory: a seeded random stream plus
// scratch buffers sized for one step.
type pathState struct {
	normal distuv.Normal
	chi    distuv.ChiSquared
	u      []float64
	z      []float64
	zc     []float64
	r      []float64
}

func (s *Sampler) newPathState(chunk int) *pathState {
	src := rand.NewSource(s.cfg.Seed + uint64(chunk)*seedGamma + 1)
	st := &pathState{
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		chi:    distuv.ChiSquared{K: s.mixingDf, Src: src},
		z:      make([]float64, s.n),
		zc:     make([]float64, s.n),
		r:      make([]float64, s.n),
	}
	if s.seq != nil {
		st.u = make([]float64, s.qmcDim)
	}
	return st
}

// Run simulates the full ensemble, distributing path chunks over workers.
// Cancellation is cooperative: the context is polled between chunks and
// context.Canceled is returned without partial results being flushed.
// progress, if non-nil, is called after each chunk and must be safe for
// concurrent use.
func (s *Sampler) Run(ctx context.Context, workers int, visit Visit, progress func(done, total int)) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	total := s.cfg.NumPaths
	numChunks := (total + chunkSize - 1) / chunkSize
	if workers > numChunks {
		workers = numChunks
	}

	jobs := make(chan int, numChunks)
	for c := 0; c < numChunks; c++ {
		jobs <- c
	}
	close(jobs)

	var done int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				if ctx.Err() != nil {
					return
				}
				count := s.runChunk(chunk, visit)
				if progress != nil {
					progress(int(atomic.AddInt64(&done, int64(count))), total)
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.log.Info().Int64("paths_completed", atomic.LoadInt64(&done)).Msg("Simulation cancelled")
		return err
	}
	return nil
}

func (s *Sampler) runChunk(chunk int, visit Visit) int {
	st := s.newPathState(chunk)
	start := chunk * chunkSize
	end := start + chunkSize
	if end > s.cfg.NumPaths {
		end = s.cfg.NumPaths
	}
	for path := start; path < end; path++ {
		s.simulatePath(st, path, visit)
	}
	return end - start
}

// simulatePath draws one full path: for each step, base normals (PRNG or
// QMC), Cholesky correlation, fat-tail injection, Cornish-Fisher skew, and
// the final mu + sigma*z' mapping.
func (s *Sampler) simulatePath(st *pathState, path int, visit Visit) {
	n := s.n
	if s.seq != nil {
		s.seq.Point(path, st.u)
	}
	for step := 0; step < s.cfg.NumSteps; step++ {
		base := step * s.qmcPerStep
		if s.seq != nil {
			for i := 0; i < n; i++ {
				st.z[i] = distuv.UnitNormal.Quantile(st.u[base+i])
			}
		} else {
			for i := 0; i < n; i++ {
				st.z[i] = st.normal.Rand()
			}
		}

		// Correlate: zc = L * z. L is lower-triangular so row i only
		// touches z[0..i].
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j <= i; j++ {
				sum += s.lower.At(i, j) * st.z[j]
			}
			st.zc[i] = sum
		}

		switch s.cfg.FatTailMethod {
		case domain.FatTailStudentT:
			if s.mixingDf < distribution.MaxTailDf {
				var chi float64
				if s.seq != nil {
					chi = st.chi.Quantile(st.u[base+n])
				} else {
					chi = st.chi.Rand()
				}
				if chi < 1e-12 {
					chi = 1e-12
				}
				// Common sqrt(nu/chi2) mixing keeps the correlation
				// structure intact under tail stress; dividing by the
				// t standard deviation preserves target volatility.
				scale := math.Sqrt(s.mixingDf/chi) / s.mixingStd
				for i := 0; i < n; i++ {
					st.zc[i] *= scale
				}
			}
		case domain.FatTailGaussianCopula:
			// Probability integral transform per marginal: tails are
			// thickened independently, decoupling tail behavior
			// across assets.
			for i := 0; i < n; i++ {
				if s.dfs[i] >= distribution.MaxTailDf {
					continue
				}
				u := distuv.UnitNormal.CDF(st.zc[i])
				if u < 1e-12 {
					u = 1e-12
				} else if u > 1-1e-12 {
					u = 1 - 1e-12
				}
				st.zc[i] = s.tDists[i].Quantile(u) / s.tStd[i]
			}
		}

		for i := 0; i < n; i++ {
			z := st.zc[i]
			// Cornish-Fisher first-order skew correction.
			z += s.skews[i] * (z*z - 1) / 6
			st.r[i] = s.stepMu[i] + s.stepVol[i]*z
		}

		visit(path, step, st.r)
	}
}
