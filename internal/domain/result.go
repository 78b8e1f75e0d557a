package domain

import (
	"github.com/kevinren1128/montecarlo-engine/pkg/formulas"
)

// SchemaVersion tags result payloads so the dashboard can detect stale
// persisted blobs after an engine upgrade.
const SchemaVersion = 2

// Scenario names used for per-position contributions.
const (
	ScenarioP5   = "p5"
	ScenarioP25  = "p25"
	ScenarioP50  = "p50"
	ScenarioP75  = "p75"
	ScenarioP95  = "p95"
	ScenarioMean = "mean"
)

// ScenarioValues holds the five standard percentiles of a distribution.
type ScenarioValues struct {
	P5  float64 `json:"p5"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

// Distribution summarizes one scalar-per-path ensemble. HasData is false for
// empty or degenerate ensembles; consumers must check it before reading the
// other fields (the "no data" sentinel from the error handling design).
type Distribution struct {
	HasData     bool                    `json:"has_data"`
	Mean        float64                 `json:"mean"`
	StdDev      float64                 `json:"std_dev"`
	Min         float64                 `json:"min"`
	Max         float64                 `json:"max"`
	Percentiles ScenarioValues          `json:"percentiles"`
	Histogram   []formulas.HistogramBin `json:"histogram,omitempty"`
}

// ProbLoss holds empirical loss probabilities at the fixed thresholds
// surfaced in the dashboard.
type ProbLoss struct {
	Breakeven float64 `json:"prob_breakeven"` // P(return <= 0)
	Loss5     float64 `json:"prob_5"`         // P(return <= -5%)
	Loss10    float64 `json:"prob_10"`
	Loss20    float64 `json:"prob_20"`
	Loss30    float64 `json:"prob_30"`
}

// PositionContribution is one position's weighted return contribution for
// each named scenario. For every scenario the contributions across positions
// sum to the portfolio return of that scenario.
type PositionContribution struct {
	Ticker    string             `json:"ticker"`
	Weight    float64            `json:"weight"`
	Scenarios map[string]float64 `json:"scenarios"`
}

// RiskMetrics holds tail-risk numbers derived from the terminal ensemble.
type RiskMetrics struct {
	VaR5   float64 `json:"var_5"`  // 5th percentile return
	VaR10  float64 `json:"var_10"` // 10th percentile return
	CVaR5  float64 `json:"cvar_5"` // mean of worst 5%
	CVaR10 float64 `json:"cvar_10"`
}

// SimulationResult is the complete output of one Monte Carlo run. It is
// produced once and replaced wholesale on re-run; no field is ever mutated
// after construction.
type SimulationResult struct {
	SchemaVersion   int                    `json:"schema_version"`
	NumPaths        int                    `json:"num_paths"`
	StartingValue   float64                `json:"starting_value"`
	Terminal        Distribution           `json:"terminal"`
	TerminalDollars Distribution           `json:"terminal_dollars"`
	Drawdown        Distribution           `json:"drawdown"`
	ProbLoss        ProbLoss               `json:"prob_loss"`
	ProbDrawdown    float64                `json:"prob_drawdown"` // P(max drawdown >= threshold)
	Risk            RiskMetrics            `json:"risk"`
	Contributions   []PositionContribution `json:"contributions"`
}

// PositionRisk is the per-position analytical risk attribution row.
type PositionRisk struct {
	Ticker           string  `json:"ticker"`
	Weight           float64 `json:"weight"`
	Mu               float64 `json:"mu"`
	Sigma            float64 `json:"sigma"`
	MCTR             float64 `json:"mctr"`              // marginal contribution to total risk
	RiskContribution float64 `json:"risk_contribution"` // w_i * MCTR_i / sigma_p, sums to 1
	ISharpe          float64 `json:"isharpe"`           // Sharpe delta of a 1% reallocation into this position
}

// MCValidation holds the Monte-Carlo-validated deltas for a swap candidate.
// These are the authoritative numbers surfaced to the user; the analytical
// deltas are only the pre-filter.
type MCValidation struct {
	Sharpe        float64 `json:"sharpe"` // second-pass Sharpe of the swapped portfolio
	DeltaProbLoss float64 `json:"delta_prob_loss"`
	DeltaVaR5     float64 `json:"delta_var_5"`
	DeltaMedian   float64 `json:"delta_median"`
}

// SwapCandidate is one ranked sell/buy pair.
type SwapCandidate struct {
	SellTicker  string        `json:"sell_ticker"`
	BuyTicker   string        `json:"buy_ticker"`
	DeltaReturn float64       `json:"delta_return"`
	DeltaVol    float64       `json:"delta_vol"`
	DeltaSharpe float64       `json:"delta_sharpe"`
	MC          *MCValidation `json:"mc,omitempty"` // set for the top-K validated candidates
}

// SwapMatrix holds the full N-by-N analytical swap grids. Entry [i][j] is the
// effect of selling ticker i to buy ticker j; the diagonal is zero.
type SwapMatrix struct {
	Tickers     []string    `json:"tickers"`
	DeltaSharpe [][]float64 `json:"delta_sharpe"`
	DeltaVol    [][]float64 `json:"delta_vol"`
	DeltaReturn [][]float64 `json:"delta_return"`
}

// RiskParity is the equal-risk-contribution target allocation. Converged is
// false when the solver hit its iteration budget; the weights are then
// best-effort rather than exact.
type RiskParity struct {
	Converged     bool               `json:"converged"`
	Iterations    int                `json:"iterations"`
	Weights       map[string]float64 `json:"weights"`
	Sharpe        float64            `json:"sharpe"`
	DeltaSharpe   float64            `json:"delta_sharpe"`
	WeightChanges map[string]float64 `json:"weight_changes"`
}

// PortfolioMetrics summarizes the current portfolio analytically, with an
// optional Monte Carlo cross-check attached.
type PortfolioMetrics struct {
	PortfolioReturn float64           `json:"portfolio_return"`
	PortfolioVol    float64           `json:"portfolio_vol"`
	Sharpe          float64           `json:"sharpe"`
	MCResults       *SimulationResult `json:"mc_results,omitempty"`
}

// OptimizationResult is the complete output of one optimization run.
// Immutable once computed.
type OptimizationResult struct {
	SchemaVersion int              `json:"schema_version"`
	Current       PortfolioMetrics `json:"current"`
	Positions     []PositionRisk   `json:"positions"`
	TopSwaps      []SwapCandidate  `json:"top_swaps"`
	SwapMatrix    SwapMatrix       `json:"swap_matrix"`
	RiskParity    RiskParity       `json:"risk_parity"`
}
