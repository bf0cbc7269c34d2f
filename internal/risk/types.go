package risk

import (
	"time"

	"defiguard/internal/returns"
)

// Ratio is a risk-adjusted ratio that may be undefined when its
// denominator is zero (zero volatility, zero downside, zero drawdown).
// Undefined ratios serialize with Defined=false instead of NaN.
type Ratio struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// DefinedRatio wraps a computed value.
func DefinedRatio(v float64) Ratio {
	return Ratio{Value: v, Defined: true}
}

// UndefinedRatio marks a ratio whose denominator was zero.
func UndefinedRatio() Ratio {
	return Ratio{}
}

// SectionStatus reports how an analysis section finished. Sections
// degrade independently; a failed optimizer never blocks the rest.
type SectionStatus string

const (
	StatusOK      SectionStatus = "ok"
	StatusFailed  SectionStatus = "failed"
	StatusSkipped SectionStatus = "skipped"
)

// SectionResult carries per-section completion state.
type SectionResult struct {
	Status SectionStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// PortfolioMetrics are the scalar statistics of the weighted portfolio
// return series. Returns and volatilities are fractions (0.25 = 25%),
// annualized with the configured periods/year.
type PortfolioMetrics struct {
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	Sharpe               Ratio   `json:"sharpe"`
	Sortino              Ratio   `json:"sortino"`
	Calmar               Ratio   `json:"calmar"`
	VaR95                float64 `json:"var_95"`
	CVaR95               float64 `json:"cvar_95"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	Periods              int     `json:"periods"`
	PeriodsPerYear       float64 `json:"periods_per_year"`
	RiskFreeRate         float64 `json:"risk_free_rate"`
}

// CorrelationEntry is one cell of the pairwise Pearson matrix.
type CorrelationEntry struct {
	Asset1      string  `json:"asset1"`
	Asset2      string  `json:"asset2"`
	Correlation float64 `json:"correlation"`
}

// CorrelationSummary aggregates the off-diagonal correlations and the
// portfolio's diversification ratio.
type CorrelationSummary struct {
	AverageCorrelation   float64 `json:"average_correlation"`
	MaxCorrelation       float64 `json:"max_correlation"`
	MinCorrelation       float64 `json:"min_correlation"`
	DiversificationRatio float64 `json:"diversification_ratio"`
}

// CorrelationSection is the full §correlation output.
type CorrelationSection struct {
	SectionResult
	Assets  []string           `json:"assets"`
	Entries []CorrelationEntry `json:"entries"`
	Summary CorrelationSummary `json:"summary"`
}

// AssetContribution pairs an asset's capital weight with its share of
// total portfolio risk. The central diagnostic is WeightPercent vs
// SharePercent: an asset can dominate risk while being a minority of
// capital.
type AssetContribution struct {
	Symbol        string  `json:"symbol"`
	WeightPercent float64 `json:"weight_percent"`
	Contribution  float64 `json:"contribution"`
	SharePercent  float64 `json:"share_percent"`
}

// ContributionSection is the Euler risk decomposition output.
// Contributions sum to TotalVolatility.
type ContributionSection struct {
	SectionResult
	Contributions   []AssetContribution `json:"contributions"`
	TotalVolatility float64             `json:"total_volatility"`
}

// FrontierPoint is one solved portfolio on the efficient frontier.
// Return and Risk are annualized fractions.
type FrontierPoint struct {
	Return  float64            `json:"return"`
	Risk    float64            `json:"risk"`
	Sharpe  Ratio              `json:"sharpe"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// FrontierSection is the mean-variance optimization output. When the
// problem is degenerate the frontier collapses to a single feasible
// point and Degenerate is set, rather than the section failing.
type FrontierSection struct {
	SectionResult
	Points        []FrontierPoint `json:"points"`
	MaxSharpe     FrontierPoint   `json:"max_sharpe"`
	MinVolatility FrontierPoint   `json:"min_volatility"`
	Current       FrontierPoint   `json:"current"`
	Degenerate    bool            `json:"degenerate"`
	Note          string          `json:"note,omitempty"`
}

// Report bundles every analysis section for one request. It is built on
// demand, immutable once returned, and safe to cache by
// (portfolio identity, window, weights hash).
type Report struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	WindowDays   int                 `json:"window_days"`
	Periods      int                 `json:"periods"`
	Symbols      []string            `json:"symbols"`
	Weights      map[string]float64  `json:"weights"`
	Excluded     []returns.Exclusion `json:"excluded"`
	Metrics      PortfolioMetrics    `json:"metrics"`
	MetricsState SectionResult       `json:"metrics_state"`
	Correlation  CorrelationSection  `json:"correlation"`
	Contribution ContributionSection `json:"contribution"`
	Frontier     FrontierSection     `json:"frontier"`
}

// Config tunes the analytics engine. All knobs have working defaults;
// the resampling frequency and annualization constant are deliberately
// configuration, applied uniformly across every ratio.
type Config struct {
	// PeriodsPerYear annualizes periodic statistics. Daily crypto data
	// trades every calendar day, hence 365 rather than 252.
	PeriodsPerYear float64
	// RiskFreeRate enters Sharpe and Sortino numerators, annualized.
	RiskFreeRate float64
	// FrontierPoints is the number of target returns swept. Valid 5-100.
	FrontierPoints int
	// RidgeFactor scales the diagonal regularization term: the ridge
	// added to Sigma is RidgeFactor * trace(Sigma)/n on each diagonal
	// element. A tunable, not a magic constant.
	RidgeFactor float64
	// Estimator selects the expected-return strategy: "historical",
	// "ewma" or "shrinkage".
	Estimator string
}

// Engine defaults.
const (
	DefaultPeriodsPerYear = 365.0
	DefaultFrontierPoints = 30
	MinFrontierPoints     = 5
	MaxFrontierPoints     = 100
	DefaultRidgeFactor    = 1e-6
	DefaultEstimator      = "historical"
)

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		PeriodsPerYear: DefaultPeriodsPerYear,
		RiskFreeRate:   0,
		FrontierPoints: DefaultFrontierPoints,
		RidgeFactor:    DefaultRidgeFactor,
		Estimator:      DefaultEstimator,
	}
}

// IsValid checks the configuration ranges.
func (c Config) IsValid() bool {
	return c.PeriodsPerYear > 0 &&
		c.FrontierPoints >= MinFrontierPoints && c.FrontierPoints <= MaxFrontierPoints &&
		c.RidgeFactor >= 0
}
