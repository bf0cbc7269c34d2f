// Package risk implements the portfolio risk analytics engine.
//
// The engine turns an aligned return set (built by internal/returns) and
// a capital weight map into a full risk report with four independent
// sections:
//
//  1. Metrics: annualized return and volatility, Sharpe, Sortino,
//     Calmar, historical VaR/CVaR at 95%, and maximum drawdown of the
//     weighted portfolio series.
//  2. Correlation: the pairwise Pearson matrix, an off-diagonal summary,
//     and the diversification ratio.
//  3. Contribution: the Euler decomposition of portfolio volatility
//     into per-asset risk shares.
//  4. Frontier: a long-only mean-variance efficient frontier with
//     max-Sharpe, minimum-volatility and current-portfolio markers.
//
// # Architecture
//
//   - types.go: report structures, Ratio, configuration
//   - covariance.go: sample covariance, ridge regularization, annualization
//   - metrics.go: portfolio-level statistics
//   - correlation.go: Pearson matrix and diversification ratio
//   - contribution.go: Euler risk decomposition
//   - estimator.go: expected-return strategies (historical, ewma, shrinkage)
//   - frontier.go: penalty-method mean-variance optimizer
//   - engine.go: concurrent section orchestration
//
// # Semantics
//
// All sections share one return convention (simple percentage returns),
// one annualization constant, and one regularized covariance matrix, so
// their numbers are mutually consistent. Ratios whose denominator is
// zero are reported as undefined rather than zero or NaN. Degenerate
// optimization inputs collapse the frontier to a single feasible point
// instead of failing the section; an expired context yields a partial
// report with the unfinished sections marked skipped.
//
// The engine is a pure function of its inputs: identical aligned
// returns, weights and configuration produce identical reports.
package risk
