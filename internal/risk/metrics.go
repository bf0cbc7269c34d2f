package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ComputeMetrics calculates the scalar risk statistics of a single
// portfolio return series. Ratios with a zero denominator come back
// undefined instead of NaN: an all-stablecoin portfolio has no Sharpe,
// it does not have a Sharpe of zero.
func ComputeMetrics(series []float64, cfg Config) PortfolioMetrics {
	m := PortfolioMetrics{
		Periods:        len(series),
		PeriodsPerYear: cfg.PeriodsPerYear,
		RiskFreeRate:   cfg.RiskFreeRate,
	}
	if len(series) == 0 {
		return m
	}

	m.AnnualizedReturn = annualizedReturn(series, cfg.PeriodsPerYear)
	m.AnnualizedVolatility = stat.StdDev(series, nil) * math.Sqrt(cfg.PeriodsPerYear)

	excess := m.AnnualizedReturn - cfg.RiskFreeRate
	if m.AnnualizedVolatility > 0 {
		m.Sharpe = DefinedRatio(excess / m.AnnualizedVolatility)
	} else {
		m.Sharpe = UndefinedRatio()
	}

	if dd := downsideDeviation(series, cfg.PeriodsPerYear); dd > 0 {
		m.Sortino = DefinedRatio(excess / dd)
	} else {
		m.Sortino = UndefinedRatio()
	}

	m.VaR95, m.CVaR95 = historicalVaR(series, 0.05)

	m.MaxDrawdown = maxDrawdown(series)
	if m.MaxDrawdown < 0 {
		m.Calmar = DefinedRatio(m.AnnualizedReturn / math.Abs(m.MaxDrawdown))
	} else {
		m.Calmar = UndefinedRatio()
	}

	return m
}

// annualizedReturn compounds the periodic returns geometrically and
// rescales by the actual observed period count, not the nominal window.
func annualizedReturn(series []float64, periodsPerYear float64) float64 {
	cum := 1.0
	for _, r := range series {
		cum *= 1 + r
	}
	if cum <= 0 {
		return -1
	}
	return math.Pow(cum, periodsPerYear/float64(len(series))) - 1
}

// downsideDeviation is the annualized standard deviation of only the
// negative-return periods. Zero when no period lost money.
func downsideDeviation(series []float64, periodsPerYear float64) float64 {
	var downside []float64
	for _, r := range series {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}
	return stat.StdDev(downside, nil) * math.Sqrt(periodsPerYear)
}

// historicalVaR returns the empirical alpha-quantile of the periodic
// returns and the mean of the tail at or below it. No distributional
// assumption; crypto returns are nowhere near normal.
func historicalVaR(series []float64, alpha float64) (varAlpha, cvarAlpha float64) {
	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	varAlpha = stat.Quantile(alpha, stat.Empirical, sorted, nil)

	var sum float64
	var count int
	for _, r := range sorted {
		if r > varAlpha {
			break
		}
		sum += r
		count++
	}
	if count > 0 {
		cvarAlpha = sum / float64(count)
	} else {
		cvarAlpha = varAlpha
	}
	return varAlpha, cvarAlpha
}

// maxDrawdown walks the cumulative growth curve against its running
// maximum and returns the deepest peak-to-trough loss as a negative
// fraction. Zero for a series that never declines.
func maxDrawdown(series []float64) float64 {
	cum := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range series {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if peak > 0 {
			if dd := (cum - peak) / peak; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
