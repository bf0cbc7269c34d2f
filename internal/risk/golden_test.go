package risk

import (
	"context"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defiguard/internal/returns"
)

// Golden tests pin the engine output on small fixtures whose numbers
// were worked out by hand. They are the canary for accidental changes
// to the return convention or the annualization arithmetic.

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, quietLogger())
	require.NoError(t, err)
	e.SetClock(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) })
	return e
}

// goldenAligned is a perfectly correlated two-asset fixture: ETH moves
// are exactly half of BTC's. Hand-derived facts, with 365 periods/year:
//
//	periodic covariance: var(BTC)=0.02, var(ETH)=0.005, cov=0.01
//	annualized:          7.3,           1.825,          3.65
//	50/50 portfolio variance = 0.25*7.3 + 0.25*1.825 + 2*0.25*3.65 = 4.10625
//	portfolio vol = 2.026388...
//	weighted avg asset vols = 0.5*sqrt(7.3) + 0.5*sqrt(1.825) = 2.026388...
//	diversification ratio = 1 (perfect correlation diversifies nothing)
func goldenAligned() *returns.AlignedSeries {
	return &returns.AlignedSeries{
		Symbols: []string{"BTC", "ETH"},
		Series: map[string][]float64{
			"BTC": {0.10, -0.10},
			"ETH": {0.05, -0.05},
		},
		Dates:      []time.Time{},
		Periods:    3,
		WindowDays: 365,
	}
}

func TestGoldenTwoAssetReport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RidgeFactor = 0 // exact hand-computed values need the raw matrix
	engine := newTestEngine(t, cfg)

	weights := map[string]float64{"BTC": 0.5, "ETH": 0.5}
	report, err := engine.Analyze(context.Background(), goldenAligned(), weights)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, report.Symbols)
	assert.Equal(t, StatusOK, report.MetricsState.Status)
	assert.Equal(t, StatusOK, report.Correlation.Status)
	assert.Equal(t, StatusOK, report.Contribution.Status)

	// Portfolio series is {+7.5%, -7.5%}: cumulative 1.075*0.925 = 0.994375.
	wantAnnRet := math.Pow(0.994375, 365.0/2.0) - 1
	assert.InDelta(t, wantAnnRet, report.Metrics.AnnualizedReturn, 1e-9)

	// Periodic stddev of {0.075, -0.075} is 0.10606601..., annualized
	// by sqrt(365).
	wantVol := 0.075 * math.Sqrt2 * math.Sqrt(365)
	assert.InDelta(t, wantVol, report.Metrics.AnnualizedVolatility, 1e-9)

	require.True(t, report.Metrics.Sharpe.Defined)
	assert.InDelta(t, wantAnnRet/wantVol, report.Metrics.Sharpe.Value, 1e-9)

	// Perfectly correlated pair.
	require.Len(t, report.Correlation.Entries, 4)
	for _, e := range report.Correlation.Entries {
		assert.InDelta(t, 1.0, e.Correlation, 1e-12)
	}
	assert.InDelta(t, 1.0, report.Correlation.Summary.AverageCorrelation, 1e-12)
	assert.InDelta(t, 1.0, report.Correlation.Summary.DiversificationRatio, 1e-9)

	// Euler contributions sum to the hand-computed portfolio vol.
	wantPortVol := math.Sqrt(4.10625)
	assert.InDelta(t, wantPortVol, report.Contribution.TotalVolatility, 1e-9)
	sum := 0.0
	for _, c := range report.Contribution.Contributions {
		sum += c.Contribution
	}
	assert.InDelta(t, wantPortVol, sum, 1e-9)
}

func TestGoldenNegativeCorrelationPair(t *testing.T) {
	// Hand-computed Pearson correlation of the two series below:
	//   cov = -0.003, sd(BTC) = 0.104083, sd(ETH) = 0.03
	//   corr = -0.003 / (0.104083 * 0.03) = -0.96077
	aligned := &returns.AlignedSeries{
		Symbols: []string{"BTC", "ETH"},
		Series: map[string][]float64{
			"BTC": {0.10, -0.10, 0.05},
			"ETH": {-0.02, 0.04, 0.01},
		},
		Periods:    4,
		WindowDays: 365,
	}

	cfg := DefaultConfig()
	engine := newTestEngine(t, cfg)

	report, err := engine.Analyze(context.Background(), aligned, map[string]float64{"BTC": 0.5, "ETH": 0.5})
	require.NoError(t, err)

	var cross float64
	for _, e := range report.Correlation.Entries {
		if e.Asset1 == "BTC" && e.Asset2 == "ETH" {
			cross = e.Correlation
		}
	}
	assert.InDelta(t, -0.96077, cross, 1e-4)
	assert.InDelta(t, cross, report.Correlation.Summary.AverageCorrelation, 1e-12)
	assert.InDelta(t, cross, report.Correlation.Summary.MaxCorrelation, 1e-12)
	assert.InDelta(t, cross, report.Correlation.Summary.MinCorrelation, 1e-12)

	// Negatively correlated assets must diversify: ratio above 1.
	assert.Greater(t, report.Correlation.Summary.DiversificationRatio, 1.0)
}

func TestGoldenStablecoinPortfolio(t *testing.T) {
	// Two stablecoins pinned at parity: zero volatility everywhere.
	aligned := &returns.AlignedSeries{
		Symbols: []string{"DAI", "USDC"},
		Series: map[string][]float64{
			"DAI":  {0, 0, 0, 0},
			"USDC": {0, 0, 0, 0},
		},
		Periods:    5,
		WindowDays: 365,
	}

	engine := newTestEngine(t, DefaultConfig())
	report, err := engine.Analyze(context.Background(), aligned, map[string]float64{"DAI": 0.5, "USDC": 0.5})
	require.NoError(t, err)

	assert.False(t, report.Metrics.Sharpe.Defined)
	assert.False(t, report.Metrics.Sortino.Defined)
	assert.False(t, report.Metrics.Calmar.Defined)
	assert.InDelta(t, 0, report.Metrics.AnnualizedReturn, 1e-12)

	// Zero variance: contributions all zero, no NaN anywhere.
	for _, c := range report.Contribution.Contributions {
		assert.InDelta(t, 0, c.Contribution, 1e-9)
		assert.False(t, math.IsNaN(c.SharePercent))
	}

	// Flat expected returns collapse the frontier to a single point.
	assert.True(t, report.Frontier.Degenerate)
	require.Len(t, report.Frontier.Points, 1)
	assert.False(t, report.Frontier.Points[0].Sharpe.Defined)
}
