package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero periods per year", Config{PeriodsPerYear: 0, FrontierPoints: 30, RidgeFactor: 1e-6}},
		{"frontier points too low", Config{PeriodsPerYear: 365, FrontierPoints: 2, RidgeFactor: 1e-6}},
		{"frontier points too high", Config{PeriodsPerYear: 365, FrontierPoints: 500, RidgeFactor: 1e-6}},
		{"negative ridge", Config{PeriodsPerYear: 365, FrontierPoints: 30, RidgeFactor: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg, quietLogger())
			assert.Error(t, err)
		})
	}

	t.Run("unknown estimator", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Estimator = "oracle"
		_, err := NewEngine(cfg, quietLogger())
		assert.Error(t, err)
	})
}

func TestAnalyzeNilInput(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	_, err := engine.Analyze(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestAnalyzeExpiredContextPartialReport(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	aligned := syntheticAligned(11, 3, 60)
	report, err := engine.Analyze(ctx, aligned, map[string]float64{})
	require.NoError(t, err)

	// The sections saw the dead context and stepped aside; the report
	// shell with symbols and exclusions still comes back.
	assert.Equal(t, StatusSkipped, report.MetricsState.Status)
	assert.Equal(t, StatusSkipped, report.Correlation.Status)
	assert.Equal(t, StatusSkipped, report.Contribution.Status)
	assert.Equal(t, StatusSkipped, report.Frontier.Status)
	assert.NotEmpty(t, report.MetricsState.Error)
	assert.Equal(t, aligned.Symbols, report.Symbols)
}

func TestAnalyzeRenormalizesWeights(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	aligned := syntheticAligned(21, 3, 60)

	// Weights include an asset the builder excluded and do not sum to 1.
	weights := map[string]float64{
		aligned.Symbols[0]: 30,
		aligned.Symbols[1]: 10,
		"GONE":             60,
	}

	report, err := engine.Analyze(context.Background(), aligned, weights)
	require.NoError(t, err)

	sum := 0.0
	for _, w := range report.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.NotContains(t, report.Weights, "GONE")
	assert.InDelta(t, 0.75, report.Weights[aligned.Symbols[0]], 1e-12)
	assert.InDelta(t, 0.25, report.Weights[aligned.Symbols[1]], 1e-12)
	assert.InDelta(t, 0.0, report.Weights[aligned.Symbols[2]], 1e-12)
}

func TestAnalyzeAllZeroWeightsFallsBackToEqual(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	aligned := syntheticAligned(31, 4, 60)

	report, err := engine.Analyze(context.Background(), aligned, map[string]float64{})
	require.NoError(t, err)
	for _, sym := range aligned.Symbols {
		assert.InDelta(t, 0.25, report.Weights[sym], 1e-12)
	}
}

func TestNormalizeWeightsClampsNegatives(t *testing.T) {
	got := normalizeWeights([]string{"A", "B"}, map[string]float64{"A": -5, "B": 10})
	assert.Equal(t, []float64{0, 1}, got)
}
