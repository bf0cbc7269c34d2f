package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// twoAssetProblem is a well-behaved fixture: a low-risk/low-return asset
// and a high-risk/high-return one with mild correlation.
func twoAssetProblem() (symbols []string, mu []float64, sigma *mat.SymDense) {
	symbols = []string{"BTC", "ETH"}
	mu = []float64{0.10, 0.40}
	sigma = mat.NewSymDense(2, []float64{
		0.04, 0.018,
		0.018, 0.25,
	})
	return symbols, mu, sigma
}

func TestFrontierSweepTwoAssets(t *testing.T) {
	symbols, mu, sigma := twoAssetProblem()
	cfg := DefaultConfig()
	cfg.FrontierPoints = 20

	current := []float64{0.5, 0.5}
	section := ComputeFrontier(context.Background(), symbols, current, mu, sigma, cfg)

	assert.Equal(t, StatusOK, section.Status)
	assert.False(t, section.Degenerate)
	require.NotEmpty(t, section.Points)

	// Returns sweep upward from the min-vol return toward max(mu).
	for i := 1; i < len(section.Points); i++ {
		assert.Greater(t, section.Points[i].Return, section.Points[i-1].Return)
	}
	first := section.Points[0]
	last := section.Points[len(section.Points)-1]
	assert.GreaterOrEqual(t, first.Return, section.MinVolatility.Return-1e-6)
	assert.InDelta(t, 0.40, last.Return, 0.02)

	// The min-vol portfolio risks no more than any swept point.
	for _, p := range section.Points {
		assert.GreaterOrEqual(t, p.Risk, section.MinVolatility.Risk-1e-6)
	}

	// Named portfolios carry full allocations summing to 1.
	for _, named := range []FrontierPoint{section.MaxSharpe, section.MinVolatility, section.Current} {
		sum := 0.0
		for _, w := range named.Weights {
			assert.GreaterOrEqual(t, w, -1e-9)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
	}
}

func TestFrontierMaxSharpeBeatsCurrent(t *testing.T) {
	symbols, mu, sigma := twoAssetProblem()
	cfg := DefaultConfig()

	// A deliberately bad current allocation: nearly everything in the
	// high-risk asset.
	current := []float64{0.05, 0.95}
	section := ComputeFrontier(context.Background(), symbols, current, mu, sigma, cfg)

	require.True(t, section.MaxSharpe.Sharpe.Defined)
	require.True(t, section.Current.Sharpe.Defined)
	assert.GreaterOrEqual(t, section.MaxSharpe.Sharpe.Value, section.Current.Sharpe.Value-1e-3)
}

func TestFrontierMinVolLeansToLowRiskAsset(t *testing.T) {
	symbols, mu, sigma := twoAssetProblem()
	section := ComputeFrontier(context.Background(), symbols, []float64{0.5, 0.5}, mu, sigma, DefaultConfig())

	require.False(t, section.Degenerate)
	assert.Greater(t, section.MinVolatility.Weights["BTC"], section.MinVolatility.Weights["ETH"])
}

func TestFrontierSingleAssetDegenerate(t *testing.T) {
	sigma := mat.NewSymDense(1, []float64{0.04})
	section := ComputeFrontier(context.Background(), []string{"BTC"}, []float64{1}, []float64{0.2}, sigma, DefaultConfig())

	assert.Equal(t, StatusOK, section.Status)
	assert.True(t, section.Degenerate)
	require.Len(t, section.Points, 1)
	assert.InDelta(t, 0.2, section.Points[0].Return, 1e-12)
	assert.InDelta(t, 0.2, section.Points[0].Risk, 1e-12)
}

func TestFrontierFlatReturnsDegenerate(t *testing.T) {
	symbols := []string{"DAI", "USDC"}
	mu := []float64{0.01, 0.01}
	sigma := mat.NewSymDense(2, []float64{
		0.0001, 0,
		0, 0.0001,
	})

	section := ComputeFrontier(context.Background(), symbols, []float64{0.5, 0.5}, mu, sigma, DefaultConfig())

	assert.True(t, section.Degenerate)
	assert.Equal(t, StatusOK, section.Status)
	assert.NotEmpty(t, section.Note)
	require.Len(t, section.Points, 1)
}

func TestFrontierCancelledContextPartialSweep(t *testing.T) {
	symbols, mu, sigma := twoAssetProblem()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	section := ComputeFrontier(ctx, symbols, []float64{0.5, 0.5}, mu, sigma, DefaultConfig())

	// The sweep never ran; the section degrades to the min-vol point
	// rather than failing outright.
	assert.True(t, section.Degenerate)
	require.NotEmpty(t, section.Points)
}
