package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"defiguard/internal/returns"
)

// A tiny deterministic generator keeps the property tests reproducible
// without seeding math/rand.
type lcg struct{ state uint64 }

func (g *lcg) next() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / float64(1<<53)
}

// syntheticAligned builds an aligned set of pseudo-random daily returns
// with per-asset drift and noise scale.
func syntheticAligned(seed uint64, numAssets, numReturns int) *returns.AlignedSeries {
	gen := &lcg{state: seed}
	symbols := make([]string, numAssets)
	series := make(map[string][]float64, numAssets)
	for i := 0; i < numAssets; i++ {
		symbols[i] = string(rune('A'+i/26)) + string(rune('A'+i%26))
		drift := (gen.next() - 0.45) * 0.004
		scale := 0.005 + gen.next()*0.03
		rets := make([]float64, numReturns)
		for t := 0; t < numReturns; t++ {
			rets[t] = drift + (gen.next()-0.5)*scale
		}
		series[symbols[i]] = rets
	}
	return &returns.AlignedSeries{
		Symbols:    symbols,
		Series:     series,
		Periods:    numReturns + 1,
		WindowDays: 365,
	}
}

func randomSimplexWeights(gen *lcg, n int) []float64 {
	w := make([]float64, n)
	sum := 0.0
	for i := range w {
		w[i] = gen.next()
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func TestRegularizedCovarianceIsPSD(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 1337} {
		aligned := syntheticAligned(seed, 8, 120)

		sigma, err := SampleCovariance(aligned)
		require.NoError(t, err)
		reg := Regularize(sigma, DefaultRidgeFactor)

		gen := &lcg{state: seed * 31}
		for trial := 0; trial < 50; trial++ {
			w := make([]float64, 8)
			for i := range w {
				w[i] = gen.next()*2 - 1
			}
			assert.GreaterOrEqual(t, PortfolioVariance(w, reg), -1e-12,
				"w'Sigma*w must be non-negative after regularization")
		}
	}
}

func TestRiskContributionsSumToPortfolioVolatility(t *testing.T) {
	gen := &lcg{state: 99}
	for trial := 0; trial < 20; trial++ {
		aligned := syntheticAligned(uint64(trial+1)*17, 6, 90)
		sigma, err := SampleCovariance(aligned)
		require.NoError(t, err)
		sigmaAnnual := Annualize(Regularize(sigma, DefaultRidgeFactor), 365)

		w := randomSimplexWeights(gen, 6)
		section := DecomposeRisk(aligned.Symbols, w, sigmaAnnual)

		sum := 0.0
		shares := 0.0
		for _, c := range section.Contributions {
			sum += c.Contribution
			shares += c.SharePercent
		}
		assert.InDelta(t, section.TotalVolatility, sum, 1e-9)
		assert.InDelta(t, 100, shares, 1e-6)

		wantVol := math.Sqrt(PortfolioVariance(w, sigmaAnnual))
		assert.InDelta(t, wantVol, section.TotalVolatility, 1e-12)
	}
}

func TestCorrelationMatrixSymmetricUnitDiagonal(t *testing.T) {
	aligned := syntheticAligned(5, 5, 100)
	sigma, err := SampleCovariance(aligned)
	require.NoError(t, err)
	sigmaAnnual := Annualize(sigma, 365)

	w := []float64{0.2, 0.2, 0.2, 0.2, 0.2}
	section := ComputeCorrelation(aligned, w, sigmaAnnual)

	byPair := make(map[[2]string]float64)
	for _, e := range section.Entries {
		byPair[[2]string{e.Asset1, e.Asset2}] = e.Correlation
	}
	for _, a := range aligned.Symbols {
		assert.InDelta(t, 1.0, byPair[[2]string{a, a}], 1e-12)
		for _, b := range aligned.Symbols {
			assert.InDelta(t, byPair[[2]string{a, b}], byPair[[2]string{b, a}], 1e-12)
			assert.LessOrEqual(t, byPair[[2]string{a, b}], 1+1e-12)
			assert.GreaterOrEqual(t, byPair[[2]string{a, b}], -1-1e-12)
		}
	}
}

func TestDiversificationRatioSingleAsset(t *testing.T) {
	sigma := mat.NewSymDense(1, []float64{0.04})
	got := diversificationRatio([]float64{1}, sigma)
	assert.Equal(t, 1.0, got)
}

func TestDiversificationRatioAtLeastOne(t *testing.T) {
	gen := &lcg{state: 2024}
	for trial := 0; trial < 10; trial++ {
		aligned := syntheticAligned(uint64(trial+3)*7, 4, 80)
		sigma, err := SampleCovariance(aligned)
		require.NoError(t, err)
		sigmaAnnual := Annualize(Regularize(sigma, DefaultRidgeFactor), 365)

		w := randomSimplexWeights(gen, 4)
		dr := diversificationRatio(w, sigmaAnnual)
		assert.GreaterOrEqual(t, dr, 1.0-1e-9)
	}
}

func TestEngineDeterminism(t *testing.T) {
	aligned := syntheticAligned(77, 4, 100)
	weights := map[string]float64{}
	gen := &lcg{state: 5}
	for _, sym := range aligned.Symbols {
		weights[sym] = gen.next()
	}

	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	run := func() *Report {
		engine := newTestEngine(t, DefaultConfig())
		engine.SetClock(func() time.Time { return fixed })
		report, err := engine.Analyze(context.Background(), aligned, weights)
		require.NoError(t, err)
		return report
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}
