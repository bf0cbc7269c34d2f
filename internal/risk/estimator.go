package risk

import (
	"fmt"
	"math"

	"defiguard/internal/returns"
)

// ReturnEstimator produces annualized expected returns per asset, in the
// aligned Symbols order. Implementations must be deterministic.
type ReturnEstimator interface {
	Name() string
	Estimate(aligned *returns.AlignedSeries, periodsPerYear float64) []float64
}

// NewEstimator selects an estimator by configuration name.
func NewEstimator(name string) (ReturnEstimator, error) {
	switch name {
	case "", "historical":
		return HistoricalEstimator{}, nil
	case "ewma":
		return EWMAEstimator{HalfLife: DefaultEWMAHalfLife}, nil
	case "shrinkage":
		return ShrinkageEstimator{Intensity: DefaultShrinkageIntensity}, nil
	default:
		return nil, fmt.Errorf("unknown return estimator: %q", name)
	}
}

// Estimator tunables.
const (
	DefaultEWMAHalfLife       = 63.0
	DefaultShrinkageIntensity = 0.25
)

// HistoricalEstimator annualizes each asset's realized geometric return
// over the window. The plain historical mean is the default because it
// matches the metrics section exactly.
type HistoricalEstimator struct{}

func (HistoricalEstimator) Name() string { return "historical" }

func (HistoricalEstimator) Estimate(aligned *returns.AlignedSeries, periodsPerYear float64) []float64 {
	mu := make([]float64, aligned.NumAssets())
	for i, sym := range aligned.Symbols {
		mu[i] = annualizedReturn(aligned.Series[sym], periodsPerYear)
	}
	return mu
}

// EWMAEstimator weights recent observations more heavily with an
// exponential decay of the given half-life in periods, then annualizes
// the weighted mean arithmetically.
type EWMAEstimator struct {
	HalfLife float64
}

func (EWMAEstimator) Name() string { return "ewma" }

func (e EWMAEstimator) Estimate(aligned *returns.AlignedSeries, periodsPerYear float64) []float64 {
	halfLife := e.HalfLife
	if halfLife <= 0 {
		halfLife = DefaultEWMAHalfLife
	}
	lambda := math.Ln2 / halfLife

	mu := make([]float64, aligned.NumAssets())
	for i, sym := range aligned.Symbols {
		series := aligned.Series[sym]
		t := len(series)
		var sum, wsum float64
		for k, r := range series {
			w := math.Exp(-lambda * float64(t-1-k))
			sum += w * r
			wsum += w
		}
		if wsum > 0 {
			mu[i] = sum / wsum * periodsPerYear
		}
	}
	return mu
}

// ShrinkageEstimator pulls each historical estimate toward the
// cross-sectional grand mean. With short crypto histories the extremes
// of the sample means are mostly noise; shrinking them stabilizes the
// frontier without changing its ordering much.
type ShrinkageEstimator struct {
	Intensity float64
}

func (ShrinkageEstimator) Name() string { return "shrinkage" }

func (s ShrinkageEstimator) Estimate(aligned *returns.AlignedSeries, periodsPerYear float64) []float64 {
	mu := HistoricalEstimator{}.Estimate(aligned, periodsPerYear)
	if len(mu) == 0 {
		return mu
	}
	intensity := s.Intensity
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	var grand float64
	for _, m := range mu {
		grand += m
	}
	grand /= float64(len(mu))
	for i := range mu {
		mu[i] = (1-intensity)*mu[i] + intensity*grand
	}
	return mu
}
