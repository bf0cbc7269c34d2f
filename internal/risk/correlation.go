package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"defiguard/internal/returns"
)

// ComputeCorrelation builds the full pairwise Pearson matrix plus the
// off-diagonal summary and the diversification ratio. The annualized
// covariance matrix supplies asset volatilities so the ratio uses the
// same Sigma as every other section.
func ComputeCorrelation(aligned *returns.AlignedSeries, weights []float64, sigmaAnnual *mat.SymDense) CorrelationSection {
	n := aligned.NumAssets()
	section := CorrelationSection{
		SectionResult: SectionResult{Status: StatusOK},
		Assets:        aligned.Symbols,
	}

	entries := make([]CorrelationEntry, 0, n*n)
	var offDiag []float64
	for i, a := range aligned.Symbols {
		for j, b := range aligned.Symbols {
			var c float64
			if i == j {
				c = 1
			} else {
				c = stat.Correlation(aligned.Series[a], aligned.Series[b], nil)
				if math.IsNaN(c) {
					// Constant series have no defined correlation;
					// report independence rather than poisoning the matrix.
					c = 0
				}
				offDiag = append(offDiag, c)
			}
			entries = append(entries, CorrelationEntry{Asset1: a, Asset2: b, Correlation: c})
		}
	}
	section.Entries = entries

	if len(offDiag) > 0 {
		sum, maxC, minC := 0.0, offDiag[0], offDiag[0]
		for _, c := range offDiag {
			sum += c
			if c > maxC {
				maxC = c
			}
			if c < minC {
				minC = c
			}
		}
		section.Summary.AverageCorrelation = sum / float64(len(offDiag))
		section.Summary.MaxCorrelation = maxC
		section.Summary.MinCorrelation = minC
	}

	section.Summary.DiversificationRatio = diversificationRatio(weights, sigmaAnnual)
	return section
}

// diversificationRatio is the weighted average of standalone asset
// volatilities over the portfolio volatility. Exactly 1 for a single
// asset; above 1 whenever imperfect correlation dampens portfolio risk.
func diversificationRatio(weights []float64, sigma *mat.SymDense) float64 {
	n := sigma.SymmetricDim()
	if n == 1 {
		return 1
	}
	var weightedVol float64
	for i := 0; i < n; i++ {
		weightedVol += weights[i] * math.Sqrt(math.Max(sigma.At(i, i), 0))
	}
	portVol := math.Sqrt(math.Max(PortfolioVariance(weights, sigma), 0))
	if portVol == 0 {
		// All-zero-variance portfolio: nothing to diversify.
		return 1
	}
	return weightedVol / portVol
}
