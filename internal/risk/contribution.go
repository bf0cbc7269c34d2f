package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// zeroVarianceTol guards the Euler division. Below it the portfolio is
// treated as riskless and every contribution is reported as zero.
const zeroVarianceTol = 1e-18

// DecomposeRisk performs the Euler decomposition of portfolio volatility:
// RC_i = w_i * (Sigma*w)_i / sqrt(w'Sigma*w). The contributions sum to
// the portfolio volatility exactly, which is what makes the per-asset
// shares meaningful percentages of total risk.
func DecomposeRisk(symbols []string, weights []float64, sigma *mat.SymDense) ContributionSection {
	n := len(symbols)
	section := ContributionSection{
		SectionResult: SectionResult{Status: StatusOK},
		Contributions: make([]AssetContribution, n),
	}

	w := mat.NewVecDense(n, weights)
	sw := mat.NewVecDense(n, nil)
	sw.MulVec(sigma, w)

	totalVar := mat.Dot(w, sw)
	if totalVar <= zeroVarianceTol {
		for i, sym := range symbols {
			section.Contributions[i] = AssetContribution{
				Symbol:        sym,
				WeightPercent: weights[i] * 100,
			}
		}
		return section
	}

	totalVol := math.Sqrt(totalVar)
	section.TotalVolatility = totalVol
	for i, sym := range symbols {
		rc := weights[i] * sw.AtVec(i) / totalVol
		section.Contributions[i] = AssetContribution{
			Symbol:        sym,
			WeightPercent: weights[i] * 100,
			Contribution:  rc,
			SharePercent:  rc / totalVol * 100,
		}
	}
	return section
}
