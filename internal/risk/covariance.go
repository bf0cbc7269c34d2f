package risk

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"defiguard/internal/returns"
)

// SampleCovariance builds the periodic sample covariance matrix from an
// aligned return set, in Symbols order.
func SampleCovariance(aligned *returns.AlignedSeries) (*mat.SymDense, error) {
	n := aligned.NumAssets()
	if n == 0 {
		return nil, fmt.Errorf("no assets in aligned series")
	}
	t := aligned.NumReturns()
	if t < 2 {
		return nil, fmt.Errorf("insufficient observations for covariance: %d", t)
	}

	cov := mat.NewSymDense(n, nil)
	cols := make([][]float64, n)
	for i, sym := range aligned.Symbols {
		cols[i] = aligned.Series[sym]
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, stat.Covariance(cols[i], cols[j], nil))
		}
	}
	return cov, nil
}

// Regularize returns Sigma + eps*I with eps scaled to the matrix itself:
// eps = factor * trace(Sigma)/n. The ridge keeps near-singular matrices
// (duplicated or perfectly correlated assets) numerically solvable without
// visibly distorting well-conditioned ones.
func Regularize(sigma *mat.SymDense, factor float64) *mat.SymDense {
	n := sigma.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(sigma)
	if factor <= 0 || n == 0 {
		return out
	}
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += sigma.At(i, i)
	}
	eps := factor * trace / float64(n)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, out.At(i, i)+eps)
	}
	return out
}

// Annualize scales a periodic covariance matrix to annual units.
func Annualize(sigma *mat.SymDense, periodsPerYear float64) *mat.SymDense {
	n := sigma.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, sigma.At(i, j)*periodsPerYear)
		}
	}
	return out
}

// PortfolioVariance computes w'Sigma*w.
func PortfolioVariance(weights []float64, sigma *mat.SymDense) float64 {
	n := sigma.SymmetricDim()
	var v float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v += weights[i] * weights[j] * sigma.At(i, j)
		}
	}
	return v
}
