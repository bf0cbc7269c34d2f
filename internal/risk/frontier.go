package risk

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Penalty weight for the equality constraints in the optimizer
// objective. Large enough that constraint violations dominate the
// variance term at portfolio scale.
const penaltyWeight = 1000.0

// flatReturnTol decides when the return spread across assets is too
// small to sweep a frontier through.
const flatReturnTol = 1e-9

// frontierSolver solves long-only mean-variance problems against a fixed
// annualized mu/Sigma pair with a penalty-method formulation. All solves
// start from equal weights, so identical inputs give identical output.
type frontierSolver struct {
	mu    []float64
	sigma *mat.SymDense
	n     int
}

// solve minimizes w'Sigma*w subject to sum(w)=1 and, when target is
// non-nil, mu'w = *target. Weights are clamped to [0,1] inside the
// objective and renormalized after convergence.
func (s *frontierSolver) solve(target *float64) ([]float64, error) {
	n := s.n

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToUnitBox(x)

			variance := PortfolioVariance(xp, s.sigma)

			sum := 0.0
			ret := 0.0
			for i := 0; i < n; i++ {
				sum += xp[i]
				ret += s.mu[i] * xp[i]
			}

			obj := variance
			obj += penaltyWeight * (sum - 1) * (sum - 1)
			if target != nil {
				obj += penaltyWeight * (ret - *target) * (ret - *target)
			}
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectToUnitBox(x)

			sum := 0.0
			ret := 0.0
			for i := 0; i < n; i++ {
				sum += xp[i]
				ret += s.mu[i] * xp[i]
			}

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * s.sigma.At(i, j) * xp[j]
				}
				grad[i] += 2 * penaltyWeight * (sum - 1)
				if target != nil {
					grad[i] += 2 * penaltyWeight * (ret - *target) * s.mu[i]
				}
			}
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	weights := projectToUnitBox(result.X)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("optimizer produced an empty portfolio")
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

func projectToUnitBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i, v := range x {
		proj[i] = math.Max(0, math.Min(1, v))
	}
	return proj
}

// ComputeFrontier sweeps target returns from the minimum-variance
// portfolio's return up to max(mu) and solves a long-only portfolio at
// each. Degenerate problems collapse to a single feasible point rather
// than failing the section: a poorly conditioned portfolio still
// deserves metrics, correlations and contributions.
func ComputeFrontier(ctx context.Context, symbols []string, current []float64, mu []float64, sigma *mat.SymDense, cfg Config) FrontierSection {
	n := len(symbols)
	solver := &frontierSolver{mu: mu, sigma: sigma, n: n}

	currentPoint := solver.point(symbols, current, cfg.RiskFreeRate)

	if n < 2 {
		return degenerateFrontier(currentPoint, "fewer than 2 assets")
	}

	minVolWeights, err := solver.solve(nil)
	if err != nil {
		return degenerateFrontier(currentPoint, "minimum-variance solve failed: "+err.Error())
	}
	minVolPoint := solver.point(symbols, minVolWeights, cfg.RiskFreeRate)

	maxMu := mu[0]
	for _, m := range mu[1:] {
		if m > maxMu {
			maxMu = m
		}
	}
	if maxMu-minVolPoint.Return < flatReturnTol {
		section := degenerateFrontier(minVolPoint, "flat expected returns")
		section.Current = currentPoint
		return section
	}

	numPoints := cfg.FrontierPoints
	if numPoints < MinFrontierPoints {
		numPoints = DefaultFrontierPoints
	}

	points := make([]FrontierPoint, 0, numPoints)
	step := (maxMu - minVolPoint.Return) / float64(numPoints-1)
	for k := 0; k < numPoints; k++ {
		if ctx.Err() != nil {
			break
		}
		target := minVolPoint.Return + step*float64(k)
		weights, err := solver.solve(&target)
		if err != nil {
			// Targets near max(mu) can be infeasible long-only; skip them.
			continue
		}
		points = append(points, solver.point(symbols, weights, cfg.RiskFreeRate))
	}

	if len(points) == 0 {
		section := degenerateFrontier(minVolPoint, "no frontier target was solvable")
		section.Current = currentPoint
		return section
	}

	maxSharpe := bestSharpe(points, minVolPoint)
	// Sweep points stay weightless to keep report payloads small; the
	// named portfolios carry their full allocations.
	for i := range points {
		points[i].Weights = nil
	}

	return FrontierSection{
		SectionResult: SectionResult{Status: StatusOK},
		Points:        points,
		MaxSharpe:     maxSharpe,
		MinVolatility: minVolPoint,
		Current:       currentPoint,
	}
}

// point evaluates a weight vector against the solver's mu/Sigma.
func (s *frontierSolver) point(symbols []string, weights []float64, riskFree float64) FrontierPoint {
	var ret float64
	for i := range weights {
		ret += s.mu[i] * weights[i]
	}
	risk := math.Sqrt(math.Max(PortfolioVariance(weights, s.sigma), 0))

	p := FrontierPoint{
		Return:  ret,
		Risk:    risk,
		Weights: make(map[string]float64, len(symbols)),
	}
	if risk > 0 {
		p.Sharpe = DefinedRatio((ret - riskFree) / risk)
	} else {
		p.Sharpe = UndefinedRatio()
	}
	for i, sym := range symbols {
		p.Weights[sym] = weights[i]
	}
	return p
}

// bestSharpe picks the frontier point with the highest defined Sharpe.
// The frontier is re-solved at the max-Sharpe weights only implicitly:
// the sweep is dense enough that the best point is the answer.
func bestSharpe(points []FrontierPoint, fallback FrontierPoint) FrontierPoint {
	best := fallback
	found := false
	for _, p := range points {
		if !p.Sharpe.Defined {
			continue
		}
		if !found || !best.Sharpe.Defined || p.Sharpe.Value > best.Sharpe.Value {
			best = p
			found = true
		}
	}
	return best
}

func degenerateFrontier(p FrontierPoint, note string) FrontierSection {
	return FrontierSection{
		SectionResult: SectionResult{Status: StatusOK},
		Points:        []FrontierPoint{p},
		MaxSharpe:     p,
		MinVolatility: p,
		Current:       p,
		Degenerate:    true,
		Note:          note,
	}
}
