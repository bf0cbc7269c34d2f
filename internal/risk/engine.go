package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"defiguard/internal/returns"
)

// Engine runs the full analysis over an aligned return set. It holds no
// mutable state between calls; one Engine serves every request
// concurrently.
type Engine struct {
	cfg       Config
	estimator ReturnEstimator
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.IsValid() {
		return nil, fmt.Errorf("invalid engine config: periods_per_year=%.0f frontier_points=%d ridge_factor=%g",
			cfg.PeriodsPerYear, cfg.FrontierPoints, cfg.RidgeFactor)
	}
	estimator, err := NewEstimator(cfg.Estimator)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		estimator: estimator,
		logger:    logger.With(slog.String("component", "risk_engine")),
		now:       time.Now,
	}, nil
}

// SetClock overrides the report timestamp source. Used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Analyze computes every report section for the given aligned returns
// and capital weights. The four sections run concurrently and degrade
// independently; an expired context marks the unfinished sections
// skipped and returns the partial report.
func (e *Engine) Analyze(ctx context.Context, aligned *returns.AlignedSeries, weights map[string]float64) (*Report, error) {
	if aligned == nil || aligned.NumAssets() == 0 {
		return nil, fmt.Errorf("no aligned assets to analyze")
	}

	start := e.now()
	w := normalizeWeights(aligned.Symbols, weights)

	sigma, err := SampleCovariance(aligned)
	if err != nil {
		return nil, fmt.Errorf("covariance: %w", err)
	}
	sigmaAnnual := Annualize(Regularize(sigma, e.cfg.RidgeFactor), e.cfg.PeriodsPerYear)
	mu := e.estimator.Estimate(aligned, e.cfg.PeriodsPerYear)

	report := &Report{
		GeneratedAt: start,
		WindowDays:  aligned.WindowDays,
		Periods:     aligned.Periods,
		Symbols:     aligned.Symbols,
		Weights:     weightMap(aligned.Symbols, w),
		Excluded:    aligned.Excluded,
	}
	if report.Excluded == nil {
		report.Excluded = []returns.Exclusion{}
	}

	e.logger.InfoContext(ctx, "running risk analysis",
		"assets", aligned.NumAssets(),
		"periods", aligned.Periods,
		"estimator", e.estimator.Name(),
	)

	g := new(errgroup.Group)

	g.Go(func() error {
		if ctx.Err() != nil {
			report.MetricsState = skippedSection(ctx)
			return nil
		}
		series := returns.PortfolioReturns(aligned, report.Weights)
		report.Metrics = ComputeMetrics(series, e.cfg)
		report.MetricsState = SectionResult{Status: StatusOK}
		return nil
	})

	g.Go(func() error {
		if ctx.Err() != nil {
			report.Correlation.SectionResult = skippedSection(ctx)
			return nil
		}
		report.Correlation = ComputeCorrelation(aligned, w, sigmaAnnual)
		return nil
	})

	g.Go(func() error {
		if ctx.Err() != nil {
			report.Contribution.SectionResult = skippedSection(ctx)
			return nil
		}
		report.Contribution = DecomposeRisk(aligned.Symbols, w, sigmaAnnual)
		return nil
	})

	g.Go(func() error {
		if ctx.Err() != nil {
			report.Frontier.SectionResult = skippedSection(ctx)
			return nil
		}
		report.Frontier = ComputeFrontier(ctx, aligned.Symbols, w, mu, sigmaAnnual, e.cfg)
		return nil
	})

	// Section goroutines never return errors; degradation is recorded
	// per section instead of aborting the siblings.
	_ = g.Wait()

	e.logger.InfoContext(ctx, "risk analysis complete",
		"elapsed", time.Since(start).String(),
		"frontier_points", len(report.Frontier.Points),
		"frontier_degenerate", report.Frontier.Degenerate,
	)
	return report, nil
}

func skippedSection(ctx context.Context) SectionResult {
	return SectionResult{Status: StatusSkipped, Error: ctx.Err().Error()}
}

// normalizeWeights projects the caller's weight map onto the surviving
// symbols and rescales to sum 1. Excluded assets simply drop out of the
// portfolio; an all-zero map degrades to equal weights.
func normalizeWeights(symbols []string, weights map[string]float64) []float64 {
	w := make([]float64, len(symbols))
	sum := 0.0
	for i, sym := range symbols {
		v := weights[sym]
		if v < 0 {
			v = 0
		}
		w[i] = v
		sum += v
	}
	if sum <= 0 {
		for i := range w {
			w[i] = 1 / float64(len(symbols))
		}
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func weightMap(symbols []string, w []float64) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		out[sym] = w[i]
	}
	return out
}
