package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"defiguard/internal/cache"
	"defiguard/internal/config"
	"defiguard/internal/infrastructure"
	"defiguard/internal/returns"
	"defiguard/internal/risk"
)

// AnalyzeRequest is the input for a portfolio risk analysis.
// Balances are raw USD values per symbol; weights are derived here so
// callers never have to pre-normalize.
type AnalyzeRequest struct {
	PortfolioID string                  `json:"portfolio_id" validate:"required,min=1,max=64"`
	Balances    map[string]float64      `json:"balances" validate:"required,min=1"`
	Histories   []returns.PriceHistory  `json:"histories" validate:"required,min=1"`
	WindowDays  int                     `json:"window_days,omitempty" validate:"omitempty,gte=30,lte=1095"`
	Estimator   string                  `json:"estimator,omitempty" validate:"estimator"`
}

// AnalysisService orchestrates the return builder and risk engine and
// caches finished reports.
type AnalysisService struct {
	cfg     config.AnalysisConfig
	logger  *slog.Logger
	metrics *infrastructure.Metrics
	reports *cache.Cache[*risk.Report]
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(cfg config.AnalysisConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "analysis_service")),
		metrics: metrics,
		reports: cache.New[*risk.Report](cfg.CacheTTL),
	}
}

// AnalyzePortfolio derives weights from USD balances, aligns the price
// histories and runs the full risk analysis. Identical requests inside
// the cache TTL are served from memory.
func (s *AnalysisService) AnalyzePortfolio(ctx context.Context, req *AnalyzeRequest) (*risk.Report, error) {
	start := time.Now()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	windowDays := req.WindowDays
	if windowDays == 0 {
		windowDays = s.cfg.WindowDays
	}

	weights := deriveWeights(req.Balances)
	if len(weights) == 0 {
		s.observe(infrastructure.OutcomeError, start)
		return nil, fmt.Errorf("analyze portfolio %s: no positive balances", req.PortfolioID)
	}

	key := cache.ReportKey(req.PortfolioID, windowDays, weights)
	if report, ok := s.reports.Get(key); ok {
		s.metrics.CacheHits.Inc()
		s.logger.InfoContext(ctx, "serving cached report",
			slog.String("portfolio_id", req.PortfolioID),
			slog.String("cache_key", key),
		)
		return report, nil
	}
	s.metrics.CacheMisses.Inc()

	builderCfg := returns.Config{
		WindowDays:         windowDays,
		MinObservations:    s.cfg.MinObservations,
		MaxMissingFraction: s.cfg.MaxMissingFraction,
	}
	builder, err := returns.NewBuilder(builderCfg, s.logger)
	if err != nil {
		s.observe(infrastructure.OutcomeError, start)
		return nil, fmt.Errorf("analyze portfolio %s: %w", req.PortfolioID, err)
	}

	aligned, err := builder.Build(ctx, req.Histories)
	if err != nil {
		outcome := infrastructure.OutcomeError
		if _, ok := err.(*returns.InsufficientDataError); ok {
			outcome = infrastructure.OutcomeInsufficientData
		}
		s.observe(outcome, start)
		return nil, fmt.Errorf("analyze portfolio %s: %w", req.PortfolioID, err)
	}
	s.metrics.ExcludedAssets.Add(float64(len(aligned.Excluded)))

	engineCfg := risk.Config{
		PeriodsPerYear: s.cfg.PeriodsPerYear,
		RiskFreeRate:   s.cfg.RiskFreeRate,
		FrontierPoints: s.cfg.FrontierPoints,
		RidgeFactor:    s.cfg.RidgeFactor,
		Estimator:      s.cfg.Estimator,
	}
	if req.Estimator != "" {
		engineCfg.Estimator = req.Estimator
	}

	engine, err := risk.NewEngine(engineCfg, s.logger)
	if err != nil {
		s.observe(infrastructure.OutcomeError, start)
		return nil, fmt.Errorf("analyze portfolio %s: %w", req.PortfolioID, err)
	}

	report, err := engine.Analyze(ctx, aligned, weights)
	if err != nil {
		s.observe(infrastructure.OutcomeError, start)
		return nil, fmt.Errorf("analyze portfolio %s: %w", req.PortfolioID, err)
	}

	s.reports.Set(key, report)
	s.observe(infrastructure.OutcomeOK, start)

	s.logger.InfoContext(ctx, "analysis completed",
		slog.String("portfolio_id", req.PortfolioID),
		slog.Int("assets", len(report.Symbols)),
		slog.Int("excluded", len(report.Excluded)),
		slog.Duration("duration", time.Since(start)),
	)

	return report, nil
}

// CacheLen reports the number of live cached reports.
func (s *AnalysisService) CacheLen() int {
	return s.reports.Len()
}

func (s *AnalysisService) observe(outcome string, start time.Time) {
	s.metrics.AnalysisTotal.WithLabelValues(outcome).Inc()
	s.metrics.AnalysisDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// deriveWeights converts USD balances into portfolio weights summing to
// one. Non-positive balances are dropped.
func deriveWeights(balances map[string]float64) map[string]float64 {
	total := 0.0
	symbols := make([]string, 0, len(balances))
	for sym, bal := range balances {
		if bal > 0 {
			total += bal
			symbols = append(symbols, sym)
		}
	}
	if total <= 0 {
		return nil
	}
	sort.Strings(symbols)

	weights := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		weights[sym] = balances[sym] / total
	}
	return weights
}
