package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"defiguard/internal/config"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	cfg       config.AnalysisConfig
	analysis  *AnalysisService
	startTime time.Time
	logger    *slog.Logger
	now       func() time.Time
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Analysis  map[string]interface{} `json:"analysis,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version, buildTime string, cfg config.AnalysisConfig, analysis *AnalysisService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		cfg:       cfg,
		analysis:  analysis,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
		now:       time.Now,
	}
}

// Check returns liveness plus the effective analysis configuration so
// operators can confirm what a deployment is actually running with.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	now := s.now()

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: now,
		Version:   s.version,
		Uptime:    now.Sub(s.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
		Analysis: map[string]interface{}{
			"window_days":      s.cfg.WindowDays,
			"periods_per_year": s.cfg.PeriodsPerYear,
			"risk_free_rate":   s.cfg.RiskFreeRate,
			"frontier_points":  s.cfg.FrontierPoints,
			"estimator":        s.cfg.Estimator,
			"cached_reports":   s.analysis.CacheLen(),
		},
	}

	s.logger.DebugContext(ctx, "health check served",
		slog.String("status", status.Status),
	)

	return status
}
