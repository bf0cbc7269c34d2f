package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the analysis pipeline.
// Register once at startup and share across handlers and services.
type Metrics struct {
	AnalysisTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ExcludedAssets   prometheus.Counter
}

// NewMetrics creates and registers the metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production and a fresh registry
// in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysisTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "defiguard",
			Subsystem: "risk",
			Name:      "analysis_total",
			Help:      "Portfolio risk analyses by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "defiguard",
			Subsystem: "risk",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "defiguard",
			Subsystem: "risk",
			Name:      "report_cache_hits_total",
			Help:      "Risk reports served from cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "defiguard",
			Subsystem: "risk",
			Name:      "report_cache_misses_total",
			Help:      "Risk reports computed fresh.",
		}),
		ExcludedAssets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "defiguard",
			Subsystem: "risk",
			Name:      "excluded_assets_total",
			Help:      "Assets dropped from analyses for data-quality reasons.",
		}),
	}
}

// Outcome labels for AnalysisTotal and AnalysisDuration.
const (
	OutcomeOK               = "ok"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeError            = "error"
)
