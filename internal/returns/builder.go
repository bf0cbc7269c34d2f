package returns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Builder turns raw per-asset price histories into aligned daily return
// series. It is the shared input stage for every analytical section.
type Builder struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a builder with the given configuration.
func NewBuilder(cfg Config, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.IsValid() {
		return nil, fmt.Errorf("invalid builder config: window=%d min_obs=%d max_missing=%.2f",
			cfg.WindowDays, cfg.MinObservations, cfg.MaxMissingFraction)
	}
	return &Builder{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "return_builder")),
		now:    time.Now,
	}, nil
}

// SetClock overrides the time source. Used by tests to pin the window.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// Build resamples every history to daily closes, intersects them onto the
// union of observed days inside the lookback window, and converts prices
// to simple percentage returns. Assets with too little or too sparse data
// are excluded with a recorded reason; they are never interpolated.
func (b *Builder) Build(ctx context.Context, histories []PriceHistory) (*AlignedSeries, error) {
	cutoff := b.now().AddDate(0, 0, -b.cfg.WindowDays)

	b.logger.InfoContext(ctx, "building aligned return series",
		"assets", len(histories),
		"window_days", b.cfg.WindowDays,
	)

	type daily struct {
		closes map[string]float64 // keyed by UTC day, last observation wins
	}

	perAsset := make(map[string]daily, len(histories))
	var excluded []Exclusion
	seen := make(map[string]bool, len(histories))

	for _, h := range histories {
		if seen[h.Symbol] {
			continue
		}
		seen[h.Symbol] = true

		if !h.IsOrdered() {
			excluded = append(excluded, Exclusion{Symbol: h.Symbol, Reason: ReasonInvalidSeries})
			b.logger.WarnContext(ctx, "excluding asset with unordered price series", "symbol", h.Symbol)
			continue
		}

		closes := make(map[string]float64)
		valid := true
		for _, p := range h.Points {
			if p.Timestamp.Before(cutoff) {
				continue
			}
			if !p.IsValid() {
				valid = false
				break
			}
			closes[dayKey(p.Timestamp)] = p.Price
		}
		if !valid {
			excluded = append(excluded, Exclusion{Symbol: h.Symbol, Reason: ReasonInvalidSeries})
			b.logger.WarnContext(ctx, "excluding asset with non-positive prices", "symbol", h.Symbol)
			continue
		}
		if len(closes) < b.cfg.MinObservations {
			excluded = append(excluded, Exclusion{Symbol: h.Symbol, Reason: ReasonInsufficientHistory})
			b.logger.InfoContext(ctx, "excluding asset with short history",
				"symbol", h.Symbol,
				"observations", len(closes),
				"required", b.cfg.MinObservations,
			)
			continue
		}
		perAsset[h.Symbol] = daily{closes: closes}
	}

	// Union of trading days across the candidates defines the grid.
	daySet := make(map[string]bool)
	for _, d := range perAsset {
		for day := range d.closes {
			daySet[day] = true
		}
	}
	days := make([]string, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Strings(days)

	// Drop assets missing more than the allowed fraction of the grid.
	symbols := make([]string, 0, len(perAsset))
	for sym := range perAsset {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	kept := symbols[:0]
	for _, sym := range symbols {
		missing := 0
		for _, day := range days {
			if _, ok := perAsset[sym].closes[day]; !ok {
				missing++
			}
		}
		frac := 0.0
		if len(days) > 0 {
			frac = float64(missing) / float64(len(days))
		}
		if frac > b.cfg.MaxMissingFraction {
			excluded = append(excluded, Exclusion{Symbol: sym, Reason: ReasonMissingData})
			b.logger.InfoContext(ctx, "excluding sparse asset",
				"symbol", sym,
				"missing_fraction", fmt.Sprintf("%.2f", frac),
				"max_allowed", b.cfg.MaxMissingFraction,
			)
			continue
		}
		kept = append(kept, sym)
	}
	symbols = kept

	// Intersect to days where every kept asset has a close.
	common := days[:0]
	for _, day := range days {
		all := true
		for _, sym := range symbols {
			if _, ok := perAsset[sym].closes[day]; !ok {
				all = false
				break
			}
		}
		if all {
			common = append(common, day)
		}
	}

	// The intersection can shrink below the observation floor even when
	// every asset individually cleared it.
	if len(common) < b.cfg.MinObservations {
		for _, sym := range symbols {
			excluded = append(excluded, Exclusion{Symbol: sym, Reason: ReasonInsufficientHistory})
		}
		symbols = nil
	}

	if len(symbols) < 2 {
		b.logger.WarnContext(ctx, "insufficient assets after filtering",
			"remaining", len(symbols),
			"excluded", len(excluded),
		)
		return nil, &InsufficientDataError{Remaining: len(symbols), Excluded: excluded}
	}

	dates := make([]time.Time, len(common))
	for i, day := range common {
		dates[i], _ = time.Parse("2006-01-02", day)
	}

	series := make(map[string][]float64, len(symbols))
	for _, sym := range symbols {
		closes := perAsset[sym].closes
		rets := make([]float64, len(common)-1)
		for i := 1; i < len(common); i++ {
			prev := closes[common[i-1]]
			cur := closes[common[i]]
			rets[i-1] = cur/prev - 1
		}
		series[sym] = rets
	}

	b.logger.InfoContext(ctx, "aligned return series ready",
		"included", len(symbols),
		"excluded", len(excluded),
		"periods", len(common),
	)

	return &AlignedSeries{
		Symbols:    symbols,
		Series:     series,
		Dates:      dates,
		Periods:    len(common),
		Excluded:   excluded,
		WindowDays: b.cfg.WindowDays,
	}, nil
}

// PortfolioReturns collapses the aligned per-asset series into a single
// weighted return series. Weights are keyed by symbol and assumed to sum
// to 1 over the included assets.
func PortfolioReturns(aligned *AlignedSeries, weights map[string]float64) []float64 {
	n := aligned.NumReturns()
	out := make([]float64, n)
	for _, sym := range aligned.Symbols {
		w := weights[sym]
		if w == 0 {
			continue
		}
		rets := aligned.Series[sym]
		for t := 0; t < n; t++ {
			out[t] += w * rets[t]
		}
	}
	return out
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
