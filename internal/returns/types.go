package returns

import (
	"time"
)

// PricePoint is a single observed price for an asset.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// IsValid checks that the observation is usable.
func (p PricePoint) IsValid() bool {
	return !p.Timestamp.IsZero() && p.Price > 0
}

// PriceHistory is the time-ordered price series for one asset.
// Timestamps must be strictly increasing with no duplicates.
type PriceHistory struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// IsOrdered reports whether timestamps are strictly increasing.
func (h PriceHistory) IsOrdered() bool {
	for i := 1; i < len(h.Points); i++ {
		if !h.Points[i].Timestamp.After(h.Points[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// Exclusion records an asset dropped from the analysis and why.
type Exclusion struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Exclusion reason strings surfaced to callers.
const (
	ReasonInsufficientHistory = "insufficient history"
	ReasonMissingData         = "missing data"
	ReasonInvalidSeries       = "invalid price series"
)

// AlignedSeries holds the periodic return series for every asset that
// survived filtering, aligned onto a common set of daily periods.
// Symbols is sorted; Series[Symbols[i]] has exactly Periods-1 returns.
type AlignedSeries struct {
	Symbols    []string             `json:"symbols"`
	Series     map[string][]float64 `json:"series"`
	Dates      []time.Time          `json:"dates"`
	Periods    int                  `json:"periods"`
	Excluded   []Exclusion          `json:"excluded"`
	WindowDays int                  `json:"window_days"`
}

// NumAssets returns the number of included assets.
func (a *AlignedSeries) NumAssets() int {
	return len(a.Symbols)
}

// NumReturns returns the length of each per-asset return series.
func (a *AlignedSeries) NumReturns() int {
	if a.Periods < 1 {
		return 0
	}
	return a.Periods - 1
}

// Matrix returns the returns laid out row-major as observations x assets,
// in Symbols order.
func (a *AlignedSeries) Matrix() [][]float64 {
	n := a.NumReturns()
	out := make([][]float64, n)
	for t := 0; t < n; t++ {
		row := make([]float64, len(a.Symbols))
		for j, sym := range a.Symbols {
			row[j] = a.Series[sym][t]
		}
		out[t] = row
	}
	return out
}

// Config controls alignment and filtering.
type Config struct {
	// WindowDays is the trailing calendar lookback. Valid range 30-1095.
	WindowDays int
	// MinObservations is the minimum daily closes an asset needs to
	// participate. Assets below it are excluded, not interpolated.
	MinObservations int
	// MaxMissingFraction is the largest share of the window's common
	// trading days an asset may miss before being dropped.
	MaxMissingFraction float64
}

// Defaults for the builder configuration.
const (
	DefaultWindowDays         = 365
	MinWindowDays             = 30
	MaxWindowDays             = 1095
	DefaultMinObservations    = 30
	DefaultMaxMissingFraction = 0.20
)

// DefaultConfig returns the standard builder configuration.
func DefaultConfig() Config {
	return Config{
		WindowDays:         DefaultWindowDays,
		MinObservations:    DefaultMinObservations,
		MaxMissingFraction: DefaultMaxMissingFraction,
	}
}

// IsValid checks the configuration ranges.
func (c Config) IsValid() bool {
	return c.WindowDays >= MinWindowDays && c.WindowDays <= MaxWindowDays &&
		c.MinObservations >= 2 &&
		c.MaxMissingFraction >= 0 && c.MaxMissingFraction < 1
}

// InsufficientDataError is returned when fewer than two assets survive
// filtering. It carries the exclusion list so callers can explain the
// failure instead of crashing.
type InsufficientDataError struct {
	Remaining int
	Excluded  []Exclusion
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	if e.Remaining == 1 {
		return "insufficient data: only 1 asset qualified for analysis"
	}
	return "insufficient data: no assets qualified for analysis"
}
