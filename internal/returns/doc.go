// Package returns converts raw per-asset price histories into aligned
// periodic return series ready for risk analysis.
//
// # Architecture
//
// The package is organized as:
//
//	types.go   - price points, histories, aligned series, exclusions
//	builder.go - windowing, daily resampling, alignment, filtering
//
// # Semantics
//
// Prices are resampled to one close per calendar day (UTC); when an asset
// has several observations on a day the latest wins. The common set of
// trading days is the union of all surviving assets' days inside the
// trailing window. An asset is excluded, never interpolated, when it has
// fewer than MinObservations closes or misses more than MaxMissingFraction
// of the common days. Returns are simple: r_t = p_t/p_{t-1} - 1.
//
// Fewer than two surviving assets yields *InsufficientDataError carrying
// the full exclusion list.
package returns
