package exporter

import (
	"fmt"

	"defiguard/internal/risk"
)

// formatFloat formats a float for report cells with 4 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.4f", f)
}

// formatPercent renders a fraction as a percentage with 2 decimal places
func formatPercent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// formatRatio renders a possibly-undefined ratio; undefined prints "n/a"
func formatRatio(r risk.Ratio) string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", r.Value)
}
