package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"defiguard/internal/risk"
)

// CSVWriter provides CSV export functionality rooted at a base directory
type CSVWriter struct {
	baseDir string
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(baseDir string) *CSVWriter {
	return &CSVWriter{baseDir: baseDir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}

// WriteContributions writes the Euler risk decomposition as CSV
func (w *CSVWriter) WriteContributions(filePath string, report *risk.Report) error {
	records := make([][]string, 0, len(report.Contribution.Contributions))
	for _, c := range report.Contribution.Contributions {
		records = append(records, []string{
			c.Symbol,
			formatFloat(c.WeightPercent),
			formatFloat(c.Contribution),
			formatFloat(c.SharePercent),
		})
	}

	return w.WriteCSV(filePath, WriteOptions{
		Headers:   []string{"asset", "weight_percent", "risk_contribution", "risk_share_percent"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteFrontier writes the efficient frontier sweep as CSV
func (w *CSVWriter) WriteFrontier(filePath string, report *risk.Report) error {
	records := make([][]string, 0, len(report.Frontier.Points))
	for _, p := range report.Frontier.Points {
		records = append(records, []string{
			formatFloat(p.Return),
			formatFloat(p.Risk),
			formatRatio(p.Sharpe),
		})
	}

	return w.WriteCSV(filePath, WriteOptions{
		Headers:   []string{"annual_return", "annual_risk", "sharpe"},
		Records:   records,
		BOMPrefix: true,
	})
}

// resolvePath roots relative paths at the writer's base directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.baseDir == "" {
		return filePath
	}
	return filepath.Join(w.baseDir, filePath)
}
