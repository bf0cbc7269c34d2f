package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"defiguard/internal/exporter"
	"defiguard/internal/returns"
	"defiguard/internal/risk"
)

func main() {
	pricesPath := flag.String("prices", "", "price history CSV (symbol,date,price)")
	holdingsPath := flag.String("holdings", "", "holdings CSV (symbol,usd_value)")
	outputDir := flag.String("out", ".", "output directory for report files")
	window := flag.Int("window", returns.DefaultWindowDays, "trailing window in calendar days")
	estimator := flag.String("estimator", risk.DefaultEstimator, "expected-return estimator: historical, ewma or shrinkage")
	format := flag.String("format", "json", "output format: json, xlsx or csv")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *pricesPath == "" || *holdingsPath == "" {
		slog.Error("both -prices and -holdings are required")
		flag.Usage()
		os.Exit(1)
	}

	histories, err := loadPriceHistories(*pricesPath)
	if err != nil {
		slog.Error("failed to load price histories", "error", err, "path", *pricesPath)
		os.Exit(1)
	}
	slog.Info("loaded price histories", "assets", len(histories))

	holdings, err := loadHoldings(*holdingsPath)
	if err != nil {
		slog.Error("failed to load holdings", "error", err, "path", *holdingsPath)
		os.Exit(1)
	}

	weights := normalizeHoldings(holdings)
	if len(weights) == 0 {
		slog.Error("no positive holdings found", "path", *holdingsPath)
		os.Exit(1)
	}

	builderCfg := returns.DefaultConfig()
	builderCfg.WindowDays = *window
	builder, err := returns.NewBuilder(builderCfg, logger)
	if err != nil {
		slog.Error("invalid builder configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	aligned, err := builder.Build(ctx, histories)
	if err != nil {
		slog.Error("failed to build return series", "error", err)
		os.Exit(1)
	}
	for _, ex := range aligned.Excluded {
		slog.Warn("asset excluded", "symbol", ex.Symbol, "reason", ex.Reason)
	}

	engineCfg := risk.DefaultConfig()
	engineCfg.Estimator = *estimator
	engine, err := risk.NewEngine(engineCfg, logger)
	if err != nil {
		slog.Error("invalid engine configuration", "error", err)
		os.Exit(1)
	}

	report, err := engine.Analyze(ctx, aligned, weights)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if err := writeReport(report, *outputDir, *format, logger); err != nil {
		slog.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	slog.Info("report written",
		"dir", *outputDir,
		"format", *format,
		"assets", len(report.Symbols),
		"excluded", len(report.Excluded))
}

// loadPriceHistories reads a long-format CSV with columns symbol,date,price.
// Dates may be RFC3339 or plain 2006-01-02.
func loadPriceHistories(path string) ([]returns.PriceHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	bySymbol := make(map[string][]returns.PricePoint)
	for i, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("%s row %d: want 3 columns, got %d", path, i+2, len(rec))
		}
		symbol := strings.ToUpper(strings.TrimSpace(rec[0]))

		ts, err := parseTimestamp(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad price: %w", path, i+2, err)
		}

		bySymbol[symbol] = append(bySymbol[symbol], returns.PricePoint{Timestamp: ts, Price: price})
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	histories := make([]returns.PriceHistory, 0, len(symbols))
	for _, sym := range symbols {
		points := bySymbol[sym]
		sort.Slice(points, func(i, j int) bool {
			return points[i].Timestamp.Before(points[j].Timestamp)
		})
		histories = append(histories, returns.PriceHistory{Symbol: sym, Points: points})
	}
	return histories, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return ts, nil
}

// loadHoldings reads a CSV with columns symbol,usd_value.
func loadHoldings(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	holdings := make(map[string]float64)
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s row %d: want 2 columns, got %d", path, i+2, len(rec))
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad value: %w", path, i+2, err)
		}
		holdings[strings.ToUpper(strings.TrimSpace(rec[0]))] = value
	}
	return holdings, nil
}

// normalizeHoldings converts USD values into weights summing to one.
func normalizeHoldings(holdings map[string]float64) map[string]float64 {
	total := 0.0
	for _, v := range holdings {
		if v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return nil
	}

	weights := make(map[string]float64, len(holdings))
	for sym, v := range holdings {
		if v > 0 {
			weights[sym] = v / total
		}
	}
	return weights
}

func writeReport(report *risk.Report, dir, format string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "risk_report.json"), data, 0644)

	case "xlsx":
		f, err := os.Create(filepath.Join(dir, "risk_report.xlsx"))
		if err != nil {
			return err
		}
		defer f.Close()
		return exporter.NewExcelExporter(logger).Write(f, report)

	case "csv":
		w := exporter.NewCSVWriter(dir)
		if err := w.WriteContributions("risk_contributions.csv", report); err != nil {
			return err
		}
		return w.WriteFrontier("efficient_frontier.csv", report)

	default:
		return fmt.Errorf("unknown format %q (want json, xlsx or csv)", format)
	}
}
