package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"defiguard/internal/risk"
)

// Sheet names in the workbook, in tab order.
const (
	sheetSummary      = "Summary"
	sheetCorrelation  = "Correlation"
	sheetContribution = "Risk Contribution"
	sheetFrontier     = "Frontier"
	sheetExclusions   = "Exclusions"
)

// ExcelExporter renders a risk report as a multi-sheet XLSX workbook.
type ExcelExporter struct {
	logger *slog.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *slog.Logger) *ExcelExporter {
	return &ExcelExporter{
		logger: logger.With(slog.String("component", "excel_exporter")),
	}
}

// Write renders the report and streams the workbook to w.
func (e *ExcelExporter) Write(w io.Writer, report *risk.Report) error {
	if report == nil {
		return fmt.Errorf("excel export: nil report")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("excel export: create style: %w", err)
	}

	f.SetSheetName("Sheet1", sheetSummary)
	if err := e.writeSummary(f, headerStyle, report); err != nil {
		return err
	}
	if err := e.writeCorrelation(f, headerStyle, report); err != nil {
		return err
	}
	if err := e.writeContribution(f, headerStyle, report); err != nil {
		return err
	}
	if err := e.writeFrontier(f, headerStyle, report); err != nil {
		return err
	}
	if err := e.writeExclusions(f, headerStyle, report); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("excel export: write workbook: %w", err)
	}

	e.logger.Info("report exported",
		slog.Int("assets", len(report.Symbols)),
		slog.Int("frontier_points", len(report.Frontier.Points)),
	)
	return nil
}

func (e *ExcelExporter) writeSummary(f *excelize.File, headerStyle int, report *risk.Report) error {
	m := report.Metrics
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		{"Window (days)", report.WindowDays},
		{"Daily Periods", report.Periods},
		{"Assets", len(report.Symbols)},
		{"Annualized Return", formatPercent(m.AnnualizedReturn)},
		{"Annualized Volatility", formatPercent(m.AnnualizedVolatility)},
		{"Sharpe Ratio", formatRatio(m.Sharpe)},
		{"Sortino Ratio", formatRatio(m.Sortino)},
		{"Calmar Ratio", formatRatio(m.Calmar)},
		{"VaR 95% (daily)", formatPercent(m.VaR95)},
		{"CVaR 95% (daily)", formatPercent(m.CVaR95)},
		{"Max Drawdown", formatPercent(m.MaxDrawdown)},
		{"Diversification Ratio", formatFloat(report.Correlation.Summary.DiversificationRatio)},
		{"Risk-Free Rate", formatPercent(m.RiskFreeRate)},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("excel export: summary row %d: %w", i, err)
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("excel export: summary row %d: %w", i, err)
		}
	}

	f.SetCellStyle(sheetSummary, "A1", "B1", headerStyle)
	f.SetColWidth(sheetSummary, "A", "A", 24)
	f.SetColWidth(sheetSummary, "B", "B", 24)
	return nil
}

func (e *ExcelExporter) writeCorrelation(f *excelize.File, headerStyle int, report *risk.Report) error {
	if _, err := f.NewSheet(sheetCorrelation); err != nil {
		return fmt.Errorf("excel export: correlation sheet: %w", err)
	}

	assets := report.Correlation.Assets
	lookup := make(map[[2]string]float64, len(report.Correlation.Entries))
	for _, entry := range report.Correlation.Entries {
		lookup[[2]string{entry.Asset1, entry.Asset2}] = entry.Correlation
	}

	header := make([]interface{}, 0, len(assets)+1)
	header = append(header, "")
	for _, a := range assets {
		header = append(header, a)
	}
	if err := f.SetSheetRow(sheetCorrelation, "A1", &header); err != nil {
		return fmt.Errorf("excel export: correlation header: %w", err)
	}

	for i, a := range assets {
		row := make([]interface{}, 0, len(assets)+1)
		row = append(row, a)
		for _, b := range assets {
			row = append(row, formatFloat(lookup[[2]string{a, b}]))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("excel export: correlation row %d: %w", i, err)
		}
		if err := f.SetSheetRow(sheetCorrelation, cell, &row); err != nil {
			return fmt.Errorf("excel export: correlation row %d: %w", i, err)
		}
	}

	end, _ := excelize.CoordinatesToCellName(len(assets)+1, 1)
	f.SetCellStyle(sheetCorrelation, "A1", end, headerStyle)

	summaryRow := len(assets) + 3
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	summary := []interface{}{
		"Average", formatFloat(report.Correlation.Summary.AverageCorrelation),
		"Max", formatFloat(report.Correlation.Summary.MaxCorrelation),
		"Min", formatFloat(report.Correlation.Summary.MinCorrelation),
	}
	if err := f.SetSheetRow(sheetCorrelation, cell, &summary); err != nil {
		return fmt.Errorf("excel export: correlation summary: %w", err)
	}
	return nil
}

func (e *ExcelExporter) writeContribution(f *excelize.File, headerStyle int, report *risk.Report) error {
	if _, err := f.NewSheet(sheetContribution); err != nil {
		return fmt.Errorf("excel export: contribution sheet: %w", err)
	}

	header := []interface{}{"Asset", "Weight %", "Risk Contribution", "Risk Share %"}
	if err := f.SetSheetRow(sheetContribution, "A1", &header); err != nil {
		return fmt.Errorf("excel export: contribution header: %w", err)
	}

	for i, c := range report.Contribution.Contributions {
		row := []interface{}{
			c.Symbol,
			formatFloat(c.WeightPercent),
			formatFloat(c.Contribution),
			formatFloat(c.SharePercent),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("excel export: contribution row %d: %w", i, err)
		}
		if err := f.SetSheetRow(sheetContribution, cell, &row); err != nil {
			return fmt.Errorf("excel export: contribution row %d: %w", i, err)
		}
	}

	totalRow := len(report.Contribution.Contributions) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	total := []interface{}{"Total Volatility", "", formatFloat(report.Contribution.TotalVolatility), ""}
	if err := f.SetSheetRow(sheetContribution, cell, &total); err != nil {
		return fmt.Errorf("excel export: contribution total: %w", err)
	}

	f.SetCellStyle(sheetContribution, "A1", "D1", headerStyle)
	f.SetColWidth(sheetContribution, "A", "D", 18)
	return nil
}

func (e *ExcelExporter) writeFrontier(f *excelize.File, headerStyle int, report *risk.Report) error {
	if _, err := f.NewSheet(sheetFrontier); err != nil {
		return fmt.Errorf("excel export: frontier sheet: %w", err)
	}

	header := []interface{}{"Portfolio", "Return", "Risk", "Sharpe"}
	if err := f.SetSheetRow(sheetFrontier, "A1", &header); err != nil {
		return fmt.Errorf("excel export: frontier header: %w", err)
	}

	named := []struct {
		label string
		point risk.FrontierPoint
	}{
		{"Current", report.Frontier.Current},
		{"Min Volatility", report.Frontier.MinVolatility},
		{"Max Sharpe", report.Frontier.MaxSharpe},
	}

	rowNum := 2
	for _, n := range named {
		row := []interface{}{
			n.label,
			formatPercent(n.point.Return),
			formatPercent(n.point.Risk),
			formatRatio(n.point.Sharpe),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(sheetFrontier, cell, &row); err != nil {
			return fmt.Errorf("excel export: frontier named row: %w", err)
		}
		rowNum++
	}

	rowNum++
	for i, p := range report.Frontier.Points {
		row := []interface{}{
			fmt.Sprintf("Point %d", i+1),
			formatPercent(p.Return),
			formatPercent(p.Risk),
			formatRatio(p.Sharpe),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(sheetFrontier, cell, &row); err != nil {
			return fmt.Errorf("excel export: frontier point %d: %w", i, err)
		}
		rowNum++
	}

	if report.Frontier.Degenerate {
		cell, _ := excelize.CoordinatesToCellName(1, rowNum+1)
		note := []interface{}{"Note", report.Frontier.Note}
		if err := f.SetSheetRow(sheetFrontier, cell, &note); err != nil {
			return fmt.Errorf("excel export: frontier note: %w", err)
		}
	}

	f.SetCellStyle(sheetFrontier, "A1", "D1", headerStyle)
	f.SetColWidth(sheetFrontier, "A", "D", 16)
	return nil
}

func (e *ExcelExporter) writeExclusions(f *excelize.File, headerStyle int, report *risk.Report) error {
	if _, err := f.NewSheet(sheetExclusions); err != nil {
		return fmt.Errorf("excel export: exclusions sheet: %w", err)
	}

	header := []interface{}{"Asset", "Reason"}
	if err := f.SetSheetRow(sheetExclusions, "A1", &header); err != nil {
		return fmt.Errorf("excel export: exclusions header: %w", err)
	}

	for i, ex := range report.Excluded {
		row := []interface{}{ex.Symbol, ex.Reason}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetExclusions, cell, &row); err != nil {
			return fmt.Errorf("excel export: exclusion row %d: %w", i, err)
		}
	}

	f.SetCellStyle(sheetExclusions, "A1", "B1", headerStyle)
	f.SetColWidth(sheetExclusions, "A", "B", 22)
	return nil
}
