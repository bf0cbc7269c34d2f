// Package exporter renders finished risk reports to files.
//
// Two formats are supported:
//
// ExcelExporter: a multi-sheet XLSX workbook (summary, correlation
// matrix, risk contributions, efficient frontier, exclusions) suitable
// for download from the API or the offline CLI.
//
// CSVWriter: flat CSV extracts of the contribution and frontier tables,
// with UTF-8 BOM for Excel compatibility.
package exporter
