// Package dataprocessing turns daily panel-cleaning workbooks into progress
// reports. It covers the whole path from a raw workbook to the numbers the
// dashboard renders.
//
// # Architecture
//
//  1. Parser: reads xlsx/xlsm (excelize) and legacy xls (extrame/xls) into raw text tables
//  2. SheetsReader: reads the same layout from a Google spreadsheet
//  3. Resolver: maps variant column names onto the canonical schema
//  4. Loader: validates the schema and builds an immutable domain.Dataset
//  5. Filter, progress aggregator and Summarizer: re-aggregate a selection on demand
//
// # Data Flow
//
//	Workbook → ResolveColumns → Loader → Dataset → ApplyFilter → CalculateProgress → ProgressReport
//
// # Column resolution
//
// The identifier column is accepted under the names in TrackerColumnAliases,
// in priority order. The string-count column is the first whose name
// contains "string" in any case. Only the first MaxColumns columns of the
// daily sheet are read.
//
// # Errors
//
// Structural problems (missing sheet, missing required column) are returned
// as *SchemaError and abort the load. Rows without a date or tracker are
// dropped and reported as a single data-quality warning. A filter selection
// matching nothing produces an empty-result warning instead of an error.
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger)
//	res, err := loader.LoadWorkbook(file, "limpieza_en_seco_Sauce.xlsx")
//	if err != nil {
//	    var schemaErr *dataprocessing.SchemaError
//	    if errors.As(err, &schemaErr) { ... }
//	}
//	summarizer := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig())
//	report, err := summarizer.BuildReport(ctx, res.Dataset, domain.Filter{Tracker: "T1"}, "")
package dataprocessing
