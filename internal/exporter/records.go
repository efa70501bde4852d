package exporter

import (
	"solarclean/pkg/contracts/domain"
)

// RecordColumns returns the detail table columns for a dataset, in sheet order.
func RecordColumns(ds *domain.Dataset) []string {
	cols := make([]string, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// recordValue returns the cell for column. Numeric columns come back as
// float64 so spreadsheet exports keep them numeric.
func recordValue(rec domain.CleaningRecord, column string) interface{} {
	switch column {
	case domain.ColumnDate:
		return formatDate(rec.Date)
	case domain.ColumnTracker:
		return rec.Tracker
	case domain.ColumnBox:
		return rec.Box
	case domain.ColumnInverter:
		return rec.Inverter
	case domain.ColumnPanelsCleaned:
		return rec.PanelsCleaned
	case domain.ColumnStrings:
		return rec.Strings
	case domain.ColumnDCPower:
		return rec.DCPower
	case domain.ColumnPanelsTarget:
		return rec.PanelsTarget
	}
	return rec.Extra[column]
}

// RecordRows renders records as display rows keyed by column.
func RecordRows(columns []string, records []domain.CleaningRecord) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		row := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			row[c] = recordValue(rec, c)
		}
		out = append(out, row)
	}
	return out
}
