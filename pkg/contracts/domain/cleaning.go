package domain

import (
	"time"
)

// Canonical column names of the daily cleaning sheet. Source workbooks are
// produced by field crews in Spanish, so the canonical schema keeps their names.
const (
	ColumnDate          = "Fecha"
	ColumnTracker       = "Tracker"
	ColumnBox           = "CBOX"
	ColumnInverter      = "Inversor"
	ColumnPanelsCleaned = "Paneles Limpiados"
	ColumnStrings       = "Strings"
	ColumnDCPower       = "Potencia DC Asociada"
	ColumnPanelsTarget  = "Paneles Acumulados"
)

// Sheet names inside an uploaded workbook.
const (
	SheetDailyRecords = "REGISTRO_DIARIO"
	SheetReference    = "BASE_DATOS"
)

// CleaningRecord is one row of the REGISTRO_DIARIO sheet after column
// resolution. Optional numeric columns are zero when absent; Dataset.HasColumn
// tells whether the source carried them at all.
type CleaningRecord struct {
	Row           int               `json:"row"`
	Date          time.Time         `json:"date" validate:"required"`
	Tracker       string            `json:"tracker" validate:"required"`
	Box           string            `json:"box,omitempty"`
	Inverter      string            `json:"inverter,omitempty"`
	PanelsCleaned float64           `json:"panels_cleaned" validate:"min=0"`
	Strings       float64           `json:"strings"`
	DCPower       float64           `json:"dc_power_kw"`
	PanelsTarget  float64           `json:"panels_target,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// ReferenceTable holds the optional BASE_DATOS sheet. It is only used as a
// lookup for additional filter dimensions.
type ReferenceTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Values returns the distinct non-empty values of a column, in first-seen order.
func (t *ReferenceTable) Values(column string) []string {
	if t == nil {
		return nil
	}
	idx := -1
	for i, h := range t.Headers {
		if h == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		if idx >= len(row) || row[idx] == "" || seen[row[idx]] {
			continue
		}
		seen[row[idx]] = true
		out = append(out, row[idx])
	}
	return out
}

// Dataset is a fully resolved workbook. It is built once per upload and never
// mutated afterwards; every filter change re-aggregates from Records.
type Dataset struct {
	PlantName   string           `json:"plant_name"`
	SourceFile  string           `json:"source_file"`
	Columns     []string         `json:"columns"`
	Records     []CleaningRecord `json:"-"`
	Reference   *ReferenceTable  `json:"-"`
	DroppedRows int              `json:"dropped_rows"`
	LoadedAt    time.Time        `json:"loaded_at"`
}

// HasColumn reports whether the resolved primary sheet carries the column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// WarningKind classifies non-fatal conditions raised while loading or filtering.
type WarningKind string

const (
	// WarningDataQuality marks rows dropped for a missing date or tracker
	WarningDataQuality WarningKind = "data_quality"
	// WarningEmptyResult marks a filter selection that matched no records
	WarningEmptyResult WarningKind = "empty_result"
)

// Warning is a non-blocking notice attached to a load or a report.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Count   int         `json:"count,omitempty"`
}
