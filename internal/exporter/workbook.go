package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"solarclean/pkg/contracts/domain"
)

// Sheet names of the exported workbook.
const (
	SheetProgress = "Progreso"
	SheetRecords  = "Registros"
)

// WriteWorkbook writes an .xlsx with the progress table and the filtered
// records. Cells carry plain values without styling.
func WriteWorkbook(w io.Writer, ds *domain.Dataset, rows []domain.DailyProgress, records []domain.CleaningRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetProgress); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeRow(f, SheetProgress, 1, toCells(ProgressHeaders)); err != nil {
		return err
	}
	for i, r := range rows {
		cells := []interface{}{formatDate(r.Date), r.PanelsCleaned, r.CumulativePanels, r.ProgressPercent}
		if err := writeRow(f, SheetProgress, i+2, cells); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetRecords); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	columns := RecordColumns(ds)
	if err := writeRow(f, SheetRecords, 1, toCells(columns)); err != nil {
		return err
	}
	for i, rec := range records {
		cells := make([]interface{}, len(columns))
		for j, c := range columns {
			cells[j] = recordValue(rec, c)
		}
		if err := writeRow(f, SheetRecords, i+2, cells); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
