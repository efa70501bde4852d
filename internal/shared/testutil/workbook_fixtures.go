package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetFixture is one sheet of a generated test workbook. The first row is the header.
type SheetFixture struct {
	Name string
	Rows [][]interface{}
}

// DailyHeaders is the header of a typical REGISTRO_DIARIO sheet.
var DailyHeaders = []interface{}{
	"Fecha", "Tracker", "Inversor", "Paneles Limpiados", "N° Strings", "Potencia DC Asociada",
}

// Day returns midnight UTC of a calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DailySheet builds a REGISTRO_DIARIO fixture from a header and data rows.
func DailySheet(headers []interface{}, rows ...[]interface{}) SheetFixture {
	all := make([][]interface{}, 0, len(rows)+1)
	all = append(all, headers)
	all = append(all, rows...)
	return SheetFixture{Name: "REGISTRO_DIARIO", Rows: all}
}

// ReferenceSheet builds a BASE_DATOS fixture.
func ReferenceSheet(headers []interface{}, rows ...[]interface{}) SheetFixture {
	all := make([][]interface{}, 0, len(rows)+1)
	all = append(all, headers)
	all = append(all, rows...)
	return SheetFixture{Name: "BASE_DATOS", Rows: all}
}

// SampleDailySheet is the three-row reference scenario: two trackers over two days.
func SampleDailySheet() SheetFixture {
	return DailySheet(DailyHeaders,
		[]interface{}{Day(2024, 1, 1), "T1", "INV-1", 10, 2, 5.5},
		[]interface{}{Day(2024, 1, 1), "T2", "INV-2", 5, 1, 2.5},
		[]interface{}{Day(2024, 1, 2), "T1", "INV-1", 8, 2, 4.0},
	)
}

// BuildWorkbook renders the fixtures into an in-memory xlsx file.
func BuildWorkbook(t testing.TB, sheets ...SheetFixture) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sh.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			t.Fatalf("create sheet %s: %v", sh.Name, err)
		}
		for r, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(sh.Name, cell, &values); err != nil {
				t.Fatalf("write row %d of %s: %v", r+1, sh.Name, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// WriteWorkbook saves the fixtures as dir/name and returns the path.
func WriteWorkbook(t testing.TB, dir, name string, sheets ...SheetFixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildWorkbook(t, sheets...), 0o644); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}
