package dataprocessing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither xlsx/xlsm nor xls.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")

// SupportedExtensions lists the workbook extensions the parser understands.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".xls"}

// maxLegacyRows bounds the rows read from a legacy .xls sheet.
const maxLegacyRows = 1 << 16

// IsSupportedFile reports whether a file name carries a readable workbook extension.
// Excel lock files (~$name.xlsx) are never readable.
func IsSupportedFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseWorkbook reads every sheet of a workbook into raw text tables.
// The format is chosen from the file name extension.
func ParseWorkbook(r io.Reader, filename string) (*Workbook, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx", ".xlsm":
		return parseOpenXML(r, filename)
	case ".xls":
		return parseLegacy(r, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseOpenXML(r io.Reader, filename string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb := NewWorkbook(filepath.Base(filename))
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.Date1904 = *props.Date1904
	}

	// Raw values keep dates as serial numbers so the layout of the
	// cell number format does not matter.
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		wb.AddSheet(name, rows)
	}
	return wb, nil
}

func parseLegacy(r io.Reader, filename string) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	wb := NewWorkbook(filepath.Base(filename))
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for j := 0; j <= int(sheet.MaxRow) && j < maxLegacyRows; j++ {
			row := sheet.Row(j)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		// Header must be the first non-empty row.
		for len(rows) > 0 && len(rows[0]) == 0 {
			rows = rows[1:]
		}
		wb.AddSheet(sheet.Name, rows)
	}
	return wb, nil
}

// dateLayouts are the textual layouts accepted for the date column, tried in
// order. Numeric layouts put the day before the month, as the source files do.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02/01/06",
	"02-01-06",
}

// parseDate converts a cell into a calendar day in UTC. Numeric cells are
// Excel serial dates. Unparseable values are reported as missing.
func parseDate(value string, date1904 bool) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, false
		}
		return truncateDay(t), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseNumber reads a numeric cell; blanks and non-numbers count as zero.
func parseNumber(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" {
		return 0
	}
	value = strings.ReplaceAll(value, ",", "")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// normalizeIdentifier cleans an identifier cell. Numeric identifiers stored
// as floats ("12.0") are written back as integers.
func normalizeIdentifier(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(value, ".0")); err == nil {
			return strings.TrimSuffix(value, ".0")
		}
	}
	return value
}
