package dataprocessing

import (
	"strings"
)

// RawTable is a sheet as read from a workbook: the first row becomes the
// header, every following row is kept as text. Cells are addressed by column
// name so the same code handles files whose column order differs.
type RawTable struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Index returns the position of a column, or -1 when absent.
func (t *RawTable) Index(column string) int {
	for i, h := range t.Headers {
		if h == column {
			return i
		}
	}
	return -1
}

// Has reports whether the table carries a column.
func (t *RawTable) Has(column string) bool {
	return t.Index(column) >= 0
}

// Cell returns the trimmed value of a column in a row, "" when out of range.
func (t *RawTable) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Workbook is the set of sheets read from one source file or spreadsheet.
type Workbook struct {
	FileName string
	Date1904 bool
	sheets   map[string]*RawTable
	order    []string
}

// NewWorkbook creates an empty workbook for the given source name.
func NewWorkbook(fileName string) *Workbook {
	return &Workbook{
		FileName: fileName,
		sheets:   make(map[string]*RawTable),
	}
}

// AddSheet registers a sheet built from raw rows. The first row is the header.
func (w *Workbook) AddSheet(name string, rows [][]string) {
	table := &RawTable{Name: name}
	if len(rows) > 0 {
		table.Headers = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			table.Headers[i] = strings.TrimSpace(h)
		}
		table.Rows = dropBlankRows(rows[1:])
	}
	if _, exists := w.sheets[name]; !exists {
		w.order = append(w.order, name)
	}
	w.sheets[name] = table
}

// Sheet returns a sheet by exact name.
func (w *Workbook) Sheet(name string) (*RawTable, bool) {
	t, ok := w.sheets[name]
	return t, ok
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

func dropBlankRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}
