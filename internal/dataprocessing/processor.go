package dataprocessing

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"solarclean/pkg/contracts/domain"
)

// recordValidator enforces the validate tags of domain.CleaningRecord.
var recordValidator = validator.New()

// plantFilePrefix is stripped from workbook file names to obtain the plant name.
const plantFilePrefix = "limpieza_en_seco_"

// LoadResult is a resolved dataset plus the non-fatal notices raised while building it.
type LoadResult struct {
	Dataset    *domain.Dataset
	Resolution ColumnResolution
	Warnings   []domain.Warning
}

// Loader turns raw workbooks into immutable datasets.
type Loader struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a dataset loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With(slog.String("component", "dataset_loader")),
		now:    time.Now,
	}
}

// LoadWorkbook parses a workbook stream and builds its dataset.
func (l *Loader) LoadWorkbook(r io.Reader, filename string) (*LoadResult, error) {
	wb, err := ParseWorkbook(r, filename)
	if err != nil {
		return nil, err
	}
	return l.Load(wb)
}

// Load builds a dataset from a parsed workbook.
//
// The daily sheet is required, as are the date, cleaned-count and identifier
// columns. Rows without a date or identifier are dropped and reported as one
// data-quality warning. The reference sheet is optional.
func (l *Loader) Load(wb *Workbook) (*LoadResult, error) {
	sheet, ok := wb.Sheet(domain.SheetDailyRecords)
	if !ok {
		return nil, missingSheet(domain.SheetDailyRecords)
	}

	table, resolution, err := ResolveColumns(*sheet)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{domain.ColumnDate, domain.ColumnPanelsCleaned} {
		if !table.Has(required) {
			return nil, missingColumn(required)
		}
	}

	records, dropped := buildRecords(table, wb.Date1904)

	ds := &domain.Dataset{
		PlantName:   PlantName(wb.FileName),
		SourceFile:  wb.FileName,
		Columns:     append([]string(nil), table.Headers...),
		Records:     records,
		DroppedRows: dropped,
		LoadedAt:    l.now().UTC(),
	}

	if ref, ok := wb.Sheet(domain.SheetReference); ok {
		ds.Reference = &domain.ReferenceTable{
			Headers: append([]string(nil), ref.Headers...),
			Rows:    trimRows(ref.Rows),
		}
	}

	result := &LoadResult{Dataset: ds, Resolution: resolution}
	if dropped > 0 {
		result.Warnings = append(result.Warnings, domain.Warning{
			Kind:    domain.WarningDataQuality,
			Message: fmt.Sprintf("%d rows without date or tracker, or with a negative cleaned count, were ignored", dropped),
			Count:   dropped,
		})
	}

	l.logger.Info("workbook loaded",
		slog.String("file", wb.FileName),
		slog.String("plant", ds.PlantName),
		slog.Int("records", len(records)),
		slog.Int("dropped_rows", dropped),
		slog.String("tracker_column", resolution.TrackerSource),
		slog.String("strings_column", resolution.StringsSource),
		slog.Bool("reference_sheet", ds.Reference != nil))
	if len(resolution.Truncated) > 0 {
		l.logger.Debug("trailing columns ignored", slog.Any("columns", resolution.Truncated))
	}

	return result, nil
}

func buildRecords(t *RawTable, date1904 bool) ([]domain.CleaningRecord, int) {
	var (
		dateIdx     = t.Index(domain.ColumnDate)
		trackerIdx  = t.Index(domain.ColumnTracker)
		boxIdx      = t.Index(domain.ColumnBox)
		inverterIdx = t.Index(domain.ColumnInverter)
		cleanedIdx  = t.Index(domain.ColumnPanelsCleaned)
		stringsIdx  = t.Index(domain.ColumnStrings)
		powerIdx    = t.Index(domain.ColumnDCPower)
		targetIdx   = t.Index(domain.ColumnPanelsTarget)
	)
	known := map[int]bool{
		dateIdx: true, trackerIdx: true, boxIdx: true, inverterIdx: true,
		cleanedIdx: true, stringsIdx: true, powerIdx: true, targetIdx: true,
	}

	records := make([]domain.CleaningRecord, 0, len(t.Rows))
	dropped := 0
	for i, row := range t.Rows {
		date, ok := parseDate(t.Cell(row, dateIdx), date1904)
		tracker := normalizeIdentifier(t.Cell(row, trackerIdx))
		if !ok || tracker == "" {
			dropped++
			continue
		}

		rec := domain.CleaningRecord{
			// header is sheet row 1
			Row:           i + 2,
			Date:          date,
			Tracker:       tracker,
			Box:           normalizeIdentifier(t.Cell(row, boxIdx)),
			Inverter:      normalizeIdentifier(t.Cell(row, inverterIdx)),
			PanelsCleaned: parseNumber(t.Cell(row, cleanedIdx)),
			Strings:       parseNumber(t.Cell(row, stringsIdx)),
			DCPower:       parseNumber(t.Cell(row, powerIdx)),
			PanelsTarget:  parseNumber(t.Cell(row, targetIdx)),
		}
		for idx, h := range t.Headers {
			if known[idx] || h == "" {
				continue
			}
			if v := t.Cell(row, idx); v != "" {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[h] = v
			}
		}
		if err := recordValidator.Struct(rec); err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

func trimRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = normalizeIdentifier(cell)
		}
	}
	return out
}

// PlantName derives the plant name from a workbook file name,
// e.g. "limpieza_en_seco_Sauce.xlsx" -> "Sauce".
func PlantName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimPrefix(base, plantFilePrefix)
	if base == "" || base == "." {
		return "Planta"
	}
	return base
}
