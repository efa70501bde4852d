package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"solarclean/pkg/contracts/domain"
)

// ErrUnknownFormat is returned for export formats other than csv and xlsx.
var ErrUnknownFormat = errors.New("unknown export format")

// utf8BOM helps Excel recognize UTF-8 ("Día", "Fecha")
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ProgressHeaders are the columns of the progress table export.
var ProgressHeaders = []string{"Fecha", "Paneles del Día", "Paneles Acumulados", "% Avance"}

// progressRecords renders daily progress rows as table cells
func progressRecords(rows []domain.DailyProgress) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			formatDate(r.Date),
			formatNumber(r.PanelsCleaned),
			formatNumber(r.CumulativePanels),
			formatFloat(r.ProgressPercent),
		})
	}
	return out
}

// WriteProgressCSV writes the daily progress table with a UTF-8 BOM.
func WriteProgressCSV(w io.Writer, rows []domain.DailyProgress) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ProgressHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range progressRecords(rows) {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSVWriter writes progress files into an output directory.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at dir
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteProgress writes <plant>_progreso.csv and returns its path.
func (w *CSVWriter) WriteProgress(plant string, rows []domain.DailyProgress) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	fullPath := filepath.Join(w.dir, FileName(plant, FormatCSV))
	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := WriteProgressCSV(file, rows); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	w.logger.Info("progress csv written",
		slog.String("plant", plant),
		slog.String("path", fullPath),
		slog.Int("rows", len(rows)))
	return fullPath, nil
}
