// Package exporter renders progress reports as downloadable files.
//
// WriteProgressCSV writes the daily progress table (Fecha, Paneles del Día,
// Paneles Acumulados, % Avance) with a UTF-8 BOM so Excel opens accents
// correctly. WriteWorkbook writes the same table plus the filtered records to
// an .xlsx with the sheets Progreso and Registros. CSVWriter is the
// file-system variant used by the batch processor.
package exporter
