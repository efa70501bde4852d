// Package files discovers cleaning workbooks on disk for the batch processor.
//
// Discovery accepts a configurable set of workbook extensions and skips the
// "~$" lock files that spreadsheet applications create next to open files.
//
//	d := files.NewDiscovery("", dataprocessing.SupportedExtensions)
//	books, err := d.Collect("data/", "extra/limpieza_en_seco_Sauce.xlsx")
package files
