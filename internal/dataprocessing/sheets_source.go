package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"solarclean/pkg/contracts/domain"
)

// ErrSheetsNotConfigured is returned when no Google Sheets credentials were configured.
var ErrSheetsNotConfigured = errors.New("google sheets source not configured")

// SheetsConfig configures access to the Google Sheets API.
type SheetsConfig struct {
	CredentialsFile string
	CredentialsJSON []byte
	APIKey          string
	// Endpoint overrides the API base URL, used against local test servers.
	Endpoint string
}

// Enabled reports whether any credential is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsFile != "" || len(c.CredentialsJSON) > 0 || c.APIKey != "" || c.Endpoint != ""
}

// SheetsReader reads a cleaning workbook kept as a Google spreadsheet.
// Only the daily and reference sheets are fetched.
type SheetsReader struct {
	service *sheets.Service
	logger  *slog.Logger
}

// NewSheetsReader creates a reader. It returns ErrSheetsNotConfigured when cfg
// carries no credentials.
func NewSheetsReader(ctx context.Context, cfg SheetsConfig, logger *slog.Logger) (*SheetsReader, error) {
	if !cfg.Enabled() {
		return nil, ErrSheetsNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsReader{
		service: svc,
		logger:  logger.With(slog.String("component", "sheets_reader")),
	}, nil
}

// ReadWorkbook fetches a spreadsheet as a Workbook named after its title.
// Values are fetched unformatted so dates arrive as serial numbers.
func (r *SheetsReader) ReadWorkbook(ctx context.Context, spreadsheetID string) (*Workbook, error) {
	meta, err := r.service.Spreadsheets.Get(spreadsheetID).
		Fields("properties.title", "sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", spreadsheetID, err)
	}

	title := spreadsheetID
	if meta.Properties != nil && meta.Properties.Title != "" {
		title = meta.Properties.Title
	}
	wb := NewWorkbook(title)

	for _, sh := range meta.Sheets {
		if sh.Properties == nil {
			continue
		}
		name := sh.Properties.Title
		if name != domain.SheetDailyRecords && name != domain.SheetReference {
			continue
		}

		resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, "'"+name+"'").
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("SERIAL_NUMBER").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		wb.AddSheet(name, valuesToRows(resp.Values))

		r.logger.DebugContext(ctx, "sheet fetched",
			slog.String("spreadsheet_id", spreadsheetID),
			slog.String("sheet", name),
			slog.Int("rows", len(resp.Values)))
	}
	return wb, nil
}

func valuesToRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellString(cell)
		}
	}
	return rows
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
