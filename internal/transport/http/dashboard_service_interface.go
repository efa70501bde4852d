package http

import (
	"context"
	"io"

	"solarclean/internal/exporter"
	"solarclean/internal/services"
	"solarclean/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handlers need
type DashboardServiceInterface interface {
	SheetsEnabled() bool
	LoadUpload(ctx context.Context, r io.Reader, filename string) (*services.SessionInfo, error)
	LoadSpreadsheet(ctx context.Context, spreadsheetID string) (*services.SessionInfo, error)
	Session(ctx context.Context, id string) (*services.SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error
	FilterOptions(ctx context.Context, id string) (domain.FilterOptions, error)
	Progress(ctx context.Context, id string, f domain.Filter, policy string) (*domain.ProgressReport, error)
	Records(ctx context.Context, id string, f domain.Filter) (*services.RecordsPage, error)
	Export(ctx context.Context, id string, f domain.Filter, policy string, format exporter.Format) (*services.ExportResult, error)
}
