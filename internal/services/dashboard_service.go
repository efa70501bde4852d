package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"solarclean/internal/dataprocessing"
	"solarclean/internal/exporter"
	"solarclean/internal/infrastructure"
	"solarclean/pkg/contracts/domain"
)

// WorkbookSource reads a workbook kept outside the request, e.g. a Google spreadsheet.
type WorkbookSource interface {
	ReadWorkbook(ctx context.Context, id string) (*dataprocessing.Workbook, error)
}

// RecordsPage is the detail table for a filter selection.
type RecordsPage struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
	Total   int                      `json:"total"`
}

// ExportResult is a rendered export file.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DashboardService loads workbooks into sessions and answers dashboard queries.
type DashboardService struct {
	loader     *dataprocessing.Loader
	summarizer *dataprocessing.Summarizer
	store      *SessionStore
	sheets     WorkbookSource
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// DashboardDeps groups the collaborators of the service. Sheets and Metrics may be nil.
type DashboardDeps struct {
	Store        *SessionStore
	Sheets       WorkbookSource
	Metrics      *infrastructure.BusinessMetrics
	Tracer       trace.Tracer
	Logger       *slog.Logger
	TargetPolicy domain.TargetPolicy
}

// NewDashboardService creates the service
func NewDashboardService(deps DashboardDeps) *DashboardService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	store := deps.Store
	if store == nil {
		store = NewSessionStore(2*time.Hour, 100, logger)
	}
	return &DashboardService{
		loader:     dataprocessing.NewLoader(logger),
		summarizer: dataprocessing.NewSummarizer(logger, dataprocessing.SummarizerConfig{TargetPolicy: deps.TargetPolicy}),
		store:      store,
		sheets:     deps.Sheets,
		metrics:    deps.Metrics,
		tracer:     tracer,
		logger:     logger.With(slog.String("component", "dashboard_service")),
	}
}

// SheetsEnabled reports whether a remote spreadsheet source is configured.
func (s *DashboardService) SheetsEnabled() bool {
	return s.sheets != nil
}

// LoadUpload parses an uploaded workbook into a new session.
func (s *DashboardService) LoadUpload(ctx context.Context, r io.Reader, filename string) (*SessionInfo, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.load",
		trace.WithAttributes(attribute.String("source", SourceUpload), attribute.String("file", filename)))
	defer span.End()

	start := time.Now()
	res, err := s.loadUpload(r, filename)
	return s.register(ctx, SourceUpload, start, res, err)
}

func (s *DashboardService) loadUpload(r io.Reader, filename string) (*dataprocessing.LoadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	return s.loader.LoadWorkbook(bytes.NewReader(data), filename)
}

// LoadSpreadsheet reads a Google spreadsheet into a new session.
func (s *DashboardService) LoadSpreadsheet(ctx context.Context, spreadsheetID string) (*SessionInfo, error) {
	if s.sheets == nil {
		return nil, dataprocessing.ErrSheetsNotConfigured
	}
	ctx, span := s.tracer.Start(ctx, "dashboard.load",
		trace.WithAttributes(attribute.String("source", SourceSheets), attribute.String("spreadsheet_id", spreadsheetID)))
	defer span.End()

	start := time.Now()
	wb, err := s.sheets.ReadWorkbook(ctx, spreadsheetID)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		return s.register(ctx, SourceSheets, start, nil, err)
	}
	res, err := s.loader.Load(wb)
	return s.register(ctx, SourceSheets, start, res, err)
}

// register records the load outcome and stores a successful result.
func (s *DashboardService) register(ctx context.Context, source string, start time.Time, res *dataprocessing.LoadResult, err error) (*SessionInfo, error) {
	dropped := 0
	if res != nil {
		dropped = res.Dataset.DroppedRows
	}
	s.metrics.RecordWorkbookLoad(ctx, source, time.Since(start), dropped, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logDashboardError(ctx, "load", err, slog.String("source", source))
		return nil, err
	}

	session := s.store.Create(source, res)
	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", session.ID),
		slog.String("source", source),
		slog.String("plant", res.Dataset.PlantName),
		slog.Int("records", len(res.Dataset.Records)),
		slog.Int("dropped_rows", dropped))
	return s.store.Info(session), nil
}

// Session returns the public view of a session
func (s *DashboardService) Session(ctx context.Context, id string) (*SessionInfo, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return s.store.Info(session), nil
}

// DeleteSession discards a session and its dataset
func (s *DashboardService) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session deleted", slog.String("session_id", id))
	return nil
}

// FilterOptions lists the selectable filter values of a session
func (s *DashboardService) FilterOptions(ctx context.Context, id string) (domain.FilterOptions, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return dataprocessing.FilterOptions(session.Dataset), nil
}

// Progress builds the dashboard report for a filter selection. An empty
// policy means the configured default.
func (s *DashboardService) Progress(ctx context.Context, id string, f domain.Filter, policy string) (*domain.ProgressReport, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, session, f, policy)
}

func (s *DashboardService) report(ctx context.Context, session *Session, f domain.Filter, policy string) (*domain.ProgressReport, error) {
	p, ok := dataprocessing.ParseTargetPolicy(policy, s.summarizer.DefaultPolicy())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.progress",
		trace.WithAttributes(
			attribute.String("session_id", session.ID),
			attribute.Bool("filtered", !f.IsEmpty()),
			attribute.String("target_policy", string(p)),
		))
	defer span.End()

	report, err := s.summarizer.BuildReport(ctx, session.Dataset, f, p)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	s.metrics.RecordProgress(ctx, !f.IsEmpty(), string(p))
	span.SetAttributes(attribute.Int("days", len(report.Rows)))
	return report, nil
}

// Records returns the detail table of a filter selection
func (s *DashboardService) Records(ctx context.Context, id string, f domain.Filter) (*RecordsPage, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	selection, err := dataprocessing.ApplyFilter(session.Dataset, f)
	if err != nil {
		return nil, err
	}
	columns := exporter.RecordColumns(session.Dataset)
	return &RecordsPage{
		Columns: columns,
		Rows:    exporter.RecordRows(columns, selection),
		Total:   len(selection),
	}, nil
}

// Export renders the progress of a filter selection in the given format.
func (s *DashboardService) Export(ctx context.Context, id string, f domain.Filter, policy string, format exporter.Format) (*ExportResult, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "dashboard.export",
		trace.WithAttributes(attribute.String("session_id", id), attribute.String("format", string(format))))
	defer span.End()

	report, err := s.report(ctx, session, f, policy)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case exporter.FormatCSV:
		err = exporter.WriteProgressCSV(&buf, report.Rows)
	case exporter.FormatXLSX:
		var selection []domain.CleaningRecord
		selection, err = dataprocessing.ApplyFilter(session.Dataset, f)
		if err == nil {
			err = exporter.WriteWorkbook(&buf, session.Dataset, report.Rows, selection)
		}
	default:
		err = fmt.Errorf("%w: %q", exporter.ErrUnknownFormat, format)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logDashboardError(ctx, "export", err, slog.String("format", string(format)))
		if !errors.Is(err, exporter.ErrUnknownFormat) && !errors.Is(err, dataprocessing.ErrInvalidFilter) {
			err = fmt.Errorf("%w: %w", ErrExportFailed, err)
		}
		return nil, err
	}

	s.metrics.RecordExport(ctx, string(format))
	return &ExportResult{
		FileName:    exporter.FileName(session.Dataset.PlantName, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// SessionCount returns the number of live sessions
func (s *DashboardService) SessionCount() int {
	return s.store.Len()
}
