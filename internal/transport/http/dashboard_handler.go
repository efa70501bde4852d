package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"solarclean/internal/config"
	"solarclean/internal/dataprocessing"
	apierrors "solarclean/internal/errors"
	"solarclean/internal/exporter"
	"solarclean/internal/middleware"
	"solarclean/internal/services"
	"solarclean/internal/validation"
	"solarclean/pkg/contracts/domain"
)

type sessionKey struct{}

// multipartOverhead leaves room for the multipart envelope around the file part.
const multipartOverhead = 1 << 20

// FilterQuery is the filter selection shared by the progress, records and export routes.
type FilterQuery struct {
	Date     string `query:"date" validate:"omitempty,isodate"`
	Inverter string `query:"inverter" validate:"max=100"`
	Box      string `query:"box" validate:"max=100"`
	Tracker  string `query:"tracker" validate:"max=100"`
	Target   string `query:"target" validate:"omitempty,oneof=selection dataset"`
}

// Filter converts the query into a domain filter.
func (q FilterQuery) Filter() domain.Filter {
	return domain.Filter{Date: q.Date, Inverter: q.Inverter, Box: q.Box, Tracker: q.Tracker}
}

// SheetsRequest is the body of POST /api/sessions/sheets.
type SheetsRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required,max=200"`
}

type sessionParams struct {
	ID string `json:"session_id" validate:"required,uuid"`
}

// DashboardHandler serves the session-scoped dashboard API
type DashboardHandler struct {
	service      DashboardServiceInterface
	uploads      *validation.FileValidator
	validator    *middleware.RequestValidator
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates the handler. maxUpload bounds the workbook size in bytes.
func NewDashboardHandler(service DashboardServiceInterface, uploads *validation.FileValidator, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = config.DefaultMaxUploadBytes
	}
	return &DashboardHandler{
		service:      service,
		uploads:      uploads,
		validator:    middleware.NewRequestValidator(logger),
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session routes, mounted under /api/sessions.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(middleware.MaxBodySize(h.maxUpload+multipartOverhead)).Post("/", h.CreateSession)
	r.With(middleware.ContentTypeValidator("application/json")).Post("/sheets", h.CreateSheetsSession)

	r.Route("/{sessionID}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Get("/filters", h.GetFilters)
		r.Get("/progress", h.GetProgress)
		r.Get("/records", h.GetRecords)
		r.Get("/export/{format}", h.Export)
	})
	return r
}

// SessionCtx validates the session ID path parameter
func (h *DashboardHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := sessionParams{ID: chi.URLParam(r, "sessionID")}
		if err := h.validator.ValidateStruct(params); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, params.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

// CreateSession handles POST /api/sessions with a multipart "file" part
func (h *DashboardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.MultipartMemoryBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
		return
	}
	defer file.Close()

	if err := h.uploads.ValidateUpload(header.Filename, header.Size); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "workbook uploaded",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size))

	info, err := h.service.LoadUpload(r.Context(), file, header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// CreateSheetsSession handles POST /api/sessions/sheets
func (h *DashboardHandler) CreateSheetsSession(w http.ResponseWriter, r *http.Request) {
	if !h.service.SheetsEnabled() {
		h.errorHandler.HandleError(w, r, apierrors.ErrSheetsDisabled)
		return
	}

	var req SheetsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	info, err := h.service.LoadSpreadsheet(r.Context(), req.SpreadsheetID)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// GetSession handles GET /api/sessions/{sessionID}
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Session(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, info)
}

// DeleteSession handles DELETE /api/sessions/{sessionID}
func (h *DashboardHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), sessionID(r)); err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFilters handles GET /api/sessions/{sessionID}/filters
func (h *DashboardHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.FilterOptions(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, opts)
}

// GetProgress handles GET /api/sessions/{sessionID}/progress
func (h *DashboardHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	q, ok := h.filterQuery(w, r)
	if !ok {
		return
	}
	report, err := h.service.Progress(r.Context(), sessionID(r), q.Filter(), q.Target)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, report)
}

// GetRecords handles GET /api/sessions/{sessionID}/records
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	q, ok := h.filterQuery(w, r)
	if !ok {
		return
	}
	page, err := h.service.Records(r.Context(), sessionID(r), q.Filter())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, page)
}

// Export handles GET /api/sessions/{sessionID}/export/{format}
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	q, ok := h.filterQuery(w, r)
	if !ok {
		return
	}

	res, err := h.service.Export(r.Context(), sessionID(r), q.Filter(), q.Target, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed",
			slog.String("file", res.FileName),
			slog.String("error", err.Error()))
	}
}

// filterQuery reads and validates the filter query. The "all" sentinels are
// accepted for every criterion.
func (h *DashboardHandler) filterQuery(w http.ResponseWriter, r *http.Request) (FilterQuery, bool) {
	values := r.URL.Query()
	q := FilterQuery{
		Date:     values.Get("date"),
		Inverter: values.Get("inverter"),
		Box:      values.Get("box"),
		Tracker:  values.Get("tracker"),
		Target:   values.Get("target"),
	}
	if domain.IsAll(q.Date) {
		q.Date = ""
	}
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}
	return q, true
}

// mapServiceError translates service sentinels into API errors. Errors the
// ErrorHandler understands natively pass through.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return apierrors.ErrSessionNotFound
	case errors.Is(err, services.ErrEmptyUpload):
		return apierrors.ErrValidation("file", "file is empty")
	case errors.Is(err, services.ErrSourceUnavailable):
		return apierrors.SourceError(err)
	case errors.Is(err, services.ErrInvalidPolicy):
		return apierrors.ErrValidation("target", "target must be one of: selection, dataset")
	case errors.Is(err, exporter.ErrUnknownFormat):
		return apierrors.ErrValidation("format", "format must be one of: csv, xlsx")
	case errors.Is(err, dataprocessing.ErrSheetsNotConfigured):
		return apierrors.ErrSheetsDisabled
	case errors.Is(err, dataprocessing.ErrInvalidFilter):
		return apierrors.InvalidFilterError(err)
	case errors.Is(err, services.ErrExportFailed):
		return apierrors.ErrExportFailed
	}
	return err
}
