package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"solarclean/internal/dataprocessing"
	apierrors "solarclean/internal/errors"
	"solarclean/internal/exporter"
	"solarclean/internal/services"
	"solarclean/internal/validation"
	"solarclean/pkg/contracts/domain"
)

const testSessionID = "0b7e2a4c-3c1d-4a8e-9f51-2d6f0c9b8a11"

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) SheetsEnabled() bool {
	return m.Called().Bool(0)
}

func (m *MockDashboardService) LoadUpload(ctx context.Context, r io.Reader, filename string) (*services.SessionInfo, error) {
	args := m.Called(filename)
	info, _ := args.Get(0).(*services.SessionInfo)
	return info, args.Error(1)
}

func (m *MockDashboardService) LoadSpreadsheet(ctx context.Context, spreadsheetID string) (*services.SessionInfo, error) {
	args := m.Called(spreadsheetID)
	info, _ := args.Get(0).(*services.SessionInfo)
	return info, args.Error(1)
}

func (m *MockDashboardService) Session(ctx context.Context, id string) (*services.SessionInfo, error) {
	args := m.Called(id)
	info, _ := args.Get(0).(*services.SessionInfo)
	return info, args.Error(1)
}

func (m *MockDashboardService) DeleteSession(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockDashboardService) FilterOptions(ctx context.Context, id string) (domain.FilterOptions, error) {
	args := m.Called(id)
	opts, _ := args.Get(0).(domain.FilterOptions)
	return opts, args.Error(1)
}

func (m *MockDashboardService) Progress(ctx context.Context, id string, f domain.Filter, policy string) (*domain.ProgressReport, error) {
	args := m.Called(id, f, policy)
	report, _ := args.Get(0).(*domain.ProgressReport)
	return report, args.Error(1)
}

func (m *MockDashboardService) Records(ctx context.Context, id string, f domain.Filter) (*services.RecordsPage, error) {
	args := m.Called(id, f)
	page, _ := args.Get(0).(*services.RecordsPage)
	return page, args.Error(1)
}

func (m *MockDashboardService) Export(ctx context.Context, id string, f domain.Filter, policy string, format exporter.Format) (*services.ExportResult, error) {
	args := m.Called(id, f, policy, format)
	res, _ := args.Get(0).(*services.ExportResult)
	return res, args.Error(1)
}

func newTestRouter(svc *MockDashboardService) http.Handler {
	errorHandler := apierrors.NewErrorHandler(nil, false)
	h := NewDashboardHandler(svc, validation.NewFileValidator(nil, 1024, nil), 1024, nil, errorHandler)
	r := chi.NewRouter()
	r.Mount("/api/sessions", h.Routes())
	return r
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestDashboardHandler_CreateSession(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		setupMock  func(*MockDashboardService)
		wantStatus int
		wantBody   string
	}{
		{
			name:     "created",
			filename: "limpieza_en_seco_Sauce.xlsx",
			content:  []byte("workbook"),
			setupMock: func(m *MockDashboardService) {
				m.On("LoadUpload", "limpieza_en_seco_Sauce.xlsx").
					Return(&services.SessionInfo{ID: testSessionID, PlantName: "Sauce", RecordCount: 3}, nil)
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"plant_name":"Sauce"`,
		},
		{
			name:       "missing file part",
			wantStatus: http.StatusBadRequest,
			wantBody:   "VALIDATION_FAILED",
		},
		{
			name:       "unsupported extension",
			filename:   "data.csv",
			content:    []byte("a,b"),
			wantStatus: http.StatusUnsupportedMediaType,
			wantBody:   "accepted_extensions",
		},
		{
			name:       "file over the size limit",
			filename:   "big.xlsx",
			content:    bytes.Repeat([]byte("x"), 2048),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   "UPLOAD_TOO_LARGE",
		},
		{
			name:     "missing daily sheet",
			filename: "plant.xlsx",
			content:  []byte("workbook"),
			setupMock: func(m *MockDashboardService) {
				m.On("LoadUpload", "plant.xlsx").
					Return(nil, &dataprocessing.SchemaError{Kind: dataprocessing.SchemaMissingSheet, Name: domain.SheetDailyRecords})
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `"kind":"missing_sheet"`,
		},
		{
			name:     "empty upload",
			filename: "plant.xlsx",
			content:  []byte("x"),
			setupMock: func(m *MockDashboardService) {
				m.On("LoadUpload", "plant.xlsx").Return(nil, services.ErrEmptyUpload)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, uploadRequest(t, tt.filename, tt.content))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_CreateSheetsSession(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		setupMock   func(*MockDashboardService)
		wantStatus  int
		wantBody    string
	}{
		{
			name:        "created",
			body:        `{"spreadsheet_id":"sheet-1"}`,
			contentType: "application/json",
			setupMock: func(m *MockDashboardService) {
				m.On("SheetsEnabled").Return(true)
				m.On("LoadSpreadsheet", "sheet-1").Return(&services.SessionInfo{ID: testSessionID, Source: services.SourceSheets}, nil)
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"source":"sheets"`,
		},
		{
			name:        "source disabled",
			body:        `{"spreadsheet_id":"sheet-1"}`,
			contentType: "application/json",
			setupMock: func(m *MockDashboardService) {
				m.On("SheetsEnabled").Return(false)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "SHEETS_DISABLED",
		},
		{
			name:        "missing spreadsheet id",
			body:        `{}`,
			contentType: "application/json",
			setupMock: func(m *MockDashboardService) {
				m.On("SheetsEnabled").Return(true)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "spreadsheet_id is required",
		},
		{
			name:        "remote failure",
			body:        `{"spreadsheet_id":"sheet-1"}`,
			contentType: "application/json",
			setupMock: func(m *MockDashboardService) {
				m.On("SheetsEnabled").Return(true)
				m.On("LoadSpreadsheet", "sheet-1").Return(nil, services.ErrSourceUnavailable)
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   "SOURCE_UNAVAILABLE",
		},
		{
			name:        "wrong content type",
			body:        `spreadsheet_id=sheet-1`,
			contentType: "application/x-www-form-urlencoded",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/sessions/sheets", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_SessionRoutes(t *testing.T) {
	base := "/api/sessions/" + testSessionID

	t.Run("get session", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Session", testSessionID).Return(&services.SessionInfo{ID: testSessionID, PlantName: "Sauce"}, nil)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Sauce", decodeBody(t, rec)["plant_name"])
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Session", testSessionID).Return(nil, services.ErrSessionNotFound)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "SESSION_NOT_FOUND", decodeBody(t, rec)["error_code"])
	})

	t.Run("malformed session id", func(t *testing.T) {
		svc := new(MockDashboardService)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "session_id must be a valid UUID")
		svc.AssertNotCalled(t, "Session", mock.Anything)
	})

	t.Run("delete session", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("DeleteSession", testSessionID).Return(nil)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, base, nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("filter options", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("FilterOptions", testSessionID).Return(domain.FilterOptions{
			Dates:     []string{domain.FilterAll, "2024-01-01"},
			Inverters: []string{domain.FilterAll},
			Boxes:     []string{domain.FilterAll},
			Trackers:  []string{domain.FilterAll, "T1"},
		}, nil)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"/filters", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"trackers":["Todos","T1"]`)
	})
}

func TestDashboardHandler_GetProgress(t *testing.T) {
	base := "/api/sessions/" + testSessionID + "/progress"

	tests := []struct {
		name       string
		query      string
		setupMock  func(*MockDashboardService)
		wantStatus int
		wantBody   string
	}{
		{
			name:  "tracker with dataset target",
			query: "?tracker=T1&target=dataset",
			setupMock: func(m *MockDashboardService) {
				m.On("Progress", testSessionID, domain.Filter{Tracker: "T1"}, "dataset").
					Return(&domain.ProgressReport{
						PlantName: "Sauce",
						Target:    domain.Target{Value: 23, Source: domain.TargetFromCleanedSum, Policy: domain.TargetPolicyDataset},
						Rows:      []domain.DailyProgress{{PanelsCleaned: 10, CumulativePanels: 10, ProgressPercent: 43.48}},
					}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"progress_percent":43.48`,
		},
		{
			name:  "all sentinel date",
			query: "?date=Todos",
			setupMock: func(m *MockDashboardService) {
				m.On("Progress", testSessionID, domain.Filter{}, "").Return(&domain.ProgressReport{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed date",
			query:      "?date=01/02/2024",
			wantStatus: http.StatusBadRequest,
			wantBody:   "date must be a date formatted as YYYY-MM-DD",
		},
		{
			name:       "unknown target",
			query:      "?target=everything",
			wantStatus: http.StatusBadRequest,
			wantBody:   "target must be one of: selection, dataset",
		},
		{
			name:  "filter rejected by the service",
			query: "?box=CB-9",
			setupMock: func(m *MockDashboardService) {
				m.On("Progress", testSessionID, domain.Filter{Box: "CB-9"}, "").
					Return(nil, dataprocessing.ErrInvalidFilter)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "INVALID_FILTER",
		},
		{
			name:  "unexpected failure",
			query: "",
			setupMock: func(m *MockDashboardService) {
				m.On("Progress", testSessionID, domain.Filter{}, "").Return(nil, assert.AnError)
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_GetRecords(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Records", testSessionID, domain.Filter{Inverter: "INV-1"}).Return(&services.RecordsPage{
		Columns: []string{domain.ColumnDate, domain.ColumnTracker},
		Rows:    []map[string]interface{}{{domain.ColumnDate: "2024-01-01", domain.ColumnTracker: "T1"}},
		Total:   1,
	}, nil)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+testSessionID+"/records?inverter=INV-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
	svc.AssertExpectations(t)
}

func TestDashboardHandler_Export(t *testing.T) {
	base := "/api/sessions/" + testSessionID + "/export/"

	t.Run("csv download", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Export", testSessionID, domain.Filter{Tracker: "T1"}, "", exporter.FormatCSV).Return(&services.ExportResult{
			FileName:    "Sauce_progreso.csv",
			ContentType: exporter.FormatCSV.ContentType(),
			Data:        []byte("Fecha\n"),
		}, nil)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"csv?tracker=T1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="Sauce_progreso.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "6", rec.Header().Get("Content-Length"))
		assert.Equal(t, "Fecha\n", rec.Body.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := new(MockDashboardService)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"pdf", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "format must be one of: csv, xlsx")
		svc.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired session", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Export", testSessionID, domain.Filter{}, "", exporter.FormatXLSX).Return(nil, services.ErrSessionNotFound)

		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"xlsx", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"session", services.ErrSessionNotFound, http.StatusNotFound},
		{"empty upload", services.ErrEmptyUpload, http.StatusBadRequest},
		{"source", services.ErrSourceUnavailable, http.StatusBadGateway},
		{"policy", services.ErrInvalidPolicy, http.StatusBadRequest},
		{"format", exporter.ErrUnknownFormat, http.StatusBadRequest},
		{"sheets", dataprocessing.ErrSheetsNotConfigured, http.StatusServiceUnavailable},
		{"filter", dataprocessing.ErrInvalidFilter, http.StatusBadRequest},
		{"export", fmt.Errorf("%w: disk full", services.ErrExportFailed), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr, ok := mapServiceError(tt.err).(*apierrors.APIError)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
		})
	}

	assert.Same(t, assert.AnError, mapServiceError(assert.AnError))
}
