package dataprocessing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarclean/pkg/contracts/domain"
)

func newSheetsServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body interface{}
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			assert.Equal(t, "UNFORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
			body = map[string]interface{}{
				"range":          "REGISTRO_DIARIO!A1:C4",
				"majorDimension": "ROWS",
				"values": [][]interface{}{
					{"Fecha", "CBOX", "Paneles Limpiados"},
					{45292, "T1", 10},
					{45292, "T2", 5},
					{45293, "T1", 8},
				},
			}
		case strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-1"):
			body = map[string]interface{}{
				"spreadsheetId": "sheet-1",
				"properties":    map[string]string{"title": "limpieza_en_seco_Sauce"},
				"sheets": []interface{}{
					map[string]interface{}{"properties": map[string]string{"title": "REGISTRO_DIARIO"}},
					map[string]interface{}{"properties": map[string]string{"title": "Graficos"}},
				},
			}
		default:
			w.WriteHeader(http.StatusNotFound)
			body = map[string]interface{}{"error": map[string]interface{}{"code": 404, "message": "not found"}}
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestSheetsReader_ReadWorkbook(t *testing.T) {
	srv := newSheetsServer(t)
	defer srv.Close()

	ctx := context.Background()
	reader, err := NewSheetsReader(ctx, SheetsConfig{Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	wb, err := reader.ReadWorkbook(ctx, "sheet-1")
	require.NoError(t, err)
	assert.Equal(t, "limpieza_en_seco_Sauce", wb.FileName)
	assert.Equal(t, []string{domain.SheetDailyRecords}, wb.SheetNames())

	res, err := NewLoader(nil).Load(wb)
	require.NoError(t, err)
	assert.Equal(t, "Sauce", res.Dataset.PlantName)

	rows := CalculateProgress(res.Dataset.Records, ResolveTarget(res.Dataset.Records, false).Value)
	require.Len(t, rows, 2)
	assert.Equal(t, day(1), rows[0].Date)
	assert.InDelta(t, 65.22, rows[0].ProgressPercent, 1e-9)
}

func TestSheetsReader_UnknownSpreadsheet(t *testing.T) {
	srv := newSheetsServer(t)
	defer srv.Close()

	ctx := context.Background()
	reader, err := NewSheetsReader(ctx, SheetsConfig{Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	_, err = reader.ReadWorkbook(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestNewSheetsReader_NotConfigured(t *testing.T) {
	_, err := NewSheetsReader(context.Background(), SheetsConfig{}, nil)
	assert.True(t, errors.Is(err, ErrSheetsNotConfigured))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "45292", cellString(45292.0))
	assert.Equal(t, "5.5", cellString(5.5))
	assert.Equal(t, "T1", cellString("T1"))
	assert.Equal(t, "true", cellString(true))
	assert.Equal(t, "", cellString(nil))
}
