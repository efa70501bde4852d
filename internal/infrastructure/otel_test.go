package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"solarclean/internal/config"
)

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "test", TraceExporter: "none", MetricExporter: "none"}, nil)
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)

	// no-op instruments are still usable
	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordExport(context.Background(), "csv")
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	var out bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "test",
		TraceExporter:  "stdout",
		MetricExporter: "none",
		SampleRatio:    1,
		TraceWriter:    &out,
	}, nil)
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "dashboard.load")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	assert.Equal(t, TraceIDFromContext(ctx), GetTraceID(ctx))
	RecordError(ctx, errors.New("boom"))
	span.End()

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, providers.Shutdown(ctx2))
	assert.Contains(t, out.String(), "dashboard.load")
	assert.Contains(t, out.String(), "boom")
}

func TestInitializeOTel_Prometheus(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "test", TraceExporter: "none", MetricExporter: "prometheus"}, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())
	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordWorkbookLoad(context.Background(), "upload", time.Millisecond, 2, nil)

	srv := httptest.NewServer(providers.PrometheusHTTP)
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "workbook_loads")
	assert.Contains(t, string(body), "workbook_rows_dropped")
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "jaeger"}, nil)
	assert.Error(t, err)
	_, err = InitializeOTel(&OTelConfig{MetricExporter: "statsd"}, nil)
	assert.Error(t, err)
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{ServiceName: "svc", TracingEnabled: true}, "1.2.3")
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.Equal(t, "none", cfg.MetricExporter)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestBusinessMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordWorkbookLoad(ctx, "upload", 10*time.Millisecond, 3, nil)
	metrics.RecordWorkbookLoad(ctx, "sheets", 10*time.Millisecond, 0, errors.New("bad"))
	metrics.RecordProgress(ctx, true, "selection")
	metrics.RecordExport(ctx, "csv")
	metrics.RecordExport(ctx, "xlsx")
	metrics.RecordHTTPRequest(ctx, "GET", "/api/health", 200, time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["workbook_loads_total"]))
	assert.Equal(t, int64(3), sumOf(t, got["workbook_rows_dropped_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["progress_aggregations_total"]))
	assert.Equal(t, int64(2), sumOf(t, got["exports_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["http_requests_total"]))
}

func TestBusinessMetrics_NilSafe(t *testing.T) {
	var metrics *BusinessMetrics
	assert.NotPanics(t, func() {
		metrics.RecordWorkbookLoad(context.Background(), "upload", 0, 1, nil)
		metrics.RecordProgress(context.Background(), false, "dataset")
		metrics.RecordExport(context.Background(), "csv")
		metrics.RecordHTTPRequest(context.Background(), "GET", "/", 200, 0)
	})
}

func TestObservableGauges(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	meter := mp.Meter("test")

	_, err := RegisterRuntimeMetrics(meter, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = RegisterSessionGauge(meter, func() int { return 4 })
	require.NoError(t, err)

	got := collect(t, reader)
	require.Contains(t, got, "system_goroutines")
	require.Contains(t, got, "system_uptime_seconds")

	sessions, ok := got["dashboard_active_sessions"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, sessions.DataPoints, 1)
	assert.Equal(t, int64(4), sessions.DataPoints[0].Value)

	uptime, ok := got["system_uptime_seconds"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	assert.GreaterOrEqual(t, uptime.DataPoints[0].Value, 60.0)
}
