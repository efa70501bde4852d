package dataprocessing

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarclean/pkg/contracts/domain"
)

func reportDataset() *domain.Dataset {
	return &domain.Dataset{
		PlantName: "Sauce",
		Columns: []string{"Fecha", "Tracker", "Inversor", "Paneles Limpiados", "Strings",
			"Potencia DC Asociada"},
		Records: sampleRecords(),
		Reference: &domain.ReferenceTable{
			Headers: []string{"CBOX"},
			Rows:    [][]string{{"CB-2"}, {"CB-1"}, {""}, {"CB-2"}},
		},
	}
}

func TestSummarizer_BuildReport(t *testing.T) {
	s := NewSummarizer(nil, DefaultSummarizerConfig())

	report, err := s.BuildReport(context.Background(), reportDataset(), domain.Filter{}, "")
	require.NoError(t, err)

	assert.Equal(t, "Sauce", report.PlantName)
	assert.Equal(t, domain.Target{Value: 23, Source: domain.TargetFromCleanedSum, Policy: domain.TargetPolicySelection}, report.Target)
	require.Len(t, report.Rows, 2)
	assert.InDelta(t, 65.22, report.Rows[0].ProgressPercent, 1e-9)
	assert.Empty(t, report.Warnings)

	sum := report.Summary
	assert.Equal(t, 23.0, sum.TotalPanels)
	assert.Equal(t, 5.0, sum.TotalStrings)
	assert.Equal(t, 12.0, sum.TotalDCPower)
	assert.InDelta(t, 100.0, sum.MaxProgress, 1e-9)
	assert.Equal(t, 3, sum.RecordCount)
	assert.Equal(t, 2, sum.DayCount)
	assert.Equal(t, 2, sum.TrackerCount)
	assert.Equal(t, domain.DailyStats{Mean: 11.5, Median: 11.5, Max: 15, StdDev: 3.5}, sum.DailyStatistics)

	assert.Equal(t, []domain.TrackerTotal{{Tracker: "T1", PanelsCleaned: 18}, {Tracker: "T2", PanelsCleaned: 5}}, report.Trackers)
	assert.Equal(t, []domain.InverterTotal{{Inverter: "INV-1", DCPower: 9.5}, {Inverter: "INV-2", DCPower: 2.5}}, report.Inverters)
}

func TestSummarizer_BuildReport_TargetPolicies(t *testing.T) {
	filter := domain.Filter{Tracker: "T1"}

	tests := []struct {
		name        string
		config      SummarizerConfig
		policy      domain.TargetPolicy
		wantTarget  float64
		wantPercent []float64
	}{
		{
			name:        "selection recomputes over the subset",
			config:      DefaultSummarizerConfig(),
			wantTarget:  18,
			wantPercent: []float64{55.56, 100},
		},
		{
			name:        "dataset policy from request",
			config:      DefaultSummarizerConfig(),
			policy:      domain.TargetPolicyDataset,
			wantTarget:  23,
			wantPercent: []float64{43.48, 78.26},
		},
		{
			name:        "dataset policy from config",
			config:      SummarizerConfig{TargetPolicy: domain.TargetPolicyDataset},
			wantTarget:  23,
			wantPercent: []float64{43.48, 78.26},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(nil, tt.config)
			report, err := s.BuildReport(context.Background(), reportDataset(), filter, tt.policy)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTarget, report.Target.Value)
			require.Len(t, report.Rows, len(tt.wantPercent))
			for i, want := range tt.wantPercent {
				assert.InDelta(t, want, report.Rows[i].ProgressPercent, 1e-9)
			}
		})
	}
}

func TestSummarizer_BuildReport_EmptySelection(t *testing.T) {
	s := NewSummarizer(nil, DefaultSummarizerConfig())

	report, err := s.BuildReport(context.Background(), reportDataset(), domain.Filter{Tracker: "T9"}, "")
	require.NoError(t, err)

	assert.Empty(t, report.Rows)
	assert.NotNil(t, report.Rows)
	assert.Zero(t, report.Target.Value)
	assert.Equal(t, domain.DashboardSummary{}, report.Summary)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, domain.WarningEmptyResult, report.Warnings[0].Kind)
}

func TestSummarizer_BuildReport_Errors(t *testing.T) {
	s := NewSummarizer(nil, DefaultSummarizerConfig())

	_, err := s.BuildReport(context.Background(), reportDataset(), domain.Filter{Date: "32/13/2024"}, "")
	assert.True(t, errors.Is(err, ErrInvalidFilter))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.BuildReport(ctx, reportDataset(), domain.Filter{}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize_OptionalColumnsAbsent(t *testing.T) {
	ds := reportDataset()
	ds.Columns = []string{"Fecha", "Tracker", "Paneles Limpiados"}

	rows := CalculateProgress(ds.Records, 23)
	sum := Summarize(ds, ds.Records, rows)
	assert.Zero(t, sum.TotalStrings)
	assert.Zero(t, sum.TotalDCPower)
	assert.Equal(t, 23.0, sum.TotalPanels)

	report, err := NewSummarizer(nil, DefaultSummarizerConfig()).BuildReport(context.Background(), ds, domain.Filter{}, "")
	require.NoError(t, err)
	assert.Nil(t, report.Inverters)
}

func TestFilterOptions(t *testing.T) {
	opts := FilterOptions(reportDataset())

	assert.Equal(t, []string{"Todos", "2024-01-01", "2024-01-02"}, opts.Dates)
	assert.Equal(t, []string{"Todos", "INV-1", "INV-2"}, opts.Inverters)
	assert.Equal(t, []string{"Todos", "T1", "T2"}, opts.Trackers)
	assert.Equal(t, []string{"Todos", "CB-1", "CB-2"}, opts.Boxes)

	ds := reportDataset()
	ds.Reference = nil
	assert.Equal(t, []string{"Todos"}, FilterOptions(ds).Boxes)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("2", "10"))
	assert.False(t, naturalLess("10", "2"))
	assert.True(t, naturalLess("9", "T1"))
	assert.True(t, naturalLess("T1", "T2"))
}

func TestNaturalLess_NaNAndInfAreText(t *testing.T) {
	ids := []string{"NaN", "T2", "10", "Inf", "2", "nan", "-Inf"}
	for i := 0; i < 3; i++ {
		got := append([]string(nil), ids...)
		sort.Slice(got, func(i, j int) bool { return naturalLess(got[i], got[j]) })
		assert.Equal(t, []string{"2", "10", "-Inf", "Inf", "NaN", "T2", "nan"}, got)
		ids = append(ids[1:], ids[0])
	}

	assert.False(t, naturalLess("NaN", "NaN"))
	assert.True(t, naturalLess("10", "NaN"))
	assert.False(t, naturalLess("NaN", "10"))
}
