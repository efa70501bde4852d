package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"

	"solarclean/pkg/contracts/domain"
)

// Summarizer builds dashboard reports over a dataset.
// Every call re-aggregates from the dataset records; nothing is cached.
type Summarizer struct {
	logger *slog.Logger
	policy domain.TargetPolicy
	now    func() time.Time
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	TargetPolicy domain.TargetPolicy // Default target policy when a request names none
}

// DefaultSummarizerConfig returns the configuration used when none is given.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{TargetPolicy: domain.TargetPolicySelection}
}

// NewSummarizer creates a report summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TargetPolicy == "" {
		config.TargetPolicy = domain.TargetPolicySelection
	}
	return &Summarizer{
		logger: logger.With(slog.String("component", "summarizer")),
		policy: config.TargetPolicy,
		now:    time.Now,
	}
}

// DefaultPolicy returns the target policy applied when a request names none.
func (s *Summarizer) DefaultPolicy() domain.TargetPolicy {
	return s.policy
}

// BuildReport filters the dataset and aggregates the selection into a report.
// An empty selection returns a report with an empty-result warning and no
// aggregation; the target is not resolved in that case.
func (s *Summarizer) BuildReport(ctx context.Context, ds *domain.Dataset, f domain.Filter, policy domain.TargetPolicy) (*domain.ProgressReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = s.policy
	}

	selection, err := ApplyFilter(ds, f)
	if err != nil {
		return nil, err
	}

	report := &domain.ProgressReport{
		PlantName:   ds.PlantName,
		Filter:      f,
		Rows:        []domain.DailyProgress{},
		Trackers:    []domain.TrackerTotal{},
		GeneratedAt: s.now().UTC(),
	}

	if len(selection) == 0 {
		report.Target = domain.Target{Policy: policy}
		report.Warnings = append(report.Warnings, domain.Warning{
			Kind:    domain.WarningEmptyResult,
			Message: "no records match the selected filters",
		})
		s.logger.InfoContext(ctx, "empty selection", slog.Any("filter", f))
		return report, nil
	}

	report.Target = TargetFor(ds, selection, policy)
	report.Rows = CalculateProgress(selection, report.Target.Value)
	report.Summary = Summarize(ds, selection, report.Rows)
	report.Trackers = PanelsByTracker(selection)
	if ds.HasColumn(domain.ColumnDCPower) {
		report.Inverters = PowerByInverter(selection)
	}

	s.logger.DebugContext(ctx, "report built",
		slog.String("plant", ds.PlantName),
		slog.Int("records", len(selection)),
		slog.Int("days", len(report.Rows)),
		slog.Float64("target", report.Target.Value),
		slog.String("target_source", string(report.Target.Source)),
		slog.String("target_policy", string(report.Target.Policy)))

	return report, nil
}

// Summarize computes the KPI cards for a selection and its progress rows.
// Totals over columns the dataset does not carry are zero.
func Summarize(ds *domain.Dataset, selection []domain.CleaningRecord, rows []domain.DailyProgress) domain.DashboardSummary {
	var summary domain.DashboardSummary
	trackers := make(map[string]struct{})
	days := make(map[time.Time]struct{})

	for _, rec := range selection {
		summary.TotalPanels += rec.PanelsCleaned
		summary.TotalStrings += rec.Strings
		summary.TotalDCPower += rec.DCPower
		trackers[rec.Tracker] = struct{}{}
		days[rec.Date] = struct{}{}
	}
	if !ds.HasColumn(domain.ColumnStrings) {
		summary.TotalStrings = 0
	}
	if !ds.HasColumn(domain.ColumnDCPower) {
		summary.TotalDCPower = 0
	}

	summary.RecordCount = len(selection)
	summary.TrackerCount = len(trackers)
	summary.DayCount = len(days)

	daily := make(stats.Float64Data, 0, len(rows))
	for _, r := range rows {
		daily = append(daily, r.PanelsCleaned)
		if r.ProgressPercent > summary.MaxProgress {
			summary.MaxProgress = r.ProgressPercent
		}
	}
	summary.DailyStatistics = dailyStatistics(daily)
	return summary
}

func dailyStatistics(daily stats.Float64Data) domain.DailyStats {
	if daily.Len() == 0 {
		return domain.DailyStats{}
	}
	var out domain.DailyStats
	if v, err := daily.Mean(); err == nil {
		out.Mean = round2(v)
	}
	if v, err := daily.Median(); err == nil {
		out.Median = round2(v)
	}
	if v, err := daily.Max(); err == nil {
		out.Max = v
	}
	if v, err := daily.StandardDeviation(); err == nil {
		out.StdDev = round2(v)
	}
	return out
}

func round2(v float64) float64 {
	r, err := stats.Round(v, percentPlaces)
	if err != nil {
		return v
	}
	return r
}

// PanelsByTracker sums cleaned panels per tracker, ordered by tracker.
func PanelsByTracker(selection []domain.CleaningRecord) []domain.TrackerTotal {
	totals := make(map[string]float64)
	for _, rec := range selection {
		totals[rec.Tracker] += rec.PanelsCleaned
	}
	out := make([]domain.TrackerTotal, 0, len(totals))
	for t, v := range totals {
		out = append(out, domain.TrackerTotal{Tracker: t, PanelsCleaned: v})
	}
	sort.Slice(out, func(i, j int) bool { return naturalLess(out[i].Tracker, out[j].Tracker) })
	return out
}

// PowerByInverter sums associated DC power per inverter, ordered by inverter.
// Records without an inverter are skipped.
func PowerByInverter(selection []domain.CleaningRecord) []domain.InverterTotal {
	totals := make(map[string]float64)
	for _, rec := range selection {
		if rec.Inverter == "" {
			continue
		}
		totals[rec.Inverter] += rec.DCPower
	}
	out := make([]domain.InverterTotal, 0, len(totals))
	for inv, v := range totals {
		out = append(out, domain.InverterTotal{Inverter: inv, DCPower: v})
	}
	sort.Slice(out, func(i, j int) bool { return naturalLess(out[i].Inverter, out[j].Inverter) })
	return out
}

// FilterOptions lists the selectable values of each filter dimension.
// Box values come from the reference sheet.
func FilterOptions(ds *domain.Dataset) domain.FilterOptions {
	dates := make(map[time.Time]struct{})
	inverters := make(map[string]struct{})
	trackers := make(map[string]struct{})
	for _, rec := range ds.Records {
		dates[rec.Date] = struct{}{}
		trackers[rec.Tracker] = struct{}{}
		if rec.Inverter != "" {
			inverters[rec.Inverter] = struct{}{}
		}
	}

	dayList := make([]time.Time, 0, len(dates))
	for d := range dates {
		dayList = append(dayList, d)
	}
	sort.Slice(dayList, func(i, j int) bool { return dayList[i].Before(dayList[j]) })

	opts := domain.FilterOptions{
		Dates:     []string{domain.FilterAll},
		Inverters: append([]string{domain.FilterAll}, sortedKeys(inverters)...),
		Trackers:  append([]string{domain.FilterAll}, sortedKeys(trackers)...),
		Boxes:     []string{domain.FilterAll},
	}
	for _, d := range dayList {
		opts.Dates = append(opts.Dates, d.Format(domain.DateLayout))
	}

	boxes := make(map[string]struct{})
	for _, b := range ds.Reference.Values(domain.ColumnBox) {
		boxes[b] = struct{}{}
	}
	opts.Boxes = append(opts.Boxes, sortedKeys(boxes)...)
	return opts
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return naturalLess(out[i], out[j]) })
	return out
}

// naturalLess orders numeric identifiers numerically and everything else lexically.
func naturalLess(a, b string) bool {
	na, okA := finiteNumber(a)
	nb, okB := finiteNumber(b)
	switch {
	case okA && okB:
		if na != nb {
			return na < nb
		}
		return a < b
	case okA:
		return true
	case okB:
		return false
	}
	return a < b
}

// finiteNumber parses s as a number. NaN and Inf spellings count as text.
func finiteNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
