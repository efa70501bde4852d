package dataprocessing

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"solarclean/pkg/contracts/domain"
)

// percentPlaces is the rounding applied to progress percentages.
const percentPlaces = 2

// CalculateProgress turns cleaning records into one row per calendar day with
// the running total and the percentage of target reached.
//
// Records without a date or tracker, or with a negative cleaned count, are
// skipped. The output is strictly
// ascending by date and empty only when no record survives. A zero target
// yields 0 for every percentage. The function keeps no state between calls.
func CalculateProgress(records []domain.CleaningRecord, target float64) []domain.DailyProgress {
	perDay := make(map[time.Time]float64)
	for _, rec := range records {
		if !countable(rec) {
			continue
		}
		perDay[truncateDay(rec.Date)] += rec.PanelsCleaned
	}
	if len(perDay) == 0 {
		return []domain.DailyProgress{}
	}

	days := make([]time.Time, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	rows := make([]domain.DailyProgress, len(days))
	var cumulative float64
	for i, d := range days {
		cumulative += perDay[d]
		rows[i] = domain.DailyProgress{
			Date:             d,
			PanelsCleaned:    perDay[d],
			CumulativePanels: cumulative,
			ProgressPercent:  percentOf(cumulative, target),
		}
	}
	return rows
}

// countable reports whether a record may enter the totals. Negative counts
// would make the running total decrease.
func countable(rec domain.CleaningRecord) bool {
	return !rec.Date.IsZero() && rec.Tracker != "" && rec.PanelsCleaned >= 0
}

func percentOf(value, target float64) float64 {
	if target == 0 {
		return 0
	}
	pct, err := stats.Round(value/target*100, percentPlaces)
	if err != nil {
		return 0
	}
	return pct
}

// ResolveTarget picks the denominator for progress percentages:
//
//	explicit target column present  -> max of that column over records
//	otherwise                       -> sum of cleaned panels over records
//
// Records skipped by CalculateProgress do not contribute.
func ResolveTarget(records []domain.CleaningRecord, hasTargetColumn bool) domain.Target {
	var (
		maxTarget float64
		sum       float64
	)
	for _, rec := range records {
		if !countable(rec) {
			continue
		}
		if rec.PanelsTarget > maxTarget {
			maxTarget = rec.PanelsTarget
		}
		sum += rec.PanelsCleaned
	}
	if hasTargetColumn {
		return domain.Target{Value: maxTarget, Source: domain.TargetFromColumnMax}
	}
	return domain.Target{Value: sum, Source: domain.TargetFromCleanedSum}
}

// TargetFor resolves the target of a selection under a policy. The selection
// policy resolves over the filtered records, the dataset policy over every
// record of the dataset.
func TargetFor(ds *domain.Dataset, selection []domain.CleaningRecord, policy domain.TargetPolicy) domain.Target {
	hasColumn := ds.HasColumn(domain.ColumnPanelsTarget)
	var target domain.Target
	switch policy {
	case domain.TargetPolicyDataset:
		target = ResolveTarget(ds.Records, hasColumn)
	default:
		policy = domain.TargetPolicySelection
		target = ResolveTarget(selection, hasColumn)
	}
	target.Policy = policy
	return target
}

// ParseTargetPolicy maps a textual policy, "" meaning the fallback.
func ParseTargetPolicy(value string, fallback domain.TargetPolicy) (domain.TargetPolicy, bool) {
	switch domain.TargetPolicy(value) {
	case "":
		return fallback, true
	case domain.TargetPolicySelection, domain.TargetPolicyDataset:
		return domain.TargetPolicy(value), true
	}
	return fallback, false
}
