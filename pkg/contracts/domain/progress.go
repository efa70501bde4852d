package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used on the wire and in exports.
const DateLayout = "2006-01-02"

// FilterAll is the sentinel meaning "no constraint" for a filter criterion.
const FilterAll = "Todos"

// IsAll reports whether a criterion value is one of the accepted "all" sentinels.
func IsAll(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all", "todos", "todas":
		return true
	}
	return false
}

// Filter is a selection over a dataset. Each criterion is optional; an empty
// or sentinel value does not constrain. Criteria are combined with AND.
type Filter struct {
	Date     string `json:"date,omitempty"`
	Inverter string `json:"inverter,omitempty"`
	Box      string `json:"box,omitempty"`
	Tracker  string `json:"tracker,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return IsAll(f.Date) && IsAll(f.Inverter) && IsAll(f.Box) && IsAll(f.Tracker)
}

// DailyProgress is one aggregated row per distinct calendar day.
type DailyProgress struct {
	Date             time.Time `json:"date"`
	PanelsCleaned    float64   `json:"panels_cleaned"`
	CumulativePanels float64   `json:"cumulative_panels"`
	ProgressPercent  float64   `json:"progress_percent"`
}

// TargetSource names the branch of the target resolution rule that fired.
type TargetSource string

const (
	// TargetFromColumnMax means the target is the max of the explicit target column
	TargetFromColumnMax TargetSource = "column_max"
	// TargetFromCleanedSum means the target fell back to the sum of cleaned panels
	TargetFromCleanedSum TargetSource = "cleaned_sum"
)

// TargetPolicy selects which record set the target is resolved over.
type TargetPolicy string

const (
	// TargetPolicySelection resolves the target over the filtered selection
	TargetPolicySelection TargetPolicy = "selection"
	// TargetPolicyDataset resolves the target once over the whole loaded dataset
	TargetPolicyDataset TargetPolicy = "dataset"
)

// Target is the denominator used for percentage completion.
type Target struct {
	Value  float64      `json:"value"`
	Source TargetSource `json:"source"`
	Policy TargetPolicy `json:"policy"`
}

// DailyStats describes the distribution of per-day cleaned panels.
type DailyStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// DashboardSummary holds the KPI cards of the dashboard.
type DashboardSummary struct {
	TotalPanels     float64    `json:"total_panels"`
	TotalStrings    float64    `json:"total_strings"`
	MaxProgress     float64    `json:"max_progress_percent"`
	TotalDCPower    float64    `json:"total_dc_power_kw"`
	RecordCount     int        `json:"record_count"`
	DayCount        int        `json:"day_count"`
	TrackerCount    int        `json:"tracker_count"`
	DailyStatistics DailyStats `json:"daily_statistics"`
}

// TrackerTotal is the panels cleaned on a single tracker.
type TrackerTotal struct {
	Tracker       string  `json:"tracker"`
	PanelsCleaned float64 `json:"panels_cleaned"`
}

// InverterTotal is the DC power associated with a single inverter.
type InverterTotal struct {
	Inverter string  `json:"inverter"`
	DCPower  float64 `json:"dc_power_kw"`
}

// ProgressReport is everything the dashboard renders for one filter selection.
type ProgressReport struct {
	PlantName   string           `json:"plant_name"`
	Filter      Filter           `json:"filter"`
	Target      Target           `json:"target"`
	Rows        []DailyProgress  `json:"rows"`
	Summary     DashboardSummary `json:"summary"`
	Trackers    []TrackerTotal   `json:"trackers"`
	Inverters   []InverterTotal  `json:"inverters,omitempty"`
	Warnings    []Warning        `json:"warnings,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// FilterOptions lists the selectable values of every filter dimension.
// Each list starts with the "all" sentinel.
type FilterOptions struct {
	Dates     []string `json:"dates"`
	Inverters []string `json:"inverters"`
	Boxes     []string `json:"boxes"`
	Trackers  []string `json:"trackers"`
}
