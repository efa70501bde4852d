package dataprocessing

import (
	"strings"

	"solarclean/pkg/contracts/domain"
)

// MaxColumns is the number of leading columns read from the daily sheet.
// Anything to the right of it is ignored.
const MaxColumns = 10

// TrackerColumnAliases is the priority-ordered list of accepted names for the
// equipment-unit identifier. The first alias present wins and is renamed to
// domain.ColumnTracker; later aliases that are also present stay untouched.
var TrackerColumnAliases = []string{domain.ColumnTracker, domain.ColumnBox}

// stringCountToken is matched case-insensitively inside column names to
// detect the string-count column.
const stringCountToken = "string"

// ColumnResolution records which decision fired for each resolved column.
type ColumnResolution struct {
	TrackerSource string   `json:"tracker_source"`
	StringsSource string   `json:"strings_source,omitempty"`
	Truncated     []string `json:"truncated,omitempty"`
}

// Renamed reports whether any column had to be renamed.
func (r ColumnResolution) Renamed() bool {
	return (r.TrackerSource != "" && r.TrackerSource != domain.ColumnTracker) ||
		(r.StringsSource != "" && r.StringsSource != domain.ColumnStrings)
}

// ResolveColumns maps a raw sheet onto the canonical schema:
//
//	identifier   first present of TrackerColumnAliases -> "Tracker", none -> SchemaError
//	string count exact "Strings", else first name containing "string" -> "Strings", none -> ok
//
// An existing "Strings" header always wins, even when an earlier column
// contains "string", so no rename can produce a duplicate header. Only the
// first MaxColumns columns are kept. The input table is not modified.
func ResolveColumns(t RawTable) (*RawTable, ColumnResolution, error) {
	var res ColumnResolution

	width := len(t.Headers)
	if width > MaxColumns {
		res.Truncated = append([]string(nil), t.Headers[MaxColumns:]...)
		width = MaxColumns
	}

	headers := make([]string, width)
	copy(headers, t.Headers[:width])

	trackerIdx := -1
	for _, alias := range TrackerColumnAliases {
		if idx := indexOf(headers, alias); idx >= 0 {
			trackerIdx = idx
			res.TrackerSource = alias
			break
		}
	}
	if trackerIdx < 0 {
		return nil, res, missingColumn(domain.ColumnTracker, TrackerColumnAliases...)
	}
	headers[trackerIdx] = domain.ColumnTracker

	if idx := indexOf(headers, domain.ColumnStrings); idx >= 0 {
		res.StringsSource = domain.ColumnStrings
	} else {
		for i, h := range headers {
			if i == trackerIdx {
				continue
			}
			if strings.Contains(strings.ToLower(h), stringCountToken) {
				res.StringsSource = h
				headers[i] = domain.ColumnStrings
				break
			}
		}
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		n := len(row)
		if n > width {
			n = width
		}
		rows[i] = append([]string(nil), row[:n]...)
	}

	return &RawTable{Name: t.Name, Headers: headers, Rows: rows}, res, nil
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}
