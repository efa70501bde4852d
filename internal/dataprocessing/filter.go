package dataprocessing

import (
	"fmt"
	"strings"
	"time"

	"solarclean/pkg/contracts/domain"
)

// ApplyFilter returns the records matching every active criterion of f.
//
// A criterion equal to an "all" sentinel does not constrain. A criterion on a
// column the dataset does not carry (inverter or box) is ignored. The returned
// slice never aliases ds.Records.
func ApplyFilter(ds *domain.Dataset, f domain.Filter) ([]domain.CleaningRecord, error) {
	var (
		wantDate    time.Time
		useDate     = !domain.IsAll(f.Date)
		useInverter = !domain.IsAll(f.Inverter) && ds.HasColumn(domain.ColumnInverter)
		useBox      = !domain.IsAll(f.Box) && ds.HasColumn(domain.ColumnBox)
		useTracker  = !domain.IsAll(f.Tracker)
	)
	if useDate {
		d, ok := parseDate(f.Date, false)
		if !ok {
			return nil, fmt.Errorf("%w: date %q, expected %s", ErrInvalidFilter, f.Date, domain.DateLayout)
		}
		wantDate = d
	}

	inverter := strings.TrimSpace(f.Inverter)
	box := strings.TrimSpace(f.Box)
	tracker := strings.TrimSpace(f.Tracker)

	out := make([]domain.CleaningRecord, 0, len(ds.Records))
	for _, rec := range ds.Records {
		if useDate && !rec.Date.Equal(wantDate) {
			continue
		}
		if useInverter && rec.Inverter != inverter {
			continue
		}
		if useBox && rec.Box != box {
			continue
		}
		if useTracker && rec.Tracker != tracker {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
