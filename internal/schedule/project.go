package schedule

import (
	"sort"

	"arcsched/internal/model"
)

// HoursPerDay is the length of the rotation.
const HoursPerDay = 24

// Row is one hour of the table annotated with the viewer's local hour.
type Row struct {
	UTCHour   int                                  `json:"utc_hour"`
	LocalHour int                                  `json:"local_hour"`
	Events    map[model.Location][]model.EventKind `json:"events"`
}

// EventsAt returns the events at loc during this row, never nil.
func (r Row) EventsAt(loc model.Location) []model.EventKind {
	if evs, ok := r.Events[loc]; ok && evs != nil {
		return evs
	}
	return []model.EventKind{}
}

// NormalizeHour maps any integer onto 0..23.
func NormalizeHour(h int) int {
	return ((h % HoursPerDay) + HoursPerDay) % HoursPerDay
}

// Project converts the UTC table into rows ordered by local hour, so that the
// viewer's midnight comes first.
//
// offsetHours may be negative. The result always has 24 rows whose LocalHour
// values are a permutation of 0..23.
func Project(t Table, offsetHours int) []Row {
	rows := make([]Row, 0, HoursPerDay)
	for utc := 0; utc < HoursPerDay; utc++ {
		rows = append(rows, Row{
			UTCHour:   utc,
			LocalHour: NormalizeHour(utc + offsetHours),
			Events:    t.Entry(utc),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].LocalHour < rows[j].LocalHour
	})
	return rows
}

// RowFor looks up the row for a UTC hour. A missing row yields an empty row
// for that hour rather than an error.
func RowFor(rows []Row, utcHour int) Row {
	h := NormalizeHour(utcHour)
	for _, r := range rows {
		if r.UTCHour == h {
			return r
		}
	}
	return Row{
		UTCHour:   h,
		LocalHour: h,
		Events:    map[model.Location][]model.EventKind{},
	}
}
