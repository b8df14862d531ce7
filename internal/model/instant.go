package model

import "time"

// Instant is a single captured "now". Every evaluator run during one tick or
// one request must receive the same Instant so that countdowns agree.
type Instant struct {
	Time time.Time

	// UTC wall clock.
	UTCHour int
	Minute  int
	Second  int
	// Day is the UTC day of month; together with UTCHour it forms the
	// notification de-duplication stamp.
	Day int

	// LocalHour is the hour in the viewer's timezone.
	LocalHour int
	// OffsetHours is the viewer's whole-hour UTC offset at Time.
	OffsetHours int
}

// Capture snapshots t for a viewer in loc. A nil loc means UTC.
func Capture(t time.Time, loc *time.Location) Instant {
	if loc == nil {
		loc = time.UTC
	}
	u := t.UTC()
	local := t.In(loc)
	_, offset := local.Zone()
	return Instant{
		Time:        t,
		UTCHour:     u.Hour(),
		Minute:      u.Minute(),
		Second:      u.Second(),
		Day:         u.Day(),
		LocalHour:   local.Hour(),
		OffsetHours: offset / 3600,
	}
}
