package status

import (
	"fmt"
	"math"

	"arcsched/internal/match"
	"arcsched/internal/model"
	"arcsched/internal/schedule"
)

// State is the present-tense status of the current hour.
type State string

const (
	// StateEmpty means no criteria are configured at all.
	StateEmpty State = "empty"
	// StateNone means criteria exist but nothing in the current hour matches.
	StateNone State = "none"
	// StateActive means at least one hit is running now.
	StateActive State = "active"
)

const secondsPerHour = 3600

// Active is the result of evaluating the current hour.
type Active struct {
	Status State       `json:"status"`
	Hits   []model.Hit `json:"hits"`
	// RemainingSeconds is the time left in the current hour.
	RemainingSeconds int `json:"remaining_seconds"`
}

// ActiveNow evaluates the row for now.UTCHour against c.
func ActiveNow(rows []schedule.Row, now model.Instant, c model.Criteria) Active {
	out := Active{
		Status:           StateEmpty,
		Hits:             []model.Hit{},
		RemainingSeconds: RemainingInHour(now.Minute, now.Second),
	}
	if !c.Configured() {
		return out
	}

	row := schedule.RowFor(rows, now.UTCHour)
	hits := match.Hits(row, c)
	if len(hits) == 0 {
		out.Status = StateNone
		return out
	}
	out.Status = StateActive
	out.Hits = hits
	return out
}

// RemainingInHour returns the seconds left in the hour at minute:second.
// An exact hour boundary reports 3599 so a full hour is never shown.
func RemainingInHour(minute, second int) int {
	elapsed := (minute*60 + second) % secondsPerHour
	if elapsed < 0 {
		elapsed += secondsPerHour
	}
	remaining := secondsPerHour - elapsed
	if remaining == secondsPerHour {
		remaining = secondsPerHour - 1
	}
	return remaining
}

// FormatRemaining renders seconds as MM:SS.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Reason explains a NextOccurrence result.
type Reason string

const (
	ReasonFound Reason = "found"
	// ReasonNoCriteria tells the caller to ask the user for a selection.
	ReasonNoCriteria Reason = "no_criteria"
	// ReasonExhausted means a full cycle was scanned without a hit.
	ReasonExhausted Reason = "exhausted"
)

// Next is the first upcoming hour with at least one hit.
type Next struct {
	Found  bool   `json:"found"`
	Reason Reason `json:"reason"`

	// DeltaHours is the scan offset of the hit hour from the current hour.
	DeltaHours int `json:"delta_hours"`
	// DeltaMinutes may be fractional; it is floored only when formatted.
	DeltaMinutes float64     `json:"delta_minutes"`
	UTCHour      int         `json:"utc_hour"`
	Hits         []model.Hit `json:"hits"`
}

// Countdown renders DeltaMinutes, or "--" when nothing was found.
func (n Next) Countdown() string {
	if !n.Found {
		return "--"
	}
	return FormatCountdown(n.DeltaMinutes)
}

// Primary returns the earliest hit of the found hour.
func (n Next) Primary() (model.Hit, bool) {
	if len(n.Hits) == 0 {
		return model.Hit{}, false
	}
	return n.Hits[0], true
}

// Extra is the number of hits beyond the primary one.
func (n Next) Extra() int {
	if len(n.Hits) <= 1 {
		return 0
	}
	return len(n.Hits) - 1
}

// NextOccurrence scans forward hour by hour, wrapping at 24, for the first
// hour with a hit. The current hour is included only when now sits exactly on
// the hour boundary.
func NextOccurrence(rows []schedule.Row, now model.Instant, c model.Criteria) Next {
	if !c.Configured() {
		return Next{Reason: ReasonNoCriteria, Hits: []model.Hit{}}
	}

	startDelta := 1
	if now.Minute == 0 && now.Second == 0 {
		startDelta = 0
	}

	for delta := startDelta; delta < schedule.HoursPerDay; delta++ {
		hour := schedule.NormalizeHour(now.UTCHour + delta)
		hits := match.Hits(schedule.RowFor(rows, hour), c)
		if len(hits) == 0 {
			continue
		}
		return Next{
			Found:        true,
			Reason:       ReasonFound,
			DeltaHours:   delta,
			DeltaMinutes: float64(delta*60-now.Minute) - float64(now.Second)/60,
			UTCHour:      hour,
			Hits:         hits,
		}
	}

	return Next{Reason: ReasonExhausted, Hits: []model.Hit{}}
}

// FormatCountdown renders whole minutes as "45m" or "2h 05m".
func FormatCountdown(deltaMinutes float64) string {
	total := int(math.Floor(deltaMinutes))
	if total < 0 {
		total = 0
	}
	hours, mins := total/60, total%60
	if hours <= 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %02dm", hours, mins)
}
