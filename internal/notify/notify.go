package notify

import (
	"strings"

	"golang.org/x/text/message"

	"arcsched/internal/i18n"
	"arcsched/internal/match"
	"arcsched/internal/model"
	"arcsched/internal/schedule"
)

// Stamp records the (UTC day of month, UTC hour) of the last automatic
// notification. The zero value means nothing has been sent yet.
type Stamp struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`
}

// IsZero reports whether no notification has been recorded.
func (s Stamp) IsZero() bool {
	return s.Day == 0
}

// StampFor returns the de-duplication stamp of now.
func StampFor(now model.Instant) Stamp {
	return Stamp{Day: now.Day, Hour: schedule.NormalizeHour(now.UTCHour)}
}

// Kind classifies a fired notification.
type Kind string

const (
	KindSingle  Kind = "single"
	KindSummary Kind = "summary"
	KindClear   Kind = "clear"
)

// Localizer prints catalog messages and upper-cases labels.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
	Upper(s string) string
}

// Decision is the outcome of one notification check.
type Decision struct {
	Fire  bool
	Kind  Kind
	Title string
	Body  string
	Hits  []model.Hit
	// Stamp is the stamp the caller must keep for the next check.
	Stamp Stamp
}

// Decide evaluates row (the row for now.UTCHour) and tells the caller whether
// to display a notification.
//
// Automatic checks fire at most once per (day, hour); a forced check ignores
// the stamp. A forced check with no hits produces an "all clear" message, an
// automatic one produces nothing and leaves the stamp untouched.
func Decide(row schedule.Row, c model.Criteria, now model.Instant, forced bool, last Stamp, loc Localizer) Decision {
	stamp := StampFor(now)
	if !forced && last == stamp {
		return Decision{Stamp: last}
	}

	hits := match.Hits(row, c)
	switch {
	case len(hits) == 0 && forced:
		bodyKey := "notify.clear.body_filters"
		if c.HasRules() {
			bodyKey = "notify.clear.body_rules"
		}
		return Decision{
			Fire:  true,
			Kind:  KindClear,
			Title: loc.Sprintf("notify.clear.title"),
			Body:  loc.Sprintf(bodyKey),
			Stamp: last,
		}
	case len(hits) == 0:
		return Decision{Stamp: last}
	case len(hits) == 1:
		h := hits[0]
		return Decision{
			Fire:  true,
			Kind:  KindSingle,
			Title: loc.Sprintf("notify.single.title", loc.Upper(i18n.EventLabel(loc, h.Event))),
			Body:  loc.Sprintf("notify.single.body", i18n.LocationLabel(loc, h.Location)),
			Hits:  hits,
			Stamp: stamp,
		}
	default:
		return Decision{
			Fire:  true,
			Kind:  KindSummary,
			Title: loc.Sprintf("notify.multi.title", len(hits)),
			Body:  summaryBody(hits, loc),
			Hits:  hits,
			Stamp: stamp,
		}
	}
}

// summaryBody groups hits by location, one line per location that has hits.
func summaryBody(hits []model.Hit, loc Localizer) string {
	lines := make([]string, 0, len(model.Locations))
	for _, l := range model.Locations {
		var events []string
		for _, h := range hits {
			if h.Location == l {
				events = append(events, i18n.EventLabel(loc, h.Event))
			}
		}
		if len(events) == 0 {
			continue
		}
		lines = append(lines, loc.Sprintf("notify.multi.line", i18n.LocationLabel(loc, l), strings.Join(events, ", ")))
	}
	return strings.Join(lines, "\n")
}
