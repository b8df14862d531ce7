package match

import (
	"arcsched/internal/model"
	"arcsched/internal/schedule"
)

// Matches reports whether (event, loc) matters to the user.
//
// When c has rules, only an exact rule pair matches and the filter is ignored
// entirely. Otherwise both the event and the location must be selected, and an
// empty selection on either side matches nothing.
func Matches(event model.EventKind, loc model.Location, c model.Criteria) bool {
	if c.HasRules() {
		for _, r := range c.Rules {
			if r.Event == event && r.Location == loc {
				return true
			}
		}
		return false
	}
	if !c.Filter.Configured() {
		return false
	}
	return c.Filter.HasEvent(event) && c.Filter.HasLocation(loc)
}

// Hits returns every matching pair in row, locations in declaration order and
// events in table order within a location.
func Hits(row schedule.Row, c model.Criteria) []model.Hit {
	var hits []model.Hit
	if !c.Configured() {
		return hits
	}
	for _, loc := range model.Locations {
		for _, ev := range row.EventsAt(loc) {
			if Matches(ev, loc, c) {
				hits = append(hits, model.Hit{Event: ev, Location: loc})
			}
		}
	}
	return hits
}

// Cell is one location of a grid row as the schedule renderer needs it.
type Cell struct {
	Location model.Location `json:"map"`
	Events   []CellEvent    `json:"events"`
}

// CellEvent is an event inside a cell with its highlight flag.
type CellEvent struct {
	Event    model.EventKind `json:"event"`
	Selected bool            `json:"selected"`
}

// GridRow is a projected row with highlighted cells.
type GridRow struct {
	UTCHour   int    `json:"utc_hour"`
	LocalHour int    `json:"local_hour"`
	Cells     []Cell `json:"cells"`
}

// Grid annotates every projected row with per-event highlight flags, keeping
// the rows' local-hour order.
func Grid(rows []schedule.Row, c model.Criteria) []GridRow {
	out := make([]GridRow, 0, len(rows))
	for _, r := range rows {
		gr := GridRow{
			UTCHour:   r.UTCHour,
			LocalHour: r.LocalHour,
			Cells:     make([]Cell, 0, len(model.Locations)),
		}
		for _, loc := range model.Locations {
			evs := r.EventsAt(loc)
			cell := Cell{Location: loc, Events: make([]CellEvent, 0, len(evs))}
			for _, ev := range evs {
				cell.Events = append(cell.Events, CellEvent{Event: ev, Selected: Matches(ev, loc, c)})
			}
			gr.Cells = append(gr.Cells, cell)
		}
		out = append(out, gr)
	}
	return out
}
