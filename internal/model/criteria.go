package model

// FilterSet is the global, non-directional match criterion: an (event,
// location) pair hits only if both are selected. An empty side never matches.
type FilterSet struct {
	events    map[EventKind]struct{}
	locations map[Location]struct{}
}

// NewFilterSet builds a filter from the given selections. Duplicates are
// collapsed.
func NewFilterSet(events []EventKind, locations []Location) FilterSet {
	f := FilterSet{
		events:    make(map[EventKind]struct{}, len(events)),
		locations: make(map[Location]struct{}, len(locations)),
	}
	for _, e := range events {
		f.events[e] = struct{}{}
	}
	for _, l := range locations {
		f.locations[l] = struct{}{}
	}
	return f
}

func (f FilterSet) HasEvent(e EventKind) bool {
	_, ok := f.events[e]
	return ok
}

func (f FilterSet) HasLocation(l Location) bool {
	_, ok := f.locations[l]
	return ok
}

// Configured reports whether both sides of the filter have a selection.
func (f FilterSet) Configured() bool {
	return len(f.events) > 0 && len(f.locations) > 0
}

// Events returns the selected events in declaration order.
func (f FilterSet) Events() []EventKind {
	out := make([]EventKind, 0, len(f.events))
	for _, e := range EventKinds {
		if f.HasEvent(e) {
			out = append(out, e)
		}
	}
	return out
}

// Locations returns the selected locations in declaration order.
func (f FilterSet) Locations() []Location {
	out := make([]Location, 0, len(f.locations))
	for _, l := range Locations {
		if f.HasLocation(l) {
			out = append(out, l)
		}
	}
	return out
}

// AlertRule is an explicit (event, location) pair created by the user.
// The JSON field for the location is "map" to stay compatible with stored data.
type AlertRule struct {
	ID       string    `json:"id"`
	Event    EventKind `json:"event"`
	Location Location  `json:"map"`
}

// Criteria bundles everything the match engine needs. A non-empty Rules list
// replaces the filter entirely; the two are never merged.
type Criteria struct {
	Filter FilterSet
	Rules  []AlertRule
}

// HasRules reports whether explicit rules are in effect.
func (c Criteria) HasRules() bool {
	return len(c.Rules) > 0
}

// Configured reports whether any criteria exist at all.
func (c Criteria) Configured() bool {
	return c.HasRules() || c.Filter.Configured()
}
