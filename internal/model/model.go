package model

import "time"

// Location identifies one of the five fixed map areas.
type Location string

const (
	Dam          Location = "DAM"
	BuriedCity   Location = "BURIED CITY"
	SpacePort    Location = "SPACE PORT"
	BlueGate     Location = "BLUE GATE"
	StellaMontis Location = "STELLA MONTIS"
)

// Locations lists every location in declaration order. Hit lists and
// notification summaries are always ordered by this slice.
var Locations = []Location{Dam, BuriedCity, SpacePort, BlueGate, StellaMontis}

// EventKind identifies a recurring event type.
type EventKind string

const (
	Harvester            EventKind = "Harvester"
	Matriarch            EventKind = "Matriarch"
	NightRaid            EventKind = "Night Raid"
	UncoveredCaches      EventKind = "Uncovered Caches"
	ElectromagneticStorm EventKind = "Electromagnetic Storm"
	LushBlooms           EventKind = "Lush Blooms"
	ProspectingProbes    EventKind = "Prospecting Probes"
	HuskGraveyard        EventKind = "Husk Graveyard"
	LaunchTowerLoot      EventKind = "Launch Tower Loot"
	HiddenBunker         EventKind = "Hidden Bunker"
	LockedGate           EventKind = "Locked Gate"
)

// EventKinds lists every event kind in declaration order.
var EventKinds = []EventKind{
	Harvester,
	Matriarch,
	NightRaid,
	UncoveredCaches,
	ElectromagneticStorm,
	LushBlooms,
	ProspectingProbes,
	HuskGraveyard,
	LaunchTowerLoot,
	HiddenBunker,
	LockedGate,
}

// legacyEventKinds maps the short identifiers used by older stored data to
// their current names.
var legacyEventKinds = map[string]EventKind{
	"Night":  NightRaid,
	"Storm":  ElectromagneticStorm,
	"Caches": UncoveredCaches,
	"Blooms": LushBlooms,
	"Probes": ProspectingProbes,
	"Husks":  HuskGraveyard,
	"Tower":  LaunchTowerLoot,
	"Bunker": HiddenBunker,
}

var (
	eventKindSet = func() map[EventKind]struct{} {
		m := make(map[EventKind]struct{}, len(EventKinds))
		for _, e := range EventKinds {
			m[e] = struct{}{}
		}
		return m
	}()
	locationSet = func() map[Location]struct{} {
		m := make(map[Location]struct{}, len(Locations))
		for _, l := range Locations {
			m[l] = struct{}{}
		}
		return m
	}()
)

// Valid reports whether e is one of the current event kinds.
func (e EventKind) Valid() bool {
	_, ok := eventKindSet[e]
	return ok
}

// Valid reports whether l is one of the fixed locations.
func (l Location) Valid() bool {
	_, ok := locationSet[l]
	return ok
}

// ParseEventKind resolves a stored or user-supplied identifier, mapping legacy
// short names to their current form. Unknown identifiers return false.
func ParseEventKind(s string) (EventKind, bool) {
	if e := EventKind(s); e.Valid() {
		return e, true
	}
	e, ok := legacyEventKinds[s]
	return e, ok
}

// ParseLocation resolves a location identifier. There are no legacy aliases
// for locations.
func ParseLocation(s string) (Location, bool) {
	l := Location(s)
	return l, l.Valid()
}

// Hit is an (event, location) pair that satisfies the active criteria.
type Hit struct {
	Event    EventKind `json:"event"`
	Location Location  `json:"map"`
}

// Occurrence represents a single dated instance of a hit, used for calendar
// export. Start / End are in the display timezone.
type Occurrence struct {
	// InstanceKey uniquely identifies the occurrence across feeds; it is
	// derived from the UTC start time and the hit.
	InstanceKey string

	Event    EventKind
	Location Location

	Start time.Time
	End   time.Time
}
