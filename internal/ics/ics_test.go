package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"arcsched/internal/i18n"
	"arcsched/internal/model"
)

func harvesterAtDam() model.Criteria {
	return model.Criteria{Rules: []model.AlertRule{{ID: "r", Event: model.Harvester, Location: model.Dam}}}
}

func TestExpandMatchesOverOneDay(t *testing.T) {
	start := time.Date(2026, 3, 5, 0, 30, 0, 0, time.UTC)
	res, err := ExpandMatches(ExpandConfig{
		Criteria:   harvesterAtDam(),
		RangeStart: start,
		RangeEnd:   start.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ExpandMatches: %v", err)
	}
	if res.Truncated {
		t.Error("expected no truncation")
	}
	// Harvester at DAM is scheduled for UTC 9 and UTC 21.
	if len(res.Occurrences) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(res.Occurrences))
	}
	if got := res.Occurrences[0].Start; !got.Equal(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first start %s", got)
	}
	if got := res.Occurrences[1].End.Sub(res.Occurrences[1].Start); got != time.Hour {
		t.Errorf("expected one-hour occurrences, got %s", got)
	}
	if res.Occurrences[0].InstanceKey == res.Occurrences[1].InstanceKey {
		t.Error("expected distinct instance keys")
	}
}

func TestExpandMatchesIncludesCurrentSlot(t *testing.T) {
	start := time.Date(2026, 3, 5, 9, 45, 0, 0, time.UTC)
	res, err := ExpandMatches(ExpandConfig{
		Criteria:   harvesterAtDam(),
		RangeStart: start,
		RangeEnd:   start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ExpandMatches: %v", err)
	}
	if len(res.Occurrences) != 1 || res.Occurrences[0].Start.Hour() != 9 {
		t.Fatalf("expected the running UTC 9 slot, got %+v", res.Occurrences)
	}
}

func TestExpandMatchesDisplayLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	start := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	res, err := ExpandMatches(ExpandConfig{
		Criteria:        harvesterAtDam(),
		DisplayLocation: tokyo,
		RangeStart:      start,
		RangeEnd:        start.Add(12 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ExpandMatches: %v", err)
	}
	if len(res.Occurrences) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(res.Occurrences))
	}
	if got := res.Occurrences[0].Start; got.Location() != tokyo || got.Hour() != 18 {
		t.Errorf("expected 18:00 JST, got %s", got)
	}
}

func TestExpandMatchesCap(t *testing.T) {
	start := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	res, err := ExpandMatches(ExpandConfig{
		Criteria:       harvesterAtDam(),
		RangeStart:     start,
		RangeEnd:       start.Add(72 * time.Hour),
		MaxOccurrences: 3,
	})
	if err != nil {
		t.Fatalf("ExpandMatches: %v", err)
	}
	if !res.Truncated || len(res.Occurrences) != 3 {
		t.Errorf("expected 3 occurrences with truncation, got %d truncated=%v", len(res.Occurrences), res.Truncated)
	}
}

func TestExpandMatchesEdgeCases(t *testing.T) {
	start := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if _, err := ExpandMatches(ExpandConfig{RangeStart: start, RangeEnd: start}); err == nil {
		t.Error("expected an error for an empty range")
	}

	res, err := ExpandMatches(ExpandConfig{RangeStart: start, RangeEnd: start.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("ExpandMatches: %v", err)
	}
	if len(res.Occurrences) != 0 {
		t.Errorf("expected no occurrences without criteria, got %d", len(res.Occurrences))
	}
}

func TestBuildCalendarRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	res, err := ExpandMatches(ExpandConfig{
		Criteria:   harvesterAtDam(),
		RangeStart: start,
		RangeEnd:   start.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ExpandMatches: %v", err)
	}

	out := BuildCalendar(res.Occurrences, CalendarOptions{
		Name:      "ArcRaiders alerts",
		Localizer: i18n.New("en"),
		Stamp:     start,
	})
	if !strings.Contains(out, "SUMMARY:Harvester @ Dam") {
		t.Errorf("expected localized summary in feed, got:\n%s", out)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 VEVENTs, got %d", len(events))
	}
	got, err := events[0].GetStartAt()
	if err != nil {
		t.Fatalf("GetStartAt: %v", err)
	}
	if !got.Equal(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected DTSTART %s", got)
	}

	again := BuildCalendar(res.Occurrences, CalendarOptions{Stamp: start})
	if events[0].Id() == "" || !strings.Contains(again, "UID:"+events[0].Id()) {
		t.Error("expected stable UIDs across builds")
	}
}
