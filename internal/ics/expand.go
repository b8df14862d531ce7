package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "arcsched/internal/log"
	"arcsched/internal/match"
	"arcsched/internal/model"
	"arcsched/internal/schedule"
)

const (
	defaultMaxOccurrences = 2000
)

// ExpandConfig controls which hourly slots are enumerated.
type ExpandConfig struct {
	// Table defaults to schedule.Default.
	Table    schedule.Table
	Criteria model.Criteria

	// DisplayLocation is the timezone occurrences are converted to.
	// If nil, UTC is used.
	DisplayLocation *time.Location

	// Slots overlapping [RangeStart, RangeEnd) are considered. The slot
	// containing RangeStart is included.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps the result. If zero, defaultMaxOccurrences is used.
	MaxOccurrences int
}

// ExpandResult wraps the expanded occurrences.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// Truncated is set when MaxOccurrences cut the result short.
	Truncated bool
}

// ExpandMatches enumerates the hourly slots of the window with an HOURLY
// recurrence and emits one occurrence per matching (event, location) pair,
// in slot order and then hit order.
func ExpandMatches(cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if !cfg.RangeEnd.After(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd must be after RangeStart")
	}
	if cfg.Table == nil {
		cfg.Table = schedule.Default
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.UTC
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	result.Occurrences = []model.Occurrence{}
	if !cfg.Criteria.Configured() {
		return result, nil
	}

	first := cfg.RangeStart.UTC().Truncate(time.Hour)
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.HOURLY,
		Dtstart: first,
		Until:   cfg.RangeEnd.UTC(),
	})
	if err != nil {
		return result, fmt.Errorf("expand: build hourly rule: %w", err)
	}

	// Slots only depend on the UTC hour, so one projection serves the window.
	rows := schedule.Project(cfg.Table, 0)

	for _, slot := range r.All() {
		if !slot.Before(cfg.RangeEnd) {
			break
		}
		row := schedule.RowFor(rows, slot.Hour())
		for _, h := range match.Hits(row, cfg.Criteria) {
			if len(result.Occurrences) == cfg.MaxOccurrences {
				result.Truncated = true
				appLog.Warn("expand: occurrence cap reached",
					"cap", cfg.MaxOccurrences,
					"range_start", cfg.RangeStart.Format(time.RFC3339),
					"range_end", cfg.RangeEnd.Format(time.RFC3339),
				)
				return result, nil
			}
			result.Occurrences = append(result.Occurrences, makeOccurrence(h, slot, cfg.DisplayLocation))
		}
	}
	return result, nil
}

// makeOccurrence builds a one-hour occurrence for h starting at slot,
// normalized into displayLoc.
func makeOccurrence(h model.Hit, slot time.Time, displayLoc *time.Location) model.Occurrence {
	start := slot.In(displayLoc)
	return model.Occurrence{
		// Stable per-instance key: UTC slot start plus the pair.
		InstanceKey: fmt.Sprintf("%s/%s/%s", slot.UTC().Format(time.RFC3339), h.Location, h.Event),
		Event:       h.Event,
		Location:    h.Location,
		Start:       start,
		End:         start.Add(time.Hour),
	}
}
