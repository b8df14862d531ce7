package ics

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	ical "github.com/arran4/golang-ical"

	"arcsched/internal/i18n"
	"arcsched/internal/model"
)

const (
	DefaultProductID = "-//arcsched//event schedule//EN"
	uidDomain        = "arcsched"
)

// CalendarOptions controls the serialized feed.
type CalendarOptions struct {
	Name      string
	ProductID string
	Localizer i18n.Localizer
	// Stamp is written as DTSTAMP on every event. Zero means time.Now.
	Stamp time.Time
}

// BuildCalendar serializes occurrences into an iCalendar feed, one VEVENT per
// occurrence.
func BuildCalendar(occs []model.Occurrence, opts CalendarOptions) string {
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, occ := range occs {
		ev := cal.AddEvent(eventUID(occ))
		ev.SetDtStampTime(opts.Stamp.UTC())
		ev.SetStartAt(occ.Start.UTC())
		ev.SetEndAt(occ.End.UTC())
		ev.SetSummary(label(opts.Localizer, occ))
		ev.SetLocation(locationLabel(opts.Localizer, occ.Location))
		ev.SetProperty(ical.ComponentPropertyCategories, string(occ.Event))
	}
	return cal.Serialize()
}

// eventUID is stable for a given instance key so calendar clients update
// rather than duplicate events on refresh.
func eventUID(occ model.Occurrence) string {
	sum := sha1.Sum([]byte(occ.InstanceKey))
	return hex.EncodeToString(sum[:]) + "@" + uidDomain
}

func label(loc i18n.Localizer, occ model.Occurrence) string {
	if loc == nil {
		return string(occ.Event) + " @ " + string(occ.Location)
	}
	return i18n.HitLabel(loc, []model.Hit{{Event: occ.Event, Location: occ.Location}})
}

func locationLabel(loc i18n.Localizer, l model.Location) string {
	if loc == nil {
		return string(l)
	}
	return i18n.LocationLabel(loc, l)
}
