package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"arcsched/internal/i18n"
	appLog "arcsched/internal/log"
	"arcsched/internal/match"
	"arcsched/internal/model"
	"arcsched/internal/prefs"
	"arcsched/internal/schedule"
	"arcsched/internal/status"
)

type labelled struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type cellEventDTO struct {
	Event    model.EventKind `json:"event"`
	Label    string          `json:"label"`
	Selected bool            `json:"selected"`
}

type cellDTO struct {
	Location model.Location `json:"map"`
	Events   []cellEventDTO `json:"events"`
}

type rowDTO struct {
	UTCHour   int       `json:"utc_hour"`
	LocalHour int       `json:"local_hour"`
	Current   bool      `json:"current"`
	Cells     []cellDTO `json:"cells"`
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	Timezone    string     `json:"timezone"`
	Language    string     `json:"language"`
	OffsetHours int        `json:"offset_hours"`
	UTCHour     int        `json:"utc_hour"`
	LocalHour   int        `json:"local_hour"`
	Locations   []labelled `json:"locations"`
	Events      []labelled `json:"events"`
	Rows        []rowDTO   `json:"rows"`
}

// handleSchedule returns the projected table with highlighted cells.
//
// GET /api/schedule?tz=Europe/Madrid&lang=es
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	v := s.viewer(r)
	p := s.prefs.Load(r.Context())

	rows := schedule.Project(s.table, v.now.OffsetHours)
	grid := match.Grid(rows, p.Criteria())

	resp := scheduleResponse{
		Timezone:    v.loc.String(),
		Language:    v.tr.Tag().String(),
		OffsetHours: v.now.OffsetHours,
		UTCHour:     v.now.UTCHour,
		LocalHour:   v.now.LocalHour,
		Locations:   locationLabels(v.tr),
		Events:      eventLabels(v.tr),
		Rows:        make([]rowDTO, 0, len(grid)),
	}
	for _, gr := range grid {
		row := rowDTO{
			UTCHour:   gr.UTCHour,
			LocalHour: gr.LocalHour,
			Current:   gr.UTCHour == v.now.UTCHour,
			Cells:     make([]cellDTO, 0, len(gr.Cells)),
		}
		for _, c := range gr.Cells {
			cell := cellDTO{Location: c.Location, Events: make([]cellEventDTO, 0, len(c.Events))}
			for _, ev := range c.Events {
				cell.Events = append(cell.Events, cellEventDTO{
					Event:    ev.Event,
					Label:    i18n.EventLabel(v.tr, ev.Event),
					Selected: ev.Selected,
				})
			}
			row.Cells = append(row.Cells, cell)
		}
		resp.Rows = append(resp.Rows, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

type activeDTO struct {
	status.Active
	Remaining string `json:"remaining"`
	Label     string `json:"label"`
	Message   string `json:"message"`
}

type nextDTO struct {
	status.Next
	Countdown string `json:"countdown"`
	Label     string `json:"label"`
	Message   string `json:"message"`
}

// statusResponse is the JSON response shape for /api/status. Both halves
// are computed from the same captured instant.
type statusResponse struct {
	Timezone  string    `json:"timezone"`
	UTCHour   int       `json:"utc_hour"`
	LocalHour int       `json:"local_hour"`
	Active    activeDTO `json:"active"`
	Next      nextDTO   `json:"next"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := s.viewer(r)
	c := s.prefs.Load(r.Context()).Criteria()
	rows := schedule.Project(s.table, v.now.OffsetHours)

	active := status.ActiveNow(rows, v.now, c)
	next := status.NextOccurrence(rows, v.now, c)

	resp := statusResponse{
		Timezone:  v.loc.String(),
		UTCHour:   v.now.UTCHour,
		LocalHour: v.now.LocalHour,
		Active: activeDTO{
			Active:    active,
			Remaining: status.FormatRemaining(active.RemainingSeconds),
			Label:     i18n.HitLabel(v.tr, active.Hits),
			Message:   activeMessage(v.tr, active),
		},
		Next: nextDTO{
			Next:      next,
			Countdown: next.Countdown(),
			Label:     i18n.HitLabel(v.tr, next.Hits),
			Message:   nextMessage(v.tr, next),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func activeMessage(tr i18n.Localizer, a status.Active) string {
	switch a.Status {
	case status.StateEmpty:
		return tr.Sprintf("status.select_criteria")
	case status.StateNone:
		return tr.Sprintf("status.no_active")
	default:
		return tr.Sprintf("status.ends_in", status.FormatRemaining(a.RemainingSeconds))
	}
}

func nextMessage(tr i18n.Localizer, n status.Next) string {
	switch n.Reason {
	case status.ReasonNoCriteria:
		return tr.Sprintf("status.select_one_each")
	case status.ReasonExhausted:
		return tr.Sprintf("status.none_found")
	default:
		return tr.Sprintf("status.next_event")
	}
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Load(r.Context()))
}

// preferencesRequest replaces selections wholesale. Nil fields are left
// unchanged.
type preferencesRequest struct {
	Events    []string `json:"events"`
	Locations []string `json:"maps"`
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req preferencesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Events != nil {
		events := make([]model.EventKind, 0, len(req.Events))
		for _, raw := range req.Events {
			e, ok := model.ParseEventKind(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown event: "+raw)
				return
			}
			events = append(events, e)
		}
		if err := s.prefs.SetEvents(ctx, events); err != nil {
			s.storageError(w, err)
			return
		}
	}
	if req.Locations != nil {
		locations := make([]model.Location, 0, len(req.Locations))
		for _, raw := range req.Locations {
			l, ok := model.ParseLocation(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown map: "+raw)
				return
			}
			locations = append(locations, l)
		}
		if err := s.prefs.SetLocations(ctx, locations); err != nil {
			s.storageError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.prefs.Load(ctx))
}

func (s *Server) handleToggleEvent(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["event"]
	e, ok := model.ParseEventKind(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown event: "+raw)
		return
	}
	events, err := s.prefs.ToggleEvent(r.Context(), e)
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleToggleLocation(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["location"]
	l, ok := model.ParseLocation(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown map: "+raw)
		return
	}
	locations, err := s.prefs.ToggleLocation(r.Context(), l)
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"maps": locations})
}

func (s *Server) handleSetNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.prefs.SetNotifications(r.Context(), req.Enabled); err != nil {
		s.storageError(w, err)
		return
	}
	appLog.Info("notifications toggled", "enabled", req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rules": s.prefs.Load(r.Context()).Rules})
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Event    string `json:"event"`
		Location string `json:"map"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, ok := model.ParseEventKind(req.Event)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown event: "+req.Event)
		return
	}
	l, ok := model.ParseLocation(req.Location)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown map: "+req.Location)
		return
	}

	rule, err := s.prefs.AddRule(r.Context(), e, l)
	if err != nil {
		s.storageError(w, err)
		return
	}
	appLog.Info("rule added", "id", rule.ID, "event", rule.Event, "map", rule.Location)
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.prefs.RemoveRule(r.Context(), id); err != nil {
		s.storageError(w, err)
		return
	}
	appLog.Info("rule removed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// storageError maps preference errors to HTTP statuses.
func (s *Server) storageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prefs.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "rule not found")
	case errors.Is(err, prefs.ErrUnknownEvent), errors.Is(err, prefs.ErrUnknownLocation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("preference update failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
	}
}

func locationLabels(tr i18n.Localizer) []labelled {
	out := make([]labelled, 0, len(model.Locations))
	for _, l := range model.Locations {
		out = append(out, labelled{ID: string(l), Label: i18n.LocationLabel(tr, l)})
	}
	return out
}

func eventLabels(tr i18n.Localizer) []labelled {
	out := make([]labelled, 0, len(model.EventKinds))
	for _, e := range model.EventKinds {
		out = append(out, labelled{ID: string(e), Label: i18n.EventLabel(tr, e)})
	}
	return out
}
