package web

import (
	"net/http"
	"strconv"
	"time"

	"arcsched/internal/alert"
	"arcsched/internal/ics"
	appLog "arcsched/internal/log"
	"arcsched/internal/presence"
)

const (
	defaultCalendarHours = 48
	maxCalendarHours     = 24 * 14
)

type presenceResponse struct {
	Count int `json:"count"`
	// Reply asks the sender to answer with its own hello.
	Reply             presence.MessageType `json:"reply,omitempty"`
	HeartbeatSeconds  int                  `json:"heartbeat_seconds"`
	StaleAfterSeconds int                  `json:"stale_after_seconds"`
}

// handlePresence records one hello/ping/bye and returns the live count.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	var msg presence.Message
	if err := decodeBody(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := msg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := presenceResponse{
		HeartbeatSeconds:  int(presence.HeartbeatInterval / time.Second),
		StaleAfterSeconds: int(presence.StaleAfter / time.Second),
	}
	if s.presence.Observe(msg) {
		resp.Reply = presence.Hello
	}
	s.presence.Sweep()
	resp.Count = s.presence.Count()
	s.metrics.SetPresence(resp.Count)
	writeJSON(w, http.StatusOK, resp)
}

type feedResponse struct {
	Notifications []alert.Notification `json:"notifications"`
	Latest        uint64               `json:"latest"`
}

// handleFeed returns notifications newer than ?since=<seq>.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeJSON(w, http.StatusOK, feedResponse{Notifications: []alert.Notification{}})
		return
	}
	since, err := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	if err != nil {
		since = 0
	}
	items, latest := s.feed.Since(since)
	writeJSON(w, http.StatusOK, feedResponse{Notifications: items, Latest: latest})
}

// handleTestNotification forces a notification check regardless of the
// hourly de-duplication stamp and the enabled flag.
func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications are not running")
		return
	}
	if !s.testLimiter.Allow() {
		w.Header().Set("Retry-After", "10")
		writeError(w, http.StatusTooManyRequests, "too many test notifications")
		return
	}

	d, err := s.runner.Tick(r.Context(), true)
	if err != nil {
		appLog.Error("test notification delivery failed", err)
		writeError(w, http.StatusBadGateway, "failed to deliver notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":  d.Kind,
		"title": d.Title,
		"body":  d.Body,
		"hits":  d.Hits,
	})
}

// handleCalendar serves upcoming matches as an iCalendar feed.
//
// GET /calendar.ics?hours=48
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	v := s.viewer(r)
	hours := parseIntDefault(r.URL.Query().Get("hours"), defaultCalendarHours)
	if hours <= 0 {
		hours = defaultCalendarHours
	}
	if hours > maxCalendarHours {
		hours = maxCalendarHours
	}

	start := v.now.Time
	res, err := ics.ExpandMatches(ics.ExpandConfig{
		Table:           s.table,
		Criteria:        s.prefs.Load(r.Context()).Criteria(),
		DisplayLocation: v.loc,
		RangeStart:      start,
		RangeEnd:        start.Add(time.Duration(hours) * time.Hour),
	})
	if err != nil {
		appLog.Error("calendar expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}

	body := ics.BuildCalendar(res.Occurrences, ics.CalendarOptions{
		Name:      "ArcRaiders events",
		Localizer: v.tr,
		Stamp:     start,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="arcsched.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
