package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"arcsched/internal/alert"
	"arcsched/internal/config"
	"arcsched/internal/i18n"
	"arcsched/internal/metrics"
	"arcsched/internal/model"
	"arcsched/internal/prefs"
)

type testEnv struct {
	srv   *Server
	store *prefs.Store
	h     http.Handler
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}

	store := prefs.NewStore(prefs.NewMemoryKV())
	feed := alert.NewFeed(cfg.FeedSize)
	m := metrics.New()
	runner := alert.New(alert.Options{
		Prefs:     store,
		Localizer: i18n.New(cfg.Language),
		Sink:      feed,
		Metrics:   m,
	})
	srv := NewServer(Options{
		Config:    cfg,
		Prefs:     store,
		Runner:    runner,
		Feed:      feed,
		Metrics:   m,
		AccessLog: io.Discard,
	})
	at := time.Date(2026, 3, 5, 10, 15, 0, 0, time.UTC)
	srv.now = func() time.Time { return at }
	return &testEnv{srv: srv, store: store, h: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

type statusBody struct {
	UTCHour int `json:"utc_hour"`
	Active  struct {
		Status           string      `json:"status"`
		Hits             []model.Hit `json:"hits"`
		RemainingSeconds int         `json:"remaining_seconds"`
		Remaining        string      `json:"remaining"`
		Label            string      `json:"label"`
		Message          string      `json:"message"`
	} `json:"active"`
	Next struct {
		Found        bool        `json:"found"`
		Reason       string      `json:"reason"`
		DeltaMinutes float64     `json:"delta_minutes"`
		Hits         []model.Hit `json:"hits"`
		Countdown    string      `json:"countdown"`
		Message      string      `json:"message"`
	} `json:"next"`
}

func TestHealthBypassesBasicAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "raider", Password: "secret"}
	})

	if rec := env.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("expected /health to be public, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/status", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("raider", "secret")
	rec := httptest.NewRecorder()
	env.h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with credentials, got %d", rec.Code)
	}
}

func TestStatusWithoutCriteria(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body statusBody
	decodeJSON(t, rec, &body)

	if body.Active.Status != "empty" || body.Active.Message != "Select filters or rules" {
		t.Errorf("unexpected active block %+v", body.Active)
	}
	if body.Next.Found || body.Next.Reason != "no_criteria" || body.Next.Countdown != "--" {
		t.Errorf("unexpected next block %+v", body.Next)
	}
}

func TestStatusWithRule(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/rules", `{"event":"Night Raid","map":"DAM"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from rule creation, got %d: %s", rec.Code, rec.Body.String())
	}

	var body statusBody
	decodeJSON(t, env.do(t, http.MethodGet, "/api/status", ""), &body)

	if body.UTCHour != 10 {
		t.Fatalf("expected the captured UTC hour 10, got %d", body.UTCHour)
	}
	if body.Active.Status != "active" || body.Active.Label != "Night Raid @ Dam" {
		t.Errorf("expected Night Raid at Dam to be active, got %+v", body.Active)
	}
	if body.Active.RemainingSeconds != 45*60 || body.Active.Remaining != "45:00" {
		t.Errorf("expected 45:00 remaining, got %d / %q", body.Active.RemainingSeconds, body.Active.Remaining)
	}
	if !body.Next.Found || len(body.Next.Hits) == 0 {
		t.Fatalf("expected an upcoming hit, got %+v", body.Next)
	}
	if body.Next.Hits[0] != (model.Hit{Event: model.NightRaid, Location: model.Dam}) {
		t.Errorf("unexpected next hit %+v", body.Next.Hits[0])
	}
	// Both halves come from one instant: the next hit is 45 minutes plus a
	// whole number of hours away.
	if rem := int(body.Next.DeltaMinutes) % 60; rem != 45 {
		t.Errorf("expected next delta to share the 45-minute offset, got %.1f", body.Next.DeltaMinutes)
	}
}

func TestScheduleProjection(t *testing.T) {
	env := newTestEnv(t, nil)

	var body struct {
		OffsetHours int `json:"offset_hours"`
		Rows        []struct {
			UTCHour   int  `json:"utc_hour"`
			LocalHour int  `json:"local_hour"`
			Current   bool `json:"current"`
			Cells     []struct {
				Location string `json:"map"`
			} `json:"cells"`
		} `json:"rows"`
	}
	rec := env.do(t, http.MethodGet, "/api/schedule?tz=Asia/Tokyo&lang=es", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decodeJSON(t, rec, &body)

	if body.OffsetHours != 9 {
		t.Fatalf("expected offset 9 for Tokyo, got %d", body.OffsetHours)
	}
	if len(body.Rows) != 24 {
		t.Fatalf("expected 24 rows, got %d", len(body.Rows))
	}
	if body.Rows[0].LocalHour != 0 || body.Rows[0].UTCHour != 15 {
		t.Errorf("expected first row local 0 / UTC 15, got %+v", body.Rows[0])
	}
	current := 0
	for _, r := range body.Rows {
		if r.Current {
			current++
			if r.UTCHour != 10 || r.LocalHour != 19 {
				t.Errorf("unexpected current row %+v", r)
			}
		}
		if len(r.Cells) != len(model.Locations) {
			t.Errorf("expected one cell per map, got %d", len(r.Cells))
		}
	}
	if current != 1 {
		t.Errorf("expected exactly one current row, got %d", current)
	}
	if !strings.Contains(rec.Body.String(), "Presa") {
		t.Error("expected Spanish labels in the response")
	}
}

func TestPreferenceEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/preferences/events/Night/toggle", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Night Raid"`) {
		t.Errorf("expected legacy id to toggle Night Raid, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, "/api/preferences/events/Bogus/toggle", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown event, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/preferences/locations/BURIED%20CITY/toggle", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a location toggle, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/preferences", `{"maps":["DAM","MOON"]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown map, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/preferences", `{"maps":["SPACE PORT"]}`); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a valid replacement, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/preferences/notifications", `{"enabled":true}`); rec.Code != http.StatusOK {
		t.Errorf("expected 200 enabling notifications, got %d", rec.Code)
	}

	var p prefs.Preferences
	decodeJSON(t, env.do(t, http.MethodGet, "/api/preferences", ""), &p)
	if len(p.Events) != 1 || len(p.Locations) != 1 || p.Locations[0] != model.SpacePort || !p.NotificationsEnabled {
		t.Errorf("unexpected stored preferences %+v", p)
	}
}

func TestRuleEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	var rule model.AlertRule
	rec := env.do(t, http.MethodPost, "/api/rules", `{"event":"Harvester","map":"DAM"}`)
	decodeJSON(t, rec, &rule)
	if rule.ID == "" || rule.Event != model.Harvester {
		t.Fatalf("unexpected rule %+v", rule)
	}

	if rec := env.do(t, http.MethodPost, "/api/rules", `{"event":"Harvester"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a rule without a map, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/rules", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed body, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/rules/"+rule.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 removing the rule, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/rules/"+rule.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 removing it twice, got %d", rec.Code)
	}
}

func TestTestNotificationIsRateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.TestAlertRate = 1 })

	rec := env.do(t, http.MethodPost, "/api/notifications/test", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for the first test, got %d: %s", rec.Code, rec.Body.String())
	}
	var n struct {
		Kind string `json:"kind"`
		Body string `json:"body"`
	}
	decodeJSON(t, rec, &n)
	if n.Kind != "clear" || n.Body != "No active events match your filters." {
		t.Errorf("expected an all-clear for empty preferences, got %+v", n)
	}

	if rec := env.do(t, http.MethodPost, "/api/notifications/test", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for an immediate second test, got %d", rec.Code)
	}

	var feed struct {
		Notifications []alert.Notification `json:"notifications"`
		Latest        uint64               `json:"latest"`
	}
	decodeJSON(t, env.do(t, http.MethodGet, "/api/notifications?since=0", ""), &feed)
	if feed.Latest != 1 || len(feed.Notifications) != 1 || !feed.Notifications[0].Forced {
		t.Errorf("expected the forced all-clear in the feed, got %+v", feed)
	}
	decodeJSON(t, env.do(t, http.MethodGet, "/api/notifications?since=1", ""), &feed)
	if len(feed.Notifications) != 0 {
		t.Errorf("expected nothing newer than seq 1, got %d", len(feed.Notifications))
	}

	// A tab that polled a previous server process still holds a higher cursor.
	decodeJSON(t, env.do(t, http.MethodGet, "/api/notifications?since=9", ""), &feed)
	if feed.Latest != 1 || len(feed.Notifications) != 1 {
		t.Errorf("expected a stale cursor to receive the retained notification, got %+v", feed)
	}
}

func TestPresenceEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	var resp presenceResponse
	decodeJSON(t, env.do(t, http.MethodPost, "/api/presence", `{"type":"hello","id":"a"}`), &resp)
	if resp.Count != 1 || resp.Reply != "hello" || resp.HeartbeatSeconds != 5 {
		t.Errorf("unexpected hello response %+v", resp)
	}

	resp = presenceResponse{}
	decodeJSON(t, env.do(t, http.MethodPost, "/api/presence", `{"type":"ping","id":"b"}`), &resp)
	if resp.Count != 2 || resp.Reply != "" {
		t.Errorf("unexpected ping response %+v", resp)
	}

	if rec := env.do(t, http.MethodPost, "/api/presence", `{"type":"wave","id":"c"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown message type, got %d", rec.Code)
	}
}

func TestCalendarFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/rules", `{"event":"Harvester","map":"DAM"}`)

	rec := env.do(t, http.MethodGet, "/calendar.ics?hours=24", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	// From 10:15 UTC for 24h: Harvester at DAM runs at UTC 21 and UTC 9.
	if got := strings.Count(rec.Body.String(), "BEGIN:VEVENT"); got != 2 {
		t.Errorf("expected 2 events, got %d", got)
	}
}

func TestUnknownAPIAndStatic(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected JSON 404 for unknown API path, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "data-ready") {
		t.Errorf("expected the embedded UI, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `arcsched_http_requests_total{route="/",status="200"} 1`) {
		t.Errorf("expected request metrics, got:\n%s", rec.Body.String())
	}
}
