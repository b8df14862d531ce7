package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"arcsched/internal/i18n"
	"arcsched/internal/metrics"
	"arcsched/internal/model"
	"arcsched/internal/notify"
	"arcsched/internal/prefs"
)

type staticPrefs struct{ p prefs.Preferences }

func (s *staticPrefs) Load(context.Context) prefs.Preferences { return s.p }

type failingSink struct{}

func (failingSink) Deliver(context.Context, Notification) error { return errors.New("sink down") }

func newTestRunner(t *testing.T, p prefs.Preferences, at time.Time) (*Runner, *staticPrefs, *Feed) {
	t.Helper()
	src := &staticPrefs{p: p}
	feed := NewFeed(10)
	r := New(Options{
		Prefs:     src,
		Localizer: i18n.New("en"),
		Sink:      feed,
		Metrics:   metrics.New(),
	})
	r.now = func() time.Time { return at }
	return r, src, feed
}

func nightRaidAtDam(enabled bool) prefs.Preferences {
	return prefs.Preferences{
		Rules:                []model.AlertRule{{ID: "r", Event: model.NightRaid, Location: model.Dam}},
		NotificationsEnabled: enabled,
	}
}

func TestTickSkipsWhenDisabled(t *testing.T) {
	at := time.Date(2026, 3, 5, 10, 15, 0, 0, time.UTC)
	r, _, feed := newTestRunner(t, nightRaidAtDam(false), at)

	d, err := r.Tick(context.Background(), false)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if d.Fire {
		t.Error("expected automatic tick to be skipped while disabled")
	}
	if items, _ := feed.Since(0); len(items) != 0 {
		t.Errorf("expected empty feed, got %d items", len(items))
	}

	d, err = r.Tick(context.Background(), true)
	if err != nil {
		t.Fatalf("forced Tick: %v", err)
	}
	if !d.Fire || d.Kind != notify.KindSingle {
		t.Errorf("expected forced tick to fire while disabled, got %+v", d)
	}
}

func TestTickFiresOncePerHour(t *testing.T) {
	at := time.Date(2026, 3, 5, 10, 15, 0, 0, time.UTC)
	r, _, feed := newTestRunner(t, nightRaidAtDam(true), at)
	ctx := context.Background()

	if d, _ := r.Tick(ctx, false); !d.Fire {
		t.Fatal("expected first automatic tick to fire")
	}
	if r.LastStamp() != (notify.Stamp{Day: 5, Hour: 10}) {
		t.Fatalf("unexpected stamp %+v", r.LastStamp())
	}

	r.now = func() time.Time { return at.Add(20 * time.Minute) }
	if d, _ := r.Tick(ctx, false); d.Fire {
		t.Error("expected second automatic tick in the same hour to stay silent")
	}

	items, seq := feed.Since(0)
	if len(items) != 1 || seq != 1 {
		t.Fatalf("expected one notification with seq 1, got %d items seq %d", len(items), seq)
	}
	if items[0].Title != "NIGHT RAID DETECTED" || items[0].Forced {
		t.Errorf("unexpected notification %+v", items[0])
	}
}

func TestForcedAllClearKeepsStamp(t *testing.T) {
	at := time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC)
	p := prefs.Preferences{
		Rules:                []model.AlertRule{{ID: "r", Event: model.LockedGate, Location: model.Dam}},
		NotificationsEnabled: true,
	}
	r, _, feed := newTestRunner(t, p, at)

	d, err := r.Tick(context.Background(), true)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if d.Kind != notify.KindClear {
		t.Fatalf("expected all-clear, got %+v", d)
	}
	if !r.LastStamp().IsZero() {
		t.Errorf("expected all-clear not to set the stamp, got %+v", r.LastStamp())
	}
	if items, _ := feed.Since(0); len(items) != 1 || items[0].Kind != notify.KindClear {
		t.Errorf("expected the all-clear in the feed, got %+v", items)
	}
}

func TestTickReportsSinkError(t *testing.T) {
	at := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	r, _, _ := newTestRunner(t, nightRaidAtDam(true), at)
	r.sink = failingSink{}

	if _, err := r.Tick(context.Background(), false); err == nil {
		t.Error("expected the sink error to be returned")
	}
	if !r.LastStamp().IsZero() {
		t.Errorf("expected the stamp to stay unset after a failed delivery, got %+v", r.LastStamp())
	}

	feed := NewFeed(1)
	r.sink = feed
	d, err := r.Tick(context.Background(), false)
	if err != nil {
		t.Fatalf("retry Tick: %v", err)
	}
	if !d.Fire {
		t.Error("expected the next automatic tick to retry the undelivered hour")
	}
	if r.LastStamp() != (notify.Stamp{Day: 5, Hour: 10}) {
		t.Errorf("unexpected stamp after retry %+v", r.LastStamp())
	}
}

func TestNewDefaultsLocalizer(t *testing.T) {
	at := time.Date(2026, 3, 5, 10, 15, 0, 0, time.UTC)
	r := New(Options{Prefs: &staticPrefs{p: nightRaidAtDam(true)}})
	r.now = func() time.Time { return at }

	d, err := r.Tick(context.Background(), true)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if d.Title != "NIGHT RAID DETECTED" {
		t.Errorf("expected the English title, got %q", d.Title)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	r, _, _ := newTestRunner(t, prefs.Preferences{}, time.Now())
	if err := r.Start("not a cron spec"); err == nil {
		t.Error("expected an error for an invalid spec")
	}
	r.Stop(context.Background())
}

func TestFeedIsBounded(t *testing.T) {
	f := NewFeed(2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = f.Deliver(ctx, Notification{Title: "n"})
	}
	items, seq := f.Since(0)
	if seq != 3 || len(items) != 2 || items[0].Seq != 2 {
		t.Fatalf("expected seqs [2 3] with latest 3, got %+v latest %d", items, seq)
	}
	items, _ = f.Since(2)
	if len(items) != 1 || items[0].Seq != 3 {
		t.Errorf("expected only seq 3 after 2, got %+v", items)
	}
}

func TestFeedSinceAheadReturnsAll(t *testing.T) {
	f := NewFeed(5)
	ctx := context.Background()
	if items, seq := f.Since(7); len(items) != 0 || seq != 0 {
		t.Fatalf("expected an empty feed, got %+v latest %d", items, seq)
	}
	_ = f.Deliver(ctx, Notification{Title: "a"})
	_ = f.Deliver(ctx, Notification{Title: "b"})

	items, seq := f.Since(7)
	if seq != 2 || len(items) != 2 || items[0].Title != "a" {
		t.Errorf("expected both notifications for a cursor from a previous run, got %+v latest %d", items, seq)
	}
}

func TestMultiSinkDeliversToAll(t *testing.T) {
	a, b := NewFeed(1), NewFeed(1)
	err := MultiSink{failingSink{}, a, b}.Deliver(context.Background(), Notification{Title: "x"})
	if err == nil {
		t.Error("expected the first error to be returned")
	}
	if items, _ := b.Since(0); len(items) != 1 {
		t.Error("expected later sinks to receive the notification")
	}
	if items, _ := a.Since(0); len(items) != 1 {
		t.Error("expected every sink to receive the notification")
	}
}
