package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"arcsched/internal/i18n"
	appLog "arcsched/internal/log"
	"arcsched/internal/metrics"
	"arcsched/internal/model"
	"arcsched/internal/notify"
	"arcsched/internal/prefs"
	"arcsched/internal/schedule"
)

// PreferenceSource supplies the current preferences for each tick.
type PreferenceSource interface {
	Load(ctx context.Context) prefs.Preferences
}

// Options configures a Runner. Table defaults to schedule.Default,
// Location to UTC and Localizer to English.
type Options struct {
	Prefs     PreferenceSource
	Table     schedule.Table
	Location  *time.Location
	Localizer notify.Localizer
	Sink      Sink
	Metrics   *metrics.Metrics
}

// Runner owns the "last notified" stamp and turns notification decisions
// into deliveries.
type Runner struct {
	prefs   PreferenceSource
	table   schedule.Table
	loc     *time.Location
	tr      notify.Localizer
	sink    Sink
	metrics *metrics.Metrics
	now     func() time.Time

	// mu serializes ticks so the stamp is read and written once per check.
	mu   sync.Mutex
	last notify.Stamp

	cron *cron.Cron
}

func New(opts Options) *Runner {
	r := &Runner{
		prefs:   opts.Prefs,
		table:   opts.Table,
		loc:     opts.Location,
		tr:      opts.Localizer,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		now:     time.Now,
	}
	if r.table == nil {
		r.table = schedule.Default
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.tr == nil {
		r.tr = i18n.New(i18n.DefaultLanguage)
	}
	if r.sink == nil {
		r.sink = LogSink{}
	}
	return r
}

// LastStamp returns the stamp of the last automatic or forced notification
// that carried hits and was delivered.
func (r *Runner) LastStamp() notify.Stamp {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Tick runs one notification check. Automatic checks are skipped while
// notifications are disabled; forced checks always run.
func (r *Runner) Tick(ctx context.Context, forced bool) (notify.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.prefs.Load(ctx)
	if !forced && !p.NotificationsEnabled {
		r.metrics.AlertTick(forced, "skipped")
		return notify.Decision{Stamp: r.last}, nil
	}

	at := r.now()
	now := model.Capture(at, r.loc)
	rows := schedule.Project(r.table, now.OffsetHours)
	row := schedule.RowFor(rows, now.UTCHour)

	d := notify.Decide(row, p.Criteria(), now, forced, r.last, r.tr)
	if !d.Fire {
		r.metrics.AlertTick(forced, "silent")
		return d, nil
	}

	r.metrics.AlertTick(forced, "fired")
	r.metrics.NotificationFired(string(d.Kind))
	n := Notification{
		ID:     uuid.NewString(),
		Kind:   d.Kind,
		Title:  d.Title,
		Body:   d.Body,
		Hits:   d.Hits,
		Forced: forced,
		At:     at.UTC(),
	}
	if err := r.sink.Deliver(ctx, n); err != nil {
		// The hour stays unmarked so the next automatic check retries it.
		return d, fmt.Errorf("alert: deliver: %w", err)
	}
	r.last = d.Stamp
	return d, nil
}

// Start schedules automatic ticks with a standard cron spec (descriptors
// such as "@every 1m" are accepted).
func (r *Runner) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := r.Tick(context.Background(), false); err != nil {
			appLog.Error("alert tick failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("alert: schedule %q: %w", spec, err)
	}
	r.cron = c
	c.Start()
	appLog.Info("alert runner started", "schedule", spec)
	return nil
}

// Stop halts scheduling and waits for a running tick to finish or ctx to
// expire.
func (r *Runner) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
