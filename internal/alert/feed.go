package alert

import (
	"context"
	"sync"
	"time"

	appLog "arcsched/internal/log"
	"arcsched/internal/model"
	"arcsched/internal/notify"
)

// Notification is one fired notification as handed to sinks.
type Notification struct {
	// Seq is assigned by the Feed; it is zero before delivery to a Feed.
	Seq    uint64      `json:"seq"`
	ID     string      `json:"id"`
	Kind   notify.Kind `json:"kind"`
	Title  string      `json:"title"`
	Body   string      `json:"body"`
	Hits   []model.Hit `json:"hits"`
	Forced bool        `json:"forced"`
	At     time.Time   `json:"at"`
}

// Sink receives fired notifications.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the application log.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, n Notification) error {
	appLog.Info("notification",
		"kind", n.Kind,
		"title", n.Title,
		"hits", len(n.Hits),
		"forced", n.Forced,
	)
	return nil
}

// MultiSink delivers to every sink in order and returns the first error.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, n Notification) error {
	var first error
	for _, s := range m {
		if err := s.Deliver(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Feed keeps the most recent notifications for pollers.
type Feed struct {
	mu    sync.RWMutex
	size  int
	items []Notification
	seq   uint64
}

// NewFeed returns a feed holding at most size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 1
	}
	return &Feed{size: size, items: make([]Notification, 0, size)}
}

func (f *Feed) Deliver(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	n.Seq = f.seq
	if len(f.items) == f.size {
		copy(f.items, f.items[1:])
		f.items = f.items[:len(f.items)-1]
	}
	f.items = append(f.items, n)
	return nil
}

// Since returns retained notifications with Seq greater than seq, oldest
// first, and the latest sequence number. A seq ahead of the feed comes from
// a client that polled a previous process, so everything retained is
// returned.
func (f *Feed) Since(seq uint64) ([]Notification, uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if seq > f.seq {
		seq = 0
	}
	out := []Notification{}
	for _, n := range f.items {
		if n.Seq > seq {
			out = append(out, n)
		}
	}
	return out, f.seq
}
