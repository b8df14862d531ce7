package presence

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// HeartbeatInterval is how often a connected viewer should send a ping.
	HeartbeatInterval = 5 * time.Second
	// StaleAfter is how long a peer may stay silent before it is dropped.
	StaleAfter = 15 * time.Second
)

// MessageType is the kind of a presence message.
type MessageType string

const (
	Hello MessageType = "hello"
	Ping  MessageType = "ping"
	Bye   MessageType = "bye"
)

// Message is one presence announcement from a peer.
type Message struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id"`
	// TS is the sender's clock in Unix milliseconds. It is informational
	// only; staleness is measured against the receiver's clock.
	TS int64 `json:"ts,omitempty"`
}

// Validate checks that the message can be observed.
func (m Message) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("presence: missing peer id")
	}
	switch m.Type {
	case Hello, Ping, Bye:
		return nil
	default:
		return fmt.Errorf("presence: unknown message type %q", m.Type)
	}
}

// Tracker counts live peers.
type Tracker struct {
	mu    sync.Mutex
	peers map[string]time.Time
	now   func() time.Time
}

// NewTracker returns an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{
		peers: map[string]time.Time{},
		now:   time.Now,
	}
}

// Observe records msg and reports whether the sender expects a hello back.
// Invalid messages are ignored.
func (t *Tracker) Observe(msg Message) (replyHello bool) {
	if msg.Validate() != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg.Type {
	case Bye:
		delete(t.peers, msg.ID)
		return false
	case Hello:
		t.peers[msg.ID] = t.now()
		return true
	default:
		t.peers[msg.ID] = t.now()
		return false
	}
}

// Sweep drops peers silent for longer than StaleAfter and returns how many
// were removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-StaleAfter)
	removed := 0
	for id, seen := range t.peers {
		if seen.Before(cutoff) {
			delete(t.peers, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of live peers, never less than one: the viewer
// asking always counts.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.peers) < 1 {
		return 1
	}
	return len(t.peers)
}
