package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	appLog "arcsched/internal/log"
	"arcsched/internal/model"
)

// Logical storage keys. Each holds a complete JSON snapshot that is rewritten
// on every change.
const (
	KeySelectedEvents       = "arc_selected_events"
	KeySelectedLocations    = "arc_selected_maps"
	KeyAlertRules           = "arc_alert_rules"
	KeyNotificationsEnabled = "arc_notifications_enabled"
)

var (
	ErrUnknownEvent    = errors.New("prefs: unknown event")
	ErrUnknownLocation = errors.New("prefs: unknown location")
	ErrRuleNotFound    = errors.New("prefs: rule not found")
)

// KV is a string key-value store.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Preferences is the user session state the core evaluators consume.
type Preferences struct {
	Events               []model.EventKind `json:"events"`
	Locations            []model.Location  `json:"maps"`
	Rules                []model.AlertRule `json:"rules"`
	NotificationsEnabled bool              `json:"notifications_enabled"`
}

// Criteria converts the preferences into match criteria.
func (p Preferences) Criteria() model.Criteria {
	return model.Criteria{
		Filter: model.NewFilterSet(p.Events, p.Locations),
		Rules:  append([]model.AlertRule(nil), p.Rules...),
	}
}

// Store reads and writes preferences through a KV.
type Store struct {
	kv    KV
	newID func() string

	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// NewStore wraps kv.
func NewStore(kv KV) *Store {
	return &Store{
		kv:    kv,
		newID: func() string { return uuid.NewString() },
	}
}

// Load reads all preferences. Missing or malformed values fall back to empty
// defaults; storage errors are logged and treated the same way.
func (s *Store) Load(ctx context.Context) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) Preferences {
	return Preferences{
		Events:               DecodeEvents(s.raw(ctx, KeySelectedEvents)),
		Locations:            DecodeLocations(s.raw(ctx, KeySelectedLocations)),
		Rules:                DecodeRules(s.raw(ctx, KeyAlertRules), s.newID),
		NotificationsEnabled: DecodeFlag(s.raw(ctx, KeyNotificationsEnabled)),
	}
}

// Rewrite loads every preference and writes the normalized snapshots back,
// so legacy identifiers are upgraded and generated rule ids become stable.
func (s *Store) Rewrite(ctx context.Context) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.load(ctx)
	if err := s.put(ctx, KeySelectedEvents, p.Events); err != nil {
		return p, err
	}
	if err := s.put(ctx, KeySelectedLocations, p.Locations); err != nil {
		return p, err
	}
	if err := s.put(ctx, KeyAlertRules, p.Rules); err != nil {
		return p, err
	}
	if err := s.put(ctx, KeyNotificationsEnabled, p.NotificationsEnabled); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Store) raw(ctx context.Context, key string) string {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		appLog.Error("prefs: read failed; using default", err, "key", key)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("prefs: encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("prefs: write %s: %w", key, err)
	}
	return nil
}

// SetEvents replaces the selected events.
func (s *Store) SetEvents(ctx context.Context, events []model.EventKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, KeySelectedEvents, model.NewFilterSet(events, nil).Events())
}

// SetLocations replaces the selected locations.
func (s *Store) SetLocations(ctx context.Context, locations []model.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, KeySelectedLocations, model.NewFilterSet(nil, locations).Locations())
}

// ToggleEvent flips the selection of one event and returns the new selection.
func (s *Store) ToggleEvent(ctx context.Context, e model.EventKind) ([]model.EventKind, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	events := DecodeEvents(s.raw(ctx, KeySelectedEvents))
	next := make([]model.EventKind, 0, len(events)+1)
	found := false
	for _, cur := range events {
		if cur == e {
			found = true
			continue
		}
		next = append(next, cur)
	}
	if !found {
		next = append(next, e)
	}
	next = model.NewFilterSet(next, nil).Events()
	return next, s.put(ctx, KeySelectedEvents, next)
}

// ToggleLocation flips the selection of one location and returns the new
// selection.
func (s *Store) ToggleLocation(ctx context.Context, l model.Location) ([]model.Location, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, l)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	locations := DecodeLocations(s.raw(ctx, KeySelectedLocations))
	next := make([]model.Location, 0, len(locations)+1)
	found := false
	for _, cur := range locations {
		if cur == l {
			found = true
			continue
		}
		next = append(next, cur)
	}
	if !found {
		next = append(next, l)
	}
	next = model.NewFilterSet(nil, next).Locations()
	return next, s.put(ctx, KeySelectedLocations, next)
}

// AddRule appends a new rule with a fresh id.
func (s *Store) AddRule(ctx context.Context, e model.EventKind, l model.Location) (model.AlertRule, error) {
	if !e.Valid() {
		return model.AlertRule{}, fmt.Errorf("%w: %q", ErrUnknownEvent, e)
	}
	if !l.Valid() {
		return model.AlertRule{}, fmt.Errorf("%w: %q", ErrUnknownLocation, l)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := DecodeRules(s.raw(ctx, KeyAlertRules), s.newID)
	rule := model.AlertRule{ID: s.newID(), Event: e, Location: l}
	rules = append(rules, rule)
	if err := s.put(ctx, KeyAlertRules, rules); err != nil {
		return model.AlertRule{}, err
	}
	return rule, nil
}

// RemoveRule deletes the rule with the given id.
func (s *Store) RemoveRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := DecodeRules(s.raw(ctx, KeyAlertRules), s.newID)
	next := make([]model.AlertRule, 0, len(rules))
	for _, r := range rules {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(rules) {
		return fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}
	return s.put(ctx, KeyAlertRules, next)
}

// SetNotifications stores the notifications-enabled flag. Whether the
// operating system actually grants permission is not tracked here.
func (s *Store) SetNotifications(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, KeyNotificationsEnabled, enabled)
}

// DecodeEvents parses a stored event list, mapping legacy identifiers and
// dropping unknown ones.
func DecodeEvents(raw string) []model.EventKind {
	out := []model.EventKind{}
	var ids []any
	if !decode(raw, &ids) {
		return out
	}
	seen := make(map[model.EventKind]bool, len(ids))
	for _, v := range ids {
		s, ok := v.(string)
		if !ok {
			continue
		}
		e, ok := model.ParseEventKind(s)
		if !ok || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// DecodeLocations parses a stored location list, dropping unknown ones.
func DecodeLocations(raw string) []model.Location {
	out := []model.Location{}
	var ids []any
	if !decode(raw, &ids) {
		return out
	}
	seen := make(map[model.Location]bool, len(ids))
	for _, v := range ids {
		s, ok := v.(string)
		if !ok {
			continue
		}
		l, ok := model.ParseLocation(s)
		if !ok || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// DecodeRules parses a stored rule list. Rules with an unrecognized event or
// a missing or unknown location are dropped; rules without an id get one
// from newID.
func DecodeRules(raw string, newID func() string) []model.AlertRule {
	out := []model.AlertRule{}
	var items []json.RawMessage
	if !decode(raw, &items) {
		return out
	}
	for _, itemRaw := range items {
		var item map[string]any
		if err := json.Unmarshal(itemRaw, &item); err != nil {
			continue
		}
		evRaw, _ := item["event"].(string)
		e, ok := model.ParseEventKind(evRaw)
		if !ok {
			continue
		}
		locRaw, _ := item["map"].(string)
		l, ok := model.ParseLocation(locRaw)
		if !ok {
			continue
		}
		id, _ := item["id"].(string)
		if strings.TrimSpace(id) == "" {
			id = newID()
		}
		out = append(out, model.AlertRule{ID: id, Event: e, Location: l})
	}
	return out
}

// DecodeFlag is true only for a stored JSON true.
func DecodeFlag(raw string) bool {
	return strings.TrimSpace(raw) == "true"
}

func decode(raw string, v any) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		appLog.Debug("prefs: malformed stored value; using default", "err", err)
		return false
	}
	return true
}
