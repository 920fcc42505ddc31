package settingx

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/eventx"
)

// Lister is the read the view loads from.
type Lister interface {
	Find(ctx context.Context, criteria Criteria) ([]*Setting, error)
}

// View is a process-wide read cache of every setting. It loads once and then
// follows the store's notifications: one "<group>:*" subscription per known
// group, plus the create, delete and post-write channels.
type View struct {
	lister Lister
	bus    eventx.Bus
	logger log.Logger

	mu      sync.RWMutex
	entries map[string]*Setting
	offs    map[string]func()
	closes  uint64
}

// NewView creates an empty View. Call Load before reading.
//
// Panics:
//   - If lister or bus is nil (fail-fast at startup)
func NewView(lister Lister, bus eventx.Bus, logger log.Logger) *View {
	if lister == nil {
		panic("NewView: lister cannot be nil")
	}
	if bus == nil {
		panic("NewView: bus cannot be nil")
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &View{
		lister:  lister,
		bus:     bus,
		logger:  logger,
		entries: make(map[string]*Setting),
		offs:    make(map[string]func()),
	}
}

// Load replaces the cache with the repository contents and subscribes to changes.
func (v *View) Load(ctx context.Context) error {
	all, err := v.lister.Find(ctx, nil)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.entries = make(map[string]*Setting, len(all))
	for _, s := range all {
		v.entries[s.Key()] = s.Clone()
	}
	groups := v.groupsLocked()
	v.mu.Unlock()

	v.watchLifecycle()
	for _, g := range groups {
		v.watchGroup(g)
	}

	v.logger.Info("settings view loaded", log.Int("entries", len(all)), log.Int("groups", len(groups)))
	return nil
}

// Close drops every subscription. The cache keeps its last contents.
func (v *View) Close() {
	v.mu.Lock()
	offs := v.offs
	v.offs = make(map[string]func())
	v.closes++
	v.mu.Unlock()

	for _, off := range offs {
		off()
	}
}

const (
	lifecycleCreate = "\x00create"
	lifecycleDelete = "\x00delete"
	lifecycleWrite  = "\x00write"
)

func (v *View) subscribe(key, pattern string, l eventx.Listener) {
	v.mu.Lock()
	if _, ok := v.offs[key]; ok {
		v.mu.Unlock()
		return
	}
	// Reserve the slot so concurrent callers do not subscribe twice.
	v.offs[key] = func() {}
	closes := v.closes
	v.mu.Unlock()

	off := v.bus.On(pattern, l)

	v.mu.Lock()
	if v.closes != closes {
		// Close dropped the reservation while On ran.
		v.mu.Unlock()
		off()
		return
	}
	v.offs[key] = off
	v.mu.Unlock()
}

func (v *View) watchLifecycle() {
	v.subscribe(lifecycleCreate, ChannelPostCreate, func(ctx context.Context, args ...any) error {
		s, err := settingArg(args)
		if err != nil {
			return err
		}
		v.put(s)
		v.watchGroup(s.Group)
		return nil
	})
	v.subscribe(lifecycleDelete, ChannelPostDelete, func(ctx context.Context, args ...any) error {
		s, err := settingArg(args)
		if err != nil {
			return err
		}
		v.mu.Lock()
		delete(v.entries, s.Key())
		v.mu.Unlock()
		return nil
	})
	v.subscribe(lifecycleWrite, ChannelPostWrite, func(ctx context.Context, args ...any) error {
		s, err := settingArg(args)
		if err != nil {
			return err
		}
		v.put(s)
		return nil
	})
}

func (v *View) watchGroup(group string) {
	v.subscribe(group, GroupChannel(group), func(ctx context.Context, args ...any) error {
		s, err := settingArg(args)
		if err != nil {
			return err
		}
		v.put(s)
		v.logger.Debug("settings view synced", log.Str("key", s.Key()))
		return nil
	})
}

func settingArg(args []any) (*Setting, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument, "settings view: notification without a setting")
	}
	s, ok := args[0].(*Setting)
	if !ok || s == nil {
		return nil, errors.Newf(errors.CodeInvalidArgument, "settings view: unexpected notification payload %T", args[0])
	}
	return s, nil
}

func (v *View) put(s *Setting) {
	c := s.Clone()
	v.mu.Lock()
	v.entries[c.Key()] = c
	v.mu.Unlock()
}

func (v *View) groupsLocked() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, s := range v.entries {
		if !seen[s.Group] {
			seen[s.Group] = true
			groups = append(groups, s.Group)
		}
	}
	sort.Strings(groups)
	return groups
}

// Len returns the number of cached settings.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Groups returns the cached group names, sorted.
func (v *View) Groups() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.groupsLocked()
}

// Get returns a copy of the cached setting group:label.
func (v *View) Get(group, label string) (*Setting, bool) {
	v.mu.RLock()
	s, ok := v.entries[eventx.Channel(group, label)]
	v.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Group returns copies of every cached setting of group ordered by weight, then label.
func (v *View) Group(group string) []*Setting {
	v.mu.RLock()
	var out []*Setting
	for _, s := range v.entries {
		if s.Group == group {
			out = append(out, s.Clone())
		}
	}
	v.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight < out[j].Weight
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Map returns group's values keyed by label.
func (v *View) Map(group string) map[string]any {
	settings := v.Group(group)
	out := make(map[string]any, len(settings))
	for _, s := range settings {
		out[s.Label] = s.Value
	}
	return out
}

// String returns the string value of group:label, or def.
func (v *View) String(group, label, def string) string {
	if s, ok := v.Get(group, label); ok {
		if str, ok := s.Value.(string); ok {
			return str
		}
	}
	return def
}

// Bool returns the boolean value of group:label, or def.
func (v *View) Bool(group, label string, def bool) bool {
	if s, ok := v.Get(group, label); ok {
		if b, ok := s.Value.(bool); ok {
			return b
		}
	}
	return def
}

// Float returns the numeric value of group:label, or def.
func (v *View) Float(group, label string, def float64) float64 {
	s, ok := v.Get(group, label)
	if !ok {
		return def
	}
	switch n := s.Value.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return def
}

// Strings returns the string list value of group:label, or def.
func (v *View) Strings(group, label string, def []string) []string {
	s, ok := v.Get(group, label)
	if !ok {
		return def
	}
	switch list := s.Value.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			str, ok := e.(string)
			if !ok {
				return def
			}
			out = append(out, str)
		}
		return out
	}
	return def
}
