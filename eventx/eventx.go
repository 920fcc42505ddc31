package eventx

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/eventx/internal"
)

// Listener handles one emission. args are passed exactly as given to Emit.
type Listener func(ctx context.Context, args ...any) error

// Bus is the publish/subscribe contract the settings store depends on.
type Bus interface {
	// Emit delivers args to every listener whose pattern matches channel.
	// It returns after all matching listeners have run.
	Emit(ctx context.Context, channel string, args ...any)

	// On registers l for pattern and returns a function that removes it.
	On(pattern string, l Listener) (off func())
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Emitted        uint64 // Emit calls
	Unheard        uint64 // Emit calls no listener matched
	Delivered      uint64 // listener invocations that returned nil
	ListenerErrors uint64 // listener invocations that returned an error
	ListenerPanics uint64 // listener invocations that panicked
	Subscriptions  int    // currently registered listeners
}

type subscription struct {
	id       uint64
	pattern  string
	listener Listener
}

// LocalBus is the in-process Bus.
type LocalBus struct {
	mu     sync.RWMutex
	trie   *internal.Trie
	subs   map[uint64]*subscription
	nextID uint64

	logger  log.Logger
	metrics *busMetrics

	emitted        atomic.Uint64
	unheard        atomic.Uint64
	delivered      atomic.Uint64
	listenerErrors atomic.Uint64
	listenerPanics atomic.Uint64
}

// Option configures a LocalBus.
type Option func(*LocalBus)

// WithLogger sets the logger listener failures are reported to.
func WithLogger(logger log.Logger) Option {
	return func(b *LocalBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMeterProvider records emission and failure counters on mp.
// Instrument creation errors leave metrics disabled.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(b *LocalBus) {
		if mp == nil {
			return
		}
		if m, err := newBusMetrics(mp); err == nil {
			b.metrics = m
		}
	}
}

// New creates a LocalBus.
func New(opts ...Option) *LocalBus {
	b := &LocalBus{
		trie:   internal.NewTrie(),
		subs:   make(map[uint64]*subscription),
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers l for pattern. Panics on an empty pattern or nil listener.
func (b *LocalBus) On(pattern string, l Listener) func() {
	if pattern == "" {
		panic("eventx: empty pattern")
	}
	if l == nil {
		panic("eventx: nil listener")
	}

	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, pattern: pattern, listener: l}
	b.subs[sub.id] = sub
	b.trie.Add(pattern, sub.id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, sub.id)
			b.trie.Remove(sub.pattern, sub.id)
		})
	}
}

// Emit dispatches synchronously to matching listeners in subscription order.
func (b *LocalBus) Emit(ctx context.Context, channel string, args ...any) {
	b.emitted.Add(1)
	b.metrics.emitted(ctx, channel)

	targets := b.match(channel)
	if len(targets) == 0 {
		b.unheard.Add(1)
		b.logger.Debug("no listener for channel", log.Str("channel", channel))
		return
	}

	for _, sub := range targets {
		b.deliver(ctx, channel, sub, args)
	}
}

func (b *LocalBus) match(channel string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := b.trie.Match(channel)
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	targets := make([]*subscription, 0, len(ids))
	for _, id := range ids {
		if sub, ok := b.subs[id]; ok {
			targets = append(targets, sub)
		}
	}
	return targets
}

func (b *LocalBus) deliver(ctx context.Context, channel string, sub *subscription, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.listenerPanics.Add(1)
			b.metrics.failed(ctx, channel, "panic")
			b.logger.Error(fmt.Errorf("listener panic: %v", r), "listener panicked",
				log.Str("channel", channel),
				log.Str("pattern", sub.pattern),
				log.Str("stack", string(debug.Stack())))
		}
	}()

	if err := sub.listener(ctx, args...); err != nil {
		b.listenerErrors.Add(1)
		b.metrics.failed(ctx, channel, "error")
		b.logger.Error(err, "listener failed",
			log.Str("channel", channel),
			log.Str("pattern", sub.pattern))
		return
	}
	b.delivered.Add(1)
}

// Stats returns a snapshot of the bus counters.
func (b *LocalBus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Emitted:        b.emitted.Load(),
		Unheard:        b.unheard.Load(),
		Delivered:      b.delivered.Load(),
		ListenerErrors: b.listenerErrors.Load(),
		ListenerPanics: b.listenerPanics.Load(),
		Subscriptions:  n,
	}
}

// Channel joins segments into a channel name.
func Channel(segments ...string) string {
	return strings.Join(segments, internal.Separator)
}

type busMetrics struct {
	emittedTotal  metric.Int64Counter
	failuresTotal metric.Int64Counter
}

func newBusMetrics(mp metric.MeterProvider) (*busMetrics, error) {
	meter := mp.Meter("go.eggybyte.com/settings/eventx")

	emitted, err := meter.Int64Counter(
		"events_emitted_total",
		metric.WithDescription("Notifications emitted on the in-process bus"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"events_listener_failures_total",
		metric.WithDescription("Listener invocations that returned an error or panicked"),
	)
	if err != nil {
		return nil, err
	}
	return &busMetrics{emittedTotal: emitted, failuresTotal: failures}, nil
}

// channelPrefix keeps label cardinality at the group level.
func channelPrefix(channel string) string {
	prefix, _, _ := strings.Cut(channel, internal.Separator)
	return prefix
}

func (m *busMetrics) emitted(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.emittedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("channel_prefix", channelPrefix(channel))))
}

func (m *busMetrics) failed(ctx context.Context, channel, kind string) {
	if m == nil {
		return
	}
	m.failuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel_prefix", channelPrefix(channel)),
		attribute.String("kind", kind),
	))
}
