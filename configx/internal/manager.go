package internal

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.eggybyte.com/settings/core/log"
)

// ManagerImpl merges sources, later ones winning, and republishes the merge
// when a source changes.
type ManagerImpl struct {
	logger   log.Logger
	sources  []Source
	debounce time.Duration

	mu       sync.RWMutex
	last     []map[string]string // last snapshot per source
	snapshot map[string]string

	subsMu    sync.RWMutex
	subs      map[int]func(map[string]string)
	nextSubID int
}

// NewManager creates a manager. Call Initialize before reading.
func NewManager(logger log.Logger, sources []Source, debounce time.Duration) (*ManagerImpl, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &ManagerImpl{
		logger:   logger,
		sources:  sources,
		debounce: debounce,
		last:     make([]map[string]string, len(sources)),
		snapshot: make(map[string]string),
		subs:     make(map[int]func(map[string]string)),
	}, nil
}

// Initialize loads every source and starts watching them until ctx is done.
func (m *ManagerImpl) Initialize(ctx context.Context) error {
	for i, source := range m.sources {
		snap, err := source.Load(ctx)
		if err != nil {
			return fmt.Errorf("source %d load failed: %w", i, err)
		}
		m.last[i] = snap
	}

	m.mu.Lock()
	m.snapshot = merge(m.last)
	keys := len(m.snapshot)
	m.mu.Unlock()
	m.logger.Info("configuration loaded", log.Int("keys", keys), log.Int("sources", len(m.sources)))

	for i, source := range m.sources {
		ch, err := source.Watch(ctx)
		if err != nil {
			return fmt.Errorf("source %d watch failed: %w", i, err)
		}
		go m.watchSource(ctx, i, ch)
	}
	return nil
}

// merge overlays snapshots in order. Empty values never override.
func merge(snapshots []map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, snap := range snapshots {
		for k, v := range snap {
			if v != "" {
				merged[k] = v
			}
		}
	}
	return merged
}

func (m *ManagerImpl) watchSource(ctx context.Context, index int, ch <-chan map[string]string) {
	var (
		timer   *time.Timer
		pending map[string]string
		pmu     sync.Mutex
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			pmu.Lock()
			pending = snap
			pmu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounce, func() {
				pmu.Lock()
				update := pending
				pmu.Unlock()
				m.apply(index, update)
			})
		}
	}
}

func (m *ManagerImpl) apply(index int, update map[string]string) {
	m.mu.Lock()
	m.last[index] = update
	merged := merge(m.last)
	m.snapshot = merged
	m.mu.Unlock()

	m.logger.Info("configuration updated", log.Int("keys", len(merged)), log.Int("source", index))

	m.subsMu.RLock()
	subs := make([]func(map[string]string), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subsMu.RUnlock()

	for _, fn := range subs {
		fn(maps.Clone(merged))
	}
}

// Snapshot returns a copy of the merged configuration.
func (m *ManagerImpl) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.snapshot)
}

// Value returns the merged value for key.
func (m *ManagerImpl) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.snapshot[key]
	return v, ok
}

// OnUpdate registers fn for merged snapshots published after a source changes.
func (m *ManagerImpl) OnUpdate(fn func(snapshot map[string]string)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn

	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
	}
}
