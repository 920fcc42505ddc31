package internal

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store is a health-checkable, closable backend.
type Store interface {
	Ping(ctx context.Context) error
	Close() error
}

// Registry tracks named stores for health checks and shutdown.
type Registry struct {
	mu      sync.RWMutex
	stores  map[string]Store
	timeout time.Duration
}

// NewRegistry creates a registry whose Ping is bounded by timeout (default 5s).
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Registry{stores: make(map[string]Store), timeout: timeout}
}

// Register adds store under name.
func (r *Registry) Register(name string, store Store) error {
	if name == "" {
		return fmt.Errorf("store name is required")
	}
	if store == nil {
		return fmt.Errorf("store cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stores[name]; exists {
		return fmt.Errorf("store %s already registered", name)
	}
	r.stores[name] = store
	return nil
}

// Unregister removes name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stores[name]; !exists {
		return fmt.Errorf("store %s not found", name)
	}
	delete(r.stores, name)
	return nil
}

// Ping checks every store and joins the failures.
func (r *Registry) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var errs []error
	for _, name := range r.List() {
		store, _ := r.Get(name)
		if err := store.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", name, err))
		}
	}
	return stderrors.Join(errs...)
}

// Close closes every store and joins the failures.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.List() {
		store, _ := r.Get(name)
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", name, err))
		}
	}
	return stderrors.Join(errs...)
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the store registered under name.
func (r *Registry) Get(name string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[name]
	return store, ok
}
