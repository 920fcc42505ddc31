package storex

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/core/utils"
	"go.eggybyte.com/settings/storex/internal"
)

// Store is a storage backend that can be health-checked and closed.
// Implementations must be safe for concurrent use.
type Store interface {
	// Ping returns an error when the backend is unavailable.
	Ping(ctx context.Context) error

	// Close releases the backend's connections.
	Close() error
}

// GORMStore is a Store backed by GORM.
type GORMStore interface {
	Store

	// GetDB returns the shared *gorm.DB.
	GetDB() *gorm.DB

	// Driver returns "sqlite", "mysql" or "postgres".
	Driver() string
}

// Registry tracks named stores for the health endpoint and shutdown.
type Registry struct {
	impl *internal.Registry
}

// NewRegistry creates a registry whose Ping is bounded by 5s.
func NewRegistry() *Registry {
	return &Registry{impl: internal.NewRegistry(0)}
}

// NewRegistryWithTimeout creates a registry whose Ping is bounded by timeout.
func NewRegistryWithTimeout(timeout time.Duration) *Registry {
	return &Registry{impl: internal.NewRegistry(timeout)}
}

// Register adds store under name.
func (r *Registry) Register(name string, store Store) error {
	if err := r.impl.Register(name, store); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "storex.register", err)
	}
	return nil
}

// Unregister removes name.
func (r *Registry) Unregister(name string) error {
	if err := r.impl.Unregister(name); err != nil {
		return errors.Wrap(errors.CodeNotFound, "storex.unregister", err)
	}
	return nil
}

// Ping checks every store. Failures are UNAVAILABLE.
func (r *Registry) Ping(ctx context.Context) error {
	if err := r.impl.Ping(ctx); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "storex.ping", err)
	}
	return nil
}

// Close closes every store.
func (r *Registry) Close() error {
	if err := r.impl.Close(); err != nil {
		return errors.Wrap(errors.CodeInternal, "storex.close", err)
	}
	return nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	return r.impl.List()
}

// Get returns the store registered under name.
func (r *Registry) Get(name string) (Store, bool) {
	return r.impl.Get(name)
}

// GORMOptions holds configuration for GORM database connections.
type GORMOptions struct {
	DSN             string            // Database connection string
	Driver          string            // sqlite, mysql or postgres
	MaxIdleConns    int               // Maximum number of idle connections
	MaxOpenConns    int               // Maximum number of open connections
	ConnMaxLifetime time.Duration     // Maximum connection lifetime
	SlowThreshold   time.Duration     // Statements slower than this log at WARN
	Logger          log.Logger        // Receives GORM logs; nil silences them
	Retry           utils.RetryConfig // Startup ping retries; zero uses the defaults
}

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{"sqlite", "mysql", "postgres"}
}

// NewGORMStore opens a connection pool and pings it, retrying with backoff.
//
// Returns:
//   - GORMStore: ready store
//   - error: INVALID_ARGUMENT for bad options, UNAVAILABLE when the database never answers
func NewGORMStore(ctx context.Context, opts GORMOptions) (GORMStore, error) {
	internalOpts := internal.DefaultGORMOptions()
	internalOpts.DSN = opts.DSN
	internalOpts.Driver = opts.Driver
	internalOpts.Logger = opts.Logger
	if opts.MaxIdleConns > 0 {
		internalOpts.MaxIdleConns = opts.MaxIdleConns
	}
	if opts.MaxOpenConns > 0 {
		internalOpts.MaxOpenConns = opts.MaxOpenConns
	}
	if opts.ConnMaxLifetime > 0 {
		internalOpts.ConnMaxLifetime = opts.ConnMaxLifetime
	}
	if opts.SlowThreshold > 0 {
		internalOpts.SlowThreshold = opts.SlowThreshold
	}
	if opts.Retry.MaxAttempts > 0 {
		internalOpts.Retry = opts.Retry
	}

	if opts.DSN == "" || opts.Driver == "" {
		return nil, errors.New(errors.CodeInvalidArgument, "driver and DSN are required")
	}
	if _, err := internal.Dialector(opts.Driver, opts.DSN); err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "storex.open", err)
	}

	store, err := internal.Open(ctx, internalOpts)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "storex.open", err)
	}
	return store, nil
}

// IsConnectionError reports whether err comes from the connection rather than the statement.
func IsConnectionError(err error) bool {
	return internal.IsConnectionError(err)
}
