// Package internal implements the GORM store and the store registry.
package internal

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/core/utils"
)

// GORMStore is a Store over a GORM connection pool.
type GORMStore struct {
	db     *gorm.DB
	driver string
}

// NewGORMStore wraps an open connection.
func NewGORMStore(db *gorm.DB, driver string) *GORMStore {
	return &GORMStore{db: db, driver: driver}
}

// Ping checks the connection.
func (s *GORMStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.driver, err)
	}
	return nil
}

// Close closes the pool. Closing a nil store is a no-op.
func (s *GORMStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// GetDB returns the underlying *gorm.DB.
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// Driver returns the driver name the store was opened with.
func (s *GORMStore) Driver() string {
	return s.driver
}

// GORMOptions holds configuration for opening a GORM connection.
type GORMOptions struct {
	DSN             string
	Driver          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration // Queries slower than this log at WARN; 0 disables
	Logger          log.Logger    // nil silences GORM
	Retry           utils.RetryConfig
}

// DefaultGORMOptions returns pool and retry defaults.
func DefaultGORMOptions() GORMOptions {
	return GORMOptions{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   200 * time.Millisecond,
		Retry:           utils.DefaultRetryConfig(),
	}
}

// Dialector returns the GORM dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// Open connects, configures the pool and pings, retrying the ping per opts.Retry.
func Open(ctx context.Context, opts GORMOptions) (*GORMStore, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("DSN is required")
	}
	if opts.Driver == "" {
		return nil, fmt.Errorf("driver is required")
	}
	dialector, err := Dialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	var gormLogger logger.Interface = logger.Default.LogMode(logger.Silent)
	if opts.Logger != nil {
		gormLogger = &LogAdapter{Logger: opts.Logger, SlowThreshold: opts.SlowThreshold}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	store := NewGORMStore(db, opts.Driver)
	if err := utils.Retry(ctx, opts.Retry, func() error { return store.Ping(ctx) }); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// LogAdapter routes GORM logs to a log.Logger.
type LogAdapter struct {
	Logger        log.Logger
	SlowThreshold time.Duration
}

// LogMode is a no-op; levels come from the wrapped logger.
func (l *LogAdapter) LogMode(logger.LogLevel) logger.Interface { return l }

// Info logs at INFO.
func (l *LogAdapter) Info(_ context.Context, msg string, data ...any) {
	l.Logger.Info(fmt.Sprintf(msg, data...))
}

// Warn logs at WARN.
func (l *LogAdapter) Warn(_ context.Context, msg string, data ...any) {
	l.Logger.Warn(fmt.Sprintf(msg, data...))
}

// Error logs at ERROR.
func (l *LogAdapter) Error(_ context.Context, msg string, data ...any) {
	l.Logger.Error(nil, fmt.Sprintf(msg, data...))
}

// Trace logs one statement. Connection failures are errors, slow statements
// warnings, everything else debug.
func (l *LogAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	kv := []any{
		log.Str("sql", sql),
		log.Int64("rows", rows),
		log.Dur("duration", elapsed),
	}

	switch {
	case err != nil && IsConnectionError(err):
		l.Logger.Error(err, "database statement failed", kv...)
	case err != nil:
		l.Logger.Debug("database statement returned error", append(kv, log.Str("error", err.Error()))...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		l.Logger.Warn("slow database statement", kv...)
	default:
		l.Logger.Debug("database statement", kv...)
	}
}

// IsConnectionError reports whether err comes from the connection rather
// than the statement: network failures and deadlines.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) ||
		stderrors.Is(err, gorm.ErrDuplicatedKey) ||
		stderrors.Is(err, gorm.ErrForeignKeyViolated) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}
