package configx

import (
	"context"
	"time"

	"go.eggybyte.com/settings/configx/internal"
	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
)

// Source describes a configuration source that can load and watch for updates.
// Implementations must be safe for concurrent use and honor ctx cancellation.
type Source interface {
	// Load reads the current snapshot.
	Load(ctx context.Context) (map[string]string, error)

	// Watch publishes new snapshots and closes the channel when ctx is done.
	Watch(ctx context.Context) (<-chan map[string]string, error)
}

// Manager gives merged, read-only access to configuration.
type Manager interface {
	// Snapshot returns a copy of the merged configuration.
	Snapshot() map[string]string

	// Value returns the merged value for key.
	Value(key string) (string, bool)

	// Bind fills target from `env`/`default` tags, then checks `validate` tags.
	Bind(target any, opts ...BindOption) error

	// OnUpdate subscribes to merged snapshots published after a source changes.
	OnUpdate(fn func(snapshot map[string]string)) (unsubscribe func())
}

// Options holds configuration for the manager.
type Options struct {
	Logger   log.Logger    // Required
	Sources  []Source      // Later sources override earlier ones
	Debounce time.Duration // Debounce for source updates (default: 200ms)
}

// BindOption configures Bind.
type BindOption func(*bindConfig)

type bindConfig struct {
	onUpdate   func()
	noValidate bool
}

// WithUpdateCallback rebinds target on every update, then calls fn.
func WithUpdateCallback(fn func()) BindOption {
	return func(c *bindConfig) { c.onUpdate = fn }
}

// WithoutValidation skips `validate` tag checks.
func WithoutValidation() BindOption {
	return func(c *bindConfig) { c.noValidate = true }
}

// BaseConfig holds the settings every process of this repository reads.
type BaseConfig struct {
	ServiceName    string `env:"SERVICE_NAME" default:"settingd" validate:"required"`
	ServiceVersion string `env:"SERVICE_VERSION" default:"0.0.0"`
	Env            string `env:"ENV" default:"dev" validate:"oneof=dev test staging prod"`

	LogLevel  string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat string `env:"LOG_FORMAT" default:"logfmt" validate:"oneof=logfmt json console"`

	HTTPPort    string `env:"HTTP_PORT" default:":8080" validate:"required"`
	HealthPort  string `env:"HEALTH_PORT" default:":8081"`
	MetricsPort string `env:"METRICS_PORT" default:":9091"`

	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ConfigFile    string `env:"CONFIG_FILE"`
	DefaultsFile  string `env:"SETTINGS_DEFAULTS_FILE"`
	DefaultLocale string `env:"DEFAULT_LOCALE" default:"en" validate:"bcp47_language_tag"`

	Database DatabaseConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver      string        `env:"DB_DRIVER" default:"sqlite" validate:"oneof=sqlite mysql postgres"`
	DSN         string        `env:"DB_DSN" default:"file:settings.db?cache=shared" validate:"required"`
	MaxIdle     int           `env:"DB_MAX_IDLE" default:"10" validate:"gte=0"`
	MaxOpen     int           `env:"DB_MAX_OPEN" default:"100" validate:"gte=1"`
	MaxLifetime time.Duration `env:"DB_MAX_LIFETIME" default:"1h"`
	PingTimeout time.Duration `env:"DB_PING_TIMEOUT" default:"5s"`
}

// GetHTTPPort returns the HTTP server address.
func (c *BaseConfig) GetHTTPPort() string { return c.HTTPPort }

// GetHealthPort returns the health server address.
func (c *BaseConfig) GetHealthPort() string { return c.HealthPort }

// GetMetricsPort returns the metrics server address.
func (c *BaseConfig) GetMetricsPort() string { return c.MetricsPort }

type manager struct {
	impl   *internal.ManagerImpl
	logger log.Logger
}

// NewManager loads every source and starts watching them until ctx is done.
//
// Parameters:
//   - ctx: bounds the watch goroutines
//   - opts: logger and sources; both required
//
// Returns:
//   - Manager: initialized manager
//   - error: INVALID_ARGUMENT for bad options, INTERNAL when a source fails to load
func NewManager(ctx context.Context, opts Options) (Manager, error) {
	if opts.Logger == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "logger is required")
	}
	if len(opts.Sources) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument, "at least one source is required")
	}

	sources := make([]internal.Source, len(opts.Sources))
	for i, src := range opts.Sources {
		sources[i] = src
	}

	impl, err := internal.NewManager(opts.Logger, sources, opts.Debounce)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "configx.new_manager", err)
	}
	if err := impl.Initialize(ctx); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "configx.new_manager", err)
	}
	return &manager{impl: impl, logger: opts.Logger}, nil
}

func (m *manager) Snapshot() map[string]string {
	return m.impl.Snapshot()
}

func (m *manager) Value(key string) (string, bool) {
	return m.impl.Value(key)
}

func (m *manager) Bind(target any, opts ...BindOption) error {
	if target == nil {
		return errors.New(errors.CodeInvalidArgument, "target cannot be nil")
	}
	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := bind(m.impl.Snapshot(), target, cfg); err != nil {
		return err
	}

	if cfg.onUpdate != nil {
		m.impl.OnUpdate(func(snap map[string]string) {
			if err := bind(snap, target, cfg); err != nil {
				m.logger.Error(err, "configuration rebind failed")
				return
			}
			cfg.onUpdate()
		})
	}
	return nil
}

func bind(snapshot map[string]string, target any, cfg bindConfig) error {
	if err := internal.BindToStruct(snapshot, target); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "configx.bind", err)
	}
	if cfg.noValidate {
		return nil
	}
	return ValidateStruct(nil, target)
}

func (m *manager) OnUpdate(fn func(snapshot map[string]string)) func() {
	return m.impl.OnUpdate(fn)
}

// EnvOptions configures the environment source.
type EnvOptions struct {
	Prefix string // Only variables with this prefix are read; the prefix is stripped
}

// FileOptions configures a file source.
type FileOptions struct {
	Watch    bool          // Poll for changes
	Format   string        // "yaml" or "json"; detected from the extension when empty
	Interval time.Duration // Polling interval (default: 1s)
	Logger   log.Logger    // Receives poll failures
}

// NewEnvSource creates an environment variable source.
func NewEnvSource(opts EnvOptions) Source {
	return internal.NewEnvSource(internal.EnvOptions{Prefix: opts.Prefix})
}

// NewFileSource creates a YAML or JSON file source. A missing file is empty.
func NewFileSource(path string, opts FileOptions) Source {
	return internal.NewFileSource(path, internal.FileOptions{
		Watch:    opts.Watch,
		Format:   opts.Format,
		Interval: opts.Interval,
		Logger:   opts.Logger,
	})
}

// DefaultSources returns the file source for path, if any, followed by the
// environment, so environment variables override the file.
func DefaultSources(path string, logger log.Logger) []Source {
	var sources []Source
	if path != "" {
		sources = append(sources, NewFileSource(path, FileOptions{Watch: true, Logger: logger}))
	}
	return append(sources, NewEnvSource(EnvOptions{}))
}

// DefaultManager creates a manager over DefaultSources, reading the file
// named by CONFIG_FILE when set.
func DefaultManager(ctx context.Context, logger log.Logger, configFile string) (Manager, error) {
	return NewManager(ctx, Options{
		Logger:  logger,
		Sources: DefaultSources(configFile, logger),
	})
}
