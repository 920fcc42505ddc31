package servicex

import (
	"context"
	"io"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"gorm.io/gorm"

	"go.eggybyte.com/settings/configx"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/eventx"
	"go.eggybyte.com/settings/i18nx"
	"go.eggybyte.com/settings/obsx"
	"go.eggybyte.com/settings/runtimex"
	"go.eggybyte.com/settings/servicex/internal"
)

// App gives registration code access to the bootstrapped components.
type App struct {
	c *internal.Components
}

// Mux returns the mux served on the HTTP port.
func (a *App) Mux() *http.ServeMux { return a.c.Mux }

// Logger returns the process logger.
func (a *App) Logger() log.Logger { return a.c.Logger }

// Config returns the bound base configuration.
func (a *App) Config() *configx.BaseConfig { return a.c.Base }

// ConfigManager returns the manager the configuration was bound from.
func (a *App) ConfigManager() configx.Manager { return a.c.Config }

// DB returns the shared GORM handle.
func (a *App) DB() *gorm.DB { return a.c.DB }

// Otel returns the telemetry provider, or nil when metrics are disabled.
func (a *App) Otel() *obsx.Provider { return a.c.Otel }

// Bus returns the process notification bus.
func (a *App) Bus() eventx.Bus { return a.c.Bus }

// Translator returns the message translator.
func (a *App) Translator() *i18nx.Translator { return a.c.Translator }

// HandlerOptions returns the interceptor stack and codec for Connect handlers.
func (a *App) HandlerOptions() []connect.HandlerOption { return a.c.HandlerOptions }

// Addr returns the bound address of a server, such as runtimex.ServerHTTP.
// It is empty until the runtime has started.
func (a *App) Addr(server string) string {
	if a.c.Runtime == nil {
		return ""
	}
	return a.c.Runtime.Addr(server)
}

// AddService registers a background service started before the servers.
func (a *App) AddService(s runtimex.Service) {
	a.c.Services = append(a.c.Services, s)
}

// AddHealthChecker adds a readiness dependency next to the database.
func (a *App) AddHealthChecker(c runtimex.HealthChecker) {
	a.c.HealthCheckers = append(a.c.HealthCheckers, c)
}

// AddShutdownHook registers a hook run after the servers stop, last added first.
func (a *App) AddShutdownHook(hook func(context.Context) error) {
	a.c.ShutdownHooks = append(a.c.ShutdownHooks, hook)
}

// Handle registers fn as the unary Connect procedure at path, using the
// app's interceptors and codec.
//
//	servicex.Handle(app, "/settings.v1.SettingService/GetSetting", h.GetSetting)
func Handle[Req, Res any](app *App, procedure string, fn func(context.Context, *Req) (*Res, error)) {
	logger := app.Logger()
	h := connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			logger.Debug("handler processing request", log.Str("procedure", procedure))
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(res), nil
		},
		app.HandlerOptions()...,
	)
	app.Mux().Handle(procedure, h)
}

// Option configures Run.
type Option func(*internal.ServiceConfig)

// WithService overrides the configured service name and version.
func WithService(name, version string) Option {
	return func(c *internal.ServiceConfig) {
		c.ServiceName = name
		c.ServiceVersion = version
	}
}

// WithConfig sets the struct configuration is bound into. It must be a
// *configx.BaseConfig or implement BaseConfigProvider.
func WithConfig(cfg any) Option {
	return func(c *internal.ServiceConfig) { c.Config = cfg }
}

// WithConfigFile reads path in addition to the environment.
// Without it CONFIG_FILE is used.
func WithConfigFile(path string) Option {
	return func(c *internal.ServiceConfig) { c.ConfigFile = path }
}

// WithLogger replaces the logger built from LOG_LEVEL and LOG_FORMAT.
func WithLogger(logger log.Logger) Option {
	return func(c *internal.ServiceConfig) { c.Logger = logger }
}

// WithLogWriter sends the built logger's output to w.
func WithLogWriter(w io.Writer) Option {
	return func(c *internal.ServiceConfig) { c.LogWriter = w }
}

// WithMetrics toggles the telemetry provider and the metrics server.
func WithMetrics(enabled bool) Option {
	return func(c *internal.ServiceConfig) { c.EnableMetrics = enabled }
}

// WithRegister sets the function that wires handlers into the app.
func WithRegister(fn func(*App) error) Option {
	return func(c *internal.ServiceConfig) {
		c.RegisterFn = func(comp *internal.Components) error { return fn(&App{c: comp}) }
	}
}

// WithOnReady calls fn once every server is listening.
func WithOnReady(fn func(*App)) Option {
	return func(c *internal.ServiceConfig) {
		c.OnReady = func(comp *internal.Components) { fn(&App{c: comp}) }
	}
}

// WithAutoMigrate migrates models before registration.
func WithAutoMigrate(models ...any) Option {
	return func(c *internal.ServiceConfig) {
		c.AutoMigrateModels = append(c.AutoMigrateModels, models...)
	}
}

// WithTimeout sets the RPC deadline applied when callers send none.
func WithTimeout(d time.Duration) Option {
	return func(c *internal.ServiceConfig) { c.DefaultTimeout = d }
}

// WithSlowRequestThreshold sets when a call is logged as slow.
func WithSlowRequestThreshold(d time.Duration) Option {
	return func(c *internal.ServiceConfig) { c.SlowRequest = d }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *internal.ServiceConfig) { c.ShutdownTimeout = d }
}

// BaseConfigProvider is implemented by config structs that carry a
// configx.BaseConfig.
type BaseConfigProvider = internal.BaseConfigProvider

// Run bootstraps the service and blocks until ctx is done or a server fails.
//
// Parameters:
//   - ctx: service lifetime; cancel it to shut down
//   - opts: functional options
//
// Returns:
//   - error: nil after a clean shutdown, otherwise the first bootstrap or serve failure
func Run(ctx context.Context, opts ...Option) error {
	cfg := internal.NewServiceConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	rt, err := internal.NewServiceRuntime(cfg)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}
