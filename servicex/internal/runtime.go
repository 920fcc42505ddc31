package internal

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"go.eggybyte.com/settings/configx"
	"go.eggybyte.com/settings/connectx"
	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/eventx"
	"go.eggybyte.com/settings/httpx"
	"go.eggybyte.com/settings/i18nx"
	"go.eggybyte.com/settings/logx"
	"go.eggybyte.com/settings/obsx"
	"go.eggybyte.com/settings/runtimex"
	"go.eggybyte.com/settings/storex"
)

// Components is what registration code gets to build handlers from.
type Components struct {
	Mux            *http.ServeMux
	Logger         log.Logger
	Base           *configx.BaseConfig
	Config         configx.Manager
	DB             *gorm.DB
	Otel           *obsx.Provider
	Bus            *eventx.LocalBus
	Translator     *i18nx.Translator
	HandlerOptions []connect.HandlerOption
	Services       []runtimex.Service
	HealthCheckers []runtimex.HealthChecker
	ShutdownHooks  []func(context.Context) error
	Runtime        *runtimex.Runtime
}

// ServiceRuntime runs one bootstrap sequence.
type ServiceRuntime struct {
	config   *ServiceConfig
	logger   log.Logger
	base     *configx.BaseConfig
	manager  configx.Manager
	registry *storex.Registry
	otel     *obsx.Provider
}

// NewServiceRuntime validates cfg.
func NewServiceRuntime(cfg *ServiceConfig) (*ServiceRuntime, error) {
	if cfg.Config == nil {
		cfg.Config = &configx.BaseConfig{}
	}
	base, ok := ExtractBaseConfig(cfg.Config)
	if !ok {
		return nil, errors.New(errors.CodeInvalidArgument, "config must be *configx.BaseConfig or implement GetBaseConfig")
	}
	return &ServiceRuntime{config: cfg, base: base}, nil
}

// Run bootstraps every component, serves until ctx ends and shuts down.
func (r *ServiceRuntime) Run(ctx context.Context) error {
	if err := r.initializeConfig(ctx); err != nil {
		return err
	}
	r.logger.Info("starting service",
		log.Str("version", r.base.ServiceVersion),
		log.Str("build", BuildTime),
		log.Str("env", r.base.Env))

	db, err := r.initializeDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.registry.Close(); cerr != nil {
			r.logger.Error(cerr, "database close failed")
		}
	}()

	if err := r.initializeObservability(ctx, db); err != nil {
		return err
	}
	if r.otel != nil {
		defer func() {
			if serr := r.otel.Shutdown(context.WithoutCancel(ctx)); serr != nil {
				r.logger.Error(serr, "telemetry shutdown failed")
			}
		}()
	}

	c, err := r.buildComponents(db)
	if err != nil {
		return err
	}
	if r.config.RegisterFn != nil {
		if err := r.config.RegisterFn(c); err != nil {
			return errors.Wrap(errors.CodeInternal, "servicex.register", err)
		}
	}
	defer r.runShutdownHooks(context.WithoutCancel(ctx), c)

	rt, err := r.newRuntime(c)
	if err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		return err
	}
	c.Runtime = rt
	r.logger.Info("service ready",
		log.Str("http", rt.Addr(runtimex.ServerHTTP)),
		log.Str("health", rt.Addr(runtimex.ServerHealth)),
		log.Str("metrics", rt.Addr(runtimex.ServerMetrics)))
	if r.config.OnReady != nil {
		r.config.OnReady(c)
	}

	waitErr := rt.Wait(ctx)
	r.logger.Info("shutting down service")
	stopErr := rt.Stop(context.WithoutCancel(ctx))
	return stderrors.Join(waitErr, stopErr)
}

func (r *ServiceRuntime) initializeConfig(ctx context.Context) error {
	boot := r.config.Logger
	if boot == nil {
		opts := []logx.Option{}
		if r.config.LogWriter != nil {
			opts = append(opts, logx.WithWriter(r.config.LogWriter))
		}
		boot = logx.New(opts...)
	}

	file := r.config.ConfigFile
	if file == "" {
		file = os.Getenv("CONFIG_FILE")
	}
	mgr, err := configx.DefaultManager(ctx, boot, file)
	if err != nil {
		return err
	}
	if err := mgr.Bind(r.config.Config); err != nil {
		return err
	}
	if r.config.ServiceName != "" {
		r.base.ServiceName = r.config.ServiceName
	}
	if r.config.ServiceVersion != "" {
		r.base.ServiceVersion = r.config.ServiceVersion
	}
	r.base.ConfigFile = file

	if r.config.Logger != nil {
		r.logger = r.config.Logger
	} else {
		logger, err := NewLogger(r.base, r.config.LogWriter)
		if err != nil {
			return err
		}
		r.logger = logger
	}
	r.config.Logger = r.logger
	r.manager = mgr
	return nil
}

func (r *ServiceRuntime) initializeDatabase(ctx context.Context) (*gorm.DB, error) {
	dbCfg := r.base.Database
	r.logger.Info("initializing database", log.Str("driver", dbCfg.Driver))

	store, err := storex.NewGORMStore(ctx, storex.GORMOptions{
		DSN:             dbCfg.DSN,
		Driver:          dbCfg.Driver,
		MaxIdleConns:    dbCfg.MaxIdle,
		MaxOpenConns:    dbCfg.MaxOpen,
		ConnMaxLifetime: dbCfg.MaxLifetime,
		Logger:          r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.registry = storex.NewRegistryWithTimeout(dbCfg.PingTimeout)
	if err := r.registry.Register("database", store); err != nil {
		_ = store.Close()
		return nil, err
	}

	db := store.GetDB()
	if len(r.config.AutoMigrateModels) > 0 {
		r.logger.Info("running auto-migration", log.Int("models", len(r.config.AutoMigrateModels)))
		if err := db.WithContext(ctx).AutoMigrate(r.config.AutoMigrateModels...); err != nil {
			_ = r.registry.Close()
			return nil, errors.Wrap(errors.CodeInternal, "servicex.migrate", err)
		}
	}
	return db, nil
}

func (r *ServiceRuntime) initializeObservability(ctx context.Context, db *gorm.DB) error {
	if !r.config.EnableMetrics {
		return nil
	}
	provider, err := obsx.NewProvider(ctx, obsx.Options{
		ServiceName:    r.base.ServiceName,
		ServiceVersion: r.base.ServiceVersion,
		ResourceAttrs:  map[string]string{"deployment.environment": r.base.Env},
		OTLPEndpoint:   r.base.OTLPEndpoint,
		OTLPInsecure:   true,
	})
	if err != nil {
		return err
	}
	if err := provider.EnableRuntimeMetrics(); err != nil {
		r.logger.Warn("runtime metrics disabled", log.Str("error", err.Error()))
	}
	if err := provider.RegisterGORMMetrics("settings", db); err != nil {
		r.logger.Warn("database pool metrics disabled", log.Str("error", err.Error()))
	}
	r.otel = provider
	return nil
}

func (r *ServiceRuntime) buildComponents(db *gorm.DB) (*Components, error) {
	locale, err := language.Parse(r.base.DefaultLocale)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "servicex.locale", err)
	}
	translator, err := i18nx.New(i18nx.WithDefaultLocale(locale))
	if err != nil {
		return nil, err
	}

	busOpts := []eventx.Option{eventx.WithLogger(r.logger)}
	if r.otel != nil {
		busOpts = append(busOpts, eventx.WithMeterProvider(r.otel.MeterProvider()))
	}

	return &Components{
		Mux:        http.NewServeMux(),
		Logger:     r.logger,
		Base:       r.base,
		Config:     r.manager,
		DB:         db,
		Otel:       r.otel,
		Bus:        eventx.New(busOpts...),
		Translator: translator,
		HandlerOptions: connectx.HandlerOptions(connectx.Options{
			Logger:         r.logger,
			Otel:           r.otel,
			Locales:        translator,
			SlowRequest:    r.config.SlowRequest,
			DefaultTimeout: r.config.DefaultTimeout,
		}),
	}, nil
}

func (r *ServiceRuntime) newRuntime(c *Components) (*runtimex.Runtime, error) {
	handler := httpx.Chain(c.Mux,
		httpx.RequestMetaMiddleware(),
		httpx.SecureMiddleware(httpx.DefaultSecurityHeaders()),
		httpx.CORSMiddleware(httpx.DefaultCORSOptions()),
		httpx.LocaleMiddleware(c.Translator),
	)

	opts := runtimex.Options{
		Logger:          r.logger,
		HTTP:            &runtimex.HTTPOptions{Addr: r.base.HTTPPort, H2C: true, Handler: handler},
		HealthCheckers:  append([]runtimex.HealthChecker{runtimex.CheckerFunc("database", r.registry.Ping)}, c.HealthCheckers...),
		HealthTimeout:   r.base.Database.PingTimeout,
		ShutdownTimeout: r.config.ShutdownTimeout,
	}
	if r.base.HealthPort != "" {
		opts.Health = &runtimex.Endpoint{Addr: r.base.HealthPort}
	}
	if r.otel != nil && r.base.MetricsPort != "" {
		opts.Metrics = &runtimex.MetricsEndpoint{Addr: r.base.MetricsPort, Handler: r.otel.PrometheusHandler()}
	}
	return runtimex.New(c.Services, opts)
}

// runShutdownHooks runs hooks in reverse registration order.
func (r *ServiceRuntime) runShutdownHooks(ctx context.Context, c *Components) {
	ctx, cancel := context.WithTimeout(ctx, r.config.ShutdownTimeout)
	defer cancel()
	for i := len(c.ShutdownHooks) - 1; i >= 0; i-- {
		if err := c.ShutdownHooks[i](ctx); err != nil {
			r.logger.Error(err, "shutdown hook failed", log.Int("index", i))
		}
	}
}
