package runtimex

import (
	"context"
	"net/http"
	"time"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/runtimex/internal"
)

// Server names accepted by Runtime.Addr.
const (
	ServerHTTP    = "http"
	ServerHealth  = "health"
	ServerMetrics = "metrics"
)

// Service is a background component with a start/stop lifecycle.
// Start must return once the service is running.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// HTTPOptions configures the main server.
type HTTPOptions struct {
	Addr    string       // e.g. ":8080"
	H2C     bool         // Accept HTTP/2 without TLS, for Connect clients
	Handler http.Handler // Required
}

// Endpoint is a side server address.
type Endpoint struct {
	Addr string
}

// MetricsEndpoint serves Handler on Addr at /metrics.
type MetricsEndpoint struct {
	Addr    string
	Handler http.Handler
}

// HealthChecker is a readiness dependency.
type HealthChecker = internal.HealthChecker

// Report is the readiness result.
type Report = internal.Report

type checkerFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkerFunc) Name() string                    { return c.name }
func (c checkerFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckerFunc adapts fn into a HealthChecker.
//
//	runtimex.CheckerFunc("database", registry.Ping)
func CheckerFunc(name string, fn func(ctx context.Context) error) HealthChecker {
	return checkerFunc{name: name, fn: fn}
}

// Options configures the runtime.
type Options struct {
	Logger            log.Logger // Required
	HTTP              *HTTPOptions
	Health            *Endpoint
	Metrics           *MetricsEndpoint
	HealthCheckers    []HealthChecker
	HealthTimeout     time.Duration // Per readiness probe (default: 2s)
	ShutdownTimeout   time.Duration // Default: 15s
	ReadHeaderTimeout time.Duration // Default: 10s
}

// Runtime owns the servers and services of one process.
type Runtime struct {
	impl   *internal.Runtime
	health *internal.Health
	logger log.Logger
}

// New builds a runtime without starting anything.
//
// Returns:
//   - *Runtime: ready runtime
//   - error: INVALID_ARGUMENT when the logger or an HTTP handler is missing
func New(services []Service, opts Options) (*Runtime, error) {
	if opts.Logger == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "logger is required")
	}
	if opts.HTTP != nil && opts.HTTP.Handler == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "http handler is required")
	}
	if opts.Metrics != nil && opts.Metrics.Handler == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "metrics handler is required")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}

	svcs := make([]internal.Service, len(services))
	for i, s := range services {
		svcs[i] = s
	}
	rt := &Runtime{
		impl:   internal.NewRuntime(opts.Logger, svcs, opts.ShutdownTimeout),
		health: internal.NewHealth(opts.HealthTimeout),
		logger: opts.Logger,
	}
	for _, c := range opts.HealthCheckers {
		rt.health.Register(c)
	}

	if opts.HTTP != nil {
		srv := &http.Server{
			Addr:              opts.HTTP.Addr,
			Handler:           opts.HTTP.Handler,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
		}
		if opts.HTTP.H2C {
			var p http.Protocols
			p.SetHTTP1(true)
			p.SetUnencryptedHTTP2(true)
			srv.Protocols = &p
		}
		rt.impl.AddServer(ServerHTTP, srv)
	}
	if opts.Health != nil {
		rt.impl.AddServer(ServerHealth, &http.Server{
			Addr:              opts.Health.Addr,
			Handler:           rt.health.Handler(),
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
		})
	}
	if opts.Metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", opts.Metrics.Handler)
		rt.impl.AddServer(ServerMetrics, &http.Server{
			Addr:              opts.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
		})
	}
	return rt, nil
}

// Start starts services and servers. It returns once every listener is bound.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.impl.Start(ctx); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "runtimex.start", err)
	}
	return nil
}

// Stop shuts everything down gracefully.
func (r *Runtime) Stop(ctx context.Context) error {
	if err := r.impl.Stop(ctx); err != nil {
		return errors.Wrap(errors.CodeInternal, "runtimex.stop", err)
	}
	return nil
}

// Wait blocks until ctx ends or a server fails.
func (r *Runtime) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-r.impl.Errors():
		return errors.Wrap(errors.CodeInternal, "runtimex.serve", err)
	}
}

// Addr returns the bound address of a started server, such as ServerHTTP.
func (r *Runtime) Addr(server string) string {
	return r.impl.Addr(server)
}

// RegisterHealthChecker adds a readiness dependency.
func (r *Runtime) RegisterHealthChecker(c HealthChecker) {
	r.health.Register(c)
}

// CheckHealth runs the readiness checks.
func (r *Runtime) CheckHealth(ctx context.Context) Report {
	return r.health.Check(ctx)
}

// Run starts the runtime, blocks until ctx ends or a server fails, then
// stops it.
func Run(ctx context.Context, services []Service, opts Options) error {
	rt, err := New(services, opts)
	if err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		return err
	}
	waitErr := rt.Wait(ctx)
	// ctx is already done here; shutdown gets a fresh deadline.
	stopErr := rt.Stop(context.WithoutCancel(ctx))
	if waitErr != nil {
		return waitErr
	}
	return stopErr
}
