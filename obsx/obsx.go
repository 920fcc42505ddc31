package obsx

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/obsx/internal"
)

// Options holds configuration for the provider.
type Options struct {
	ServiceName    string            // Required
	ServiceVersion string            // Reported as service.version
	ResourceAttrs  map[string]string // Extra resource attributes
	OTLPEndpoint   string            // host:port of an OTLP/gRPC collector; empty keeps export local
	OTLPInsecure   bool              // Plaintext gRPC to the collector
	PushInterval   time.Duration     // OTLP metric export interval (default: 30s)
	SampleRatio    float64           // Trace sampling ratio (default: 1)
	SetGlobal      bool              // Install as the otel global providers
}

// Provider owns the process's meter and tracer providers.
// Shutdown must be called to flush pending exports.
type Provider struct {
	impl *internal.Provider
}

// NewProvider builds the providers. Metrics are always served for
// Prometheus scraping; with an OTLP endpoint they are also pushed, together
// with traces.
//
// Parameters:
//   - ctx: used for resource detection and exporter dialing
//   - opts: provider configuration
//
// Returns:
//   - *Provider: ready provider
//   - error: INVALID_ARGUMENT without a service name, INTERNAL when an exporter cannot be built
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		return nil, errors.New(errors.CodeInvalidArgument, "service name is required")
	}
	impl, err := internal.NewProvider(ctx, internal.ProviderOptions{
		ServiceName:    opts.ServiceName,
		ServiceVersion: opts.ServiceVersion,
		ResourceAttrs:  opts.ResourceAttrs,
		OTLPEndpoint:   opts.OTLPEndpoint,
		OTLPInsecure:   opts.OTLPInsecure,
		PushInterval:   opts.PushInterval,
		SampleRatio:    opts.SampleRatio,
		SetGlobal:      opts.SetGlobal,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "obsx.new_provider", err)
	}
	return &Provider{impl: impl}, nil
}

// MeterProvider returns the meter provider instruments are created on.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.impl.MeterProvider
}

// TracerProvider returns the tracer provider spans are created on.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.impl.TracerProvider
}

// Meter returns a named meter.
func (p *Provider) Meter(name string) metric.Meter {
	return p.impl.MeterProvider.Meter(name)
}

// PrometheusHandler serves the metrics for scraping.
//
//	mux.Handle("/metrics", provider.PrometheusHandler())
func (p *Provider) PrometheusHandler() http.Handler {
	return p.impl.PrometheusHandler()
}

// Shutdown flushes pending exports and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.impl.Shutdown(ctx)
}

// EnableRuntimeMetrics registers goroutine, memory, GC and uptime gauges.
// Call it once per provider.
func (p *Provider) EnableRuntimeMetrics() error {
	return internal.EnableRuntimeMetrics(p.impl.MeterProvider)
}

// RegisterDBMetrics observes db's pool statistics labelled db_name=name.
func (p *Provider) RegisterDBMetrics(name string, db *sql.DB) error {
	if db == nil {
		return errors.New(errors.CodeInvalidArgument, "db cannot be nil")
	}
	return internal.RegisterDBMetrics(name, db, p.impl.MeterProvider)
}

// RegisterGORMMetrics observes the pool behind a *gorm.DB.
//
//	provider.RegisterGORMMetrics("settings", store.GetDB())
func (p *Provider) RegisterGORMMetrics(name string, gormDB interface{ DB() (*sql.DB, error) }) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "obsx.register_gorm_metrics", err)
	}
	return p.RegisterDBMetrics(name, sqlDB)
}
