// Package obsx bootstraps OpenTelemetry metrics and tracing.
//
// Overview:
//   - Responsibility: Build meter and tracer providers with Prometheus and optional OTLP export
//   - Key Types: Options, Provider
//   - Concurrency Model: Provider is safe for concurrent use
//   - Error Semantics: NewProvider returns INVALID_ARGUMENT or INTERNAL errors
//   - Performance Notes: Observable metrics are computed on collection only
//
// Usage:
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{
//		ServiceName:    "settingd",
//		ServiceVersion: "1.0.0",
//		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
//	})
//	defer provider.Shutdown(ctx)
//	_ = provider.EnableRuntimeMetrics()
//	http.Handle("/metrics", provider.PrometheusHandler())
package obsx
