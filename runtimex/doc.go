// Package runtimex runs the servers and background services of a process.
//
// Overview:
//   - Responsibility: Main HTTP server (optionally h2c), health and metrics servers, ordered service lifecycle
//   - Key Types: Runtime, Options, Service, HealthChecker
//   - Concurrency Model: Servers run in their own goroutines; Start and Stop are not reentrant
//   - Error Semantics: Start returns UNAVAILABLE on bind or service failures and unwinds what it started
//   - Performance Notes: Readiness checks run concurrently under one timeout
//
// Usage:
//
//	err := runtimex.Run(ctx, []runtimex.Service{view}, runtimex.Options{
//		Logger:         logger,
//		HTTP:           &runtimex.HTTPOptions{Addr: ":8080", H2C: true, Handler: mux},
//		Health:         &runtimex.Endpoint{Addr: ":8081"},
//		Metrics:        &runtimex.MetricsEndpoint{Addr: ":9091", Handler: provider.PrometheusHandler()},
//		HealthCheckers: []runtimex.HealthChecker{runtimex.CheckerFunc("database", registry.Ping)},
//	})
package runtimex
