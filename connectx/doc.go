// Package connectx provides the Connect interceptor stack and JSON codec
// the settings RPC surface is served with.
//
// Overview:
//   - Responsibility: Recovery, timeouts, identity and locale injection, telemetry, error mapping, logging
//   - Key Types: Options, HeaderMapping, JSONCodec
//   - Concurrency Model: Interceptors are safe for concurrent use
//   - Error Semantics: Core error codes map to Connect codes; internal errors carry no detail
//   - Performance Notes: Identity extraction reads headers only
//
// Usage:
//
//	opts := connectx.HandlerOptions(connectx.Options{
//		Logger:  logger,
//		Otel:    provider,
//		Locales: translator,
//	})
//	mux.Handle("/settings.v1.SettingService/GetSetting",
//		connect.NewUnaryHandler("/settings.v1.SettingService/GetSetting", h.GetSetting, opts...))
package connectx
