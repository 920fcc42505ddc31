// Package clientx builds Connect clients for the settings service.
//
// Overview:
//   - Responsibility: Resilient HTTP transport, JSON codec, identity forwarding, client metrics
//   - Key Types: Client, Options
//   - Concurrency Model: Clients are safe for concurrent use
//   - Error Semantics: Call returns core errors mapped from Connect codes; an open breaker is UNAVAILABLE
//   - Performance Notes: Only 502/503/504 and transport errors are retried
//
// Usage:
//
//	c := clientx.New("http://localhost:8080", clientx.WithRetry(3))
//	get := clientx.NewUnary[GetRequest, Setting](c, "/settings.v1.SettingService/GetSetting")
//	setting, err := clientx.Call(ctx, get, &GetRequest{Group: "chatbot", Label: "fallback"})
package clientx
