// Package httpx provides the HTTP helpers behind the settings REST surface.
//
// Overview:
//   - Responsibility: JSON binding and validation, coded error responses, security/CORS/locale middleware
//   - Key Types: ErrorResponse, SecurityHeaders, CORSOptions, Negotiator
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: BindAndValidate returns INVALID_ARGUMENT; WriteError maps core codes to statuses
//   - Performance Notes: One shared validator instance caches struct metadata
//
// Usage:
//
//	var req SetRequest
//	if err := httpx.BindAndValidate(r, &req); err != nil {
//		_ = httpx.WriteError(w, r, err)
//		return
//	}
//
//	handler := httpx.Chain(mux,
//		httpx.RequestMetaMiddleware(),
//		httpx.SecureMiddleware(httpx.DefaultSecurityHeaders()),
//		httpx.CORSMiddleware(httpx.DefaultCORSOptions()),
//		httpx.LocaleMiddleware(translator),
//	)
package httpx
