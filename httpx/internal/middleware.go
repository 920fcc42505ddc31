// Package internal holds the header logic behind httpx middleware.
package internal

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// SecurityHeaders selects the response hardening headers to emit.
type SecurityHeaders struct {
	NoSniff               bool
	DenyFraming           bool
	NoReferrer            bool
	HSTSMaxAge            int // 0 disables Strict-Transport-Security
	ContentSecurityPolicy string
}

// ApplySecurityHeaders writes the selected headers.
func ApplySecurityHeaders(h http.Header, s SecurityHeaders) {
	if s.NoSniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if s.DenyFraming {
		h.Set("X-Frame-Options", "DENY")
	}
	if s.NoReferrer {
		h.Set("Referrer-Policy", "no-referrer")
	}
	if s.HSTSMaxAge > 0 {
		h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(s.HSTSMaxAge)+"; includeSubDomains")
	}
	if s.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", s.ContentSecurityPolicy)
	}
}

// CORSPolicy is a resolved cross-origin policy.
type CORSPolicy struct {
	Origins          []string
	Methods          []string
	Headers          []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// AllowOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when the origin is not allowed.
func (p CORSPolicy) AllowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if slices.Contains(p.Origins, origin) {
		return origin
	}
	if slices.Contains(p.Origins, "*") {
		// A credentialed response may not use the wildcard.
		if p.AllowCredentials {
			return origin
		}
		return "*"
	}
	return ""
}

// ApplyCORSHeaders writes the CORS headers for r and reports whether the
// origin was allowed.
func ApplyCORSHeaders(h http.Header, r *http.Request, p CORSPolicy) bool {
	h.Add("Vary", "Origin")
	allow := p.AllowOrigin(r.Header.Get("Origin"))
	if allow == "" {
		return false
	}
	h.Set("Access-Control-Allow-Origin", allow)
	if len(p.Methods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(p.Methods, ", "))
	}
	if len(p.Headers) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(p.Headers, ", "))
	}
	if len(p.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(p.ExposedHeaders, ", "))
	}
	if p.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.MaxAge))
	}
	return true
}

// IsPreflight reports whether r is a CORS preflight request.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// RequestID returns the inbound request id or a fresh UUID.
func RequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderRequestID)); id != "" {
		return id
	}
	return uuid.NewString()
}
