package httpx

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/identity"
	"go.eggybyte.com/settings/httpx/internal"
	"go.eggybyte.com/settings/i18nx"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = internal.HeaderRequestID

// maxBodyBytes bounds request bodies read by BindAndValidate.
const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body written by WriteError.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var structValidator = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// BindAndValidate decodes the JSON body of r into target and runs its
// `validate` tags. Unknown fields are rejected.
//
// Returns:
//   - error: INVALID_ARGUMENT for empty, malformed or invalid bodies
func BindAndValidate(r *http.Request, target any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New(errors.CodeInvalidArgument, "request body is empty")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.New(errors.CodeInvalidArgument, "request body is empty")
		}
		return errors.Wrapf(errors.CodeInvalidArgument, "httpx.bind", err, "invalid JSON: %v", err)
	}

	return Validate(target)
}

// Validate runs the `validate` tags of target, which must be a struct or a
// pointer to one.
//
// Returns:
//   - error: INVALID_ARGUMENT naming the failed fields
func Validate(target any) error {
	if err := structValidator().Struct(target); err != nil {
		return errors.Wrapf(errors.CodeInvalidArgument, "httpx.validate", err, "validation failed: %v", err)
	}
	return nil
}

// WriteJSON writes data as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps err's code to an HTTP status and writes an ErrorResponse.
// Errors without a code, and internal errors, are reported without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) error {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.CodeInternal
	}
	msg := errors.Message(err)
	if code == errors.CodeInternal {
		msg = "internal error"
	}

	resp := ErrorResponse{Code: string(code), Message: msg}
	if r != nil {
		resp.RequestID = identity.RequestID(r.Context())
	}
	return WriteJSON(w, errors.HTTPStatus(code), resp)
}

// NotFoundHandler answers 404 with an ErrorResponse.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = WriteError(w, r, errors.Newf(errors.CodeNotFound, "path %s not found", r.URL.Path))
	}
}

// MethodNotAllowedHandler answers 405 with an ErrorResponse.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Code:      "METHOD_NOT_ALLOWED",
			Message:   "method " + r.Method + " not allowed for " + r.URL.Path,
			RequestID: identity.RequestID(r.Context()),
		})
	}
}

// SecurityHeaders selects the hardening headers SecureMiddleware emits.
type SecurityHeaders struct {
	ContentTypeOptions    bool   // X-Content-Type-Options: nosniff
	FrameOptions          bool   // X-Frame-Options: DENY
	ReferrerPolicy        bool   // Referrer-Policy: no-referrer
	HSTSMaxAge            int    // Strict-Transport-Security max-age; 0 disables it
	ContentSecurityPolicy string // Optional CSP header
}

// DefaultSecurityHeaders returns the headers settingd sends.
// HSTS is left to the ingress.
func DefaultSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		ContentTypeOptions: true,
		FrameOptions:       true,
		ReferrerPolicy:     true,
	}
}

// SecureMiddleware adds security headers to responses.
func SecureMiddleware(headers SecurityHeaders) func(http.Handler) http.Handler {
	s := internal.SecurityHeaders{
		NoSniff:               headers.ContentTypeOptions,
		DenyFraming:           headers.FrameOptions,
		NoReferrer:            headers.ReferrerPolicy,
		HSTSMaxAge:            headers.HSTSMaxAge,
		ContentSecurityPolicy: headers.ContentSecurityPolicy,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			internal.ApplySecurityHeaders(w.Header(), s)
			next.ServeHTTP(w, r)
		})
	}
}

// CORSOptions configures CORS behavior.
type CORSOptions struct {
	AllowedOrigins   []string // "*" allows any origin
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // Preflight cache duration in seconds
}

// DefaultCORSOptions allows any origin to call the settings API and the
// connect procedures.
func DefaultCORSOptions() CORSOptions {
	return CORSOptions{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept-Language", "Connect-Protocol-Version", "Connect-Timeout-Ms", HeaderRequestID, "X-User-Id", "X-User-Name", "X-User-Roles"},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         3600,
	}
}

// CORSMiddleware adds CORS headers and answers preflight requests.
func CORSMiddleware(opts CORSOptions) func(http.Handler) http.Handler {
	p := internal.CORSPolicy{
		Origins:          opts.AllowedOrigins,
		Methods:          opts.AllowedMethods,
		Headers:          opts.AllowedHeaders,
		ExposedHeaders:   opts.ExposedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			internal.ApplyCORSHeaders(w.Header(), r, p)
			if internal.IsPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestMetaMiddleware stores identity.RequestMeta in the request context
// and echoes the request id on the response.
func RequestMetaMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := &identity.RequestMeta{
				RequestID: internal.RequestID(r),
				RemoteIP:  remoteIP(r),
				UserAgent: r.UserAgent(),
			}
			w.Header().Set(HeaderRequestID, meta.RequestID)
			next.ServeHTTP(w, r.WithContext(identity.WithMeta(r.Context(), meta)))
		})
	}
}

// Negotiator picks a supported locale for an Accept-Language value.
// *i18nx.Translator implements it.
type Negotiator interface {
	Negotiate(acceptLanguage string) language.Tag
}

// LocaleMiddleware negotiates the request locale and stores it with
// i18nx.WithLocale.
func LocaleMiddleware(n Negotiator) func(http.Handler) http.Handler {
	if n == nil {
		panic("httpx.LocaleMiddleware: negotiator cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := n.Negotiate(r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", tag.String())
			next.ServeHTTP(w, r.WithContext(i18nx.WithLocale(r.Context(), tag)))
		})
	}
}

// Chain applies middleware so that the first one is outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
