package connectx

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"go.eggybyte.com/settings/connectx/internal"
	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/obsx"
)

// HeaderMapping defines which headers carry identity and request metadata.
type HeaderMapping struct {
	RequestID     string // "X-Request-Id"
	InternalToken string // "X-Internal-Token"
	UserID        string // "X-User-Id"
	UserName      string // "X-User-Name"
	Roles         string // "X-User-Roles"
	RealIP        string // "X-Real-IP"
	ForwardedFor  string // "X-Forwarded-For"
	UserAgent     string // "User-Agent"
}

// DefaultHeaderMapping returns the headers set by the gateway in front of settingd.
func DefaultHeaderMapping() HeaderMapping {
	return HeaderMapping{
		RequestID:     "X-Request-Id",
		InternalToken: "X-Internal-Token",
		UserID:        "X-User-Id",
		UserName:      "X-User-Name",
		Roles:         "X-User-Roles",
		RealIP:        "X-Real-IP",
		ForwardedFor:  "X-Forwarded-For",
		UserAgent:     "User-Agent",
	}
}

// Negotiator picks a supported locale for an Accept-Language value.
// *i18nx.Translator implements it.
type Negotiator = internal.Negotiator

// Options configures the interceptor stack.
type Options struct {
	Logger         log.Logger     // Required
	Otel           *obsx.Provider // nil disables metrics and tracing
	Locales        Negotiator     // nil skips locale negotiation
	Headers        HeaderMapping  // Zero value uses DefaultHeaderMapping
	SlowRequest    time.Duration  // Slow call threshold (default: 1s)
	DefaultTimeout time.Duration  // Applied when the caller sets no deadline (default: 30s)
}

// DefaultInterceptors builds the server interceptor stack, outermost first:
// recovery, tracing, timeout, identity, locale, metrics, error mapping, logging.
//
// Parameters:
//   - opts: stack configuration; Logger is required
//
// Returns:
//   - []connect.Interceptor: interceptors for connect.WithInterceptors
func DefaultInterceptors(opts Options) []connect.Interceptor {
	if opts.Logger == nil {
		panic("connectx.DefaultInterceptors: logger cannot be nil")
	}
	if opts.Headers.UserID == "" {
		opts.Headers = DefaultHeaderMapping()
	}
	if opts.SlowRequest == 0 {
		opts.SlowRequest = time.Second
	}
	if opts.DefaultTimeout == 0 {
		opts.DefaultTimeout = 30 * time.Second
	}

	interceptors := []connect.Interceptor{
		internal.RecoveryInterceptor(opts.Logger),
	}
	if opts.Otel != nil {
		interceptors = append(interceptors, internal.TracingInterceptor(opts.Otel.TracerProvider(), propagator()))
	}
	interceptors = append(interceptors,
		internal.TimeoutInterceptor(opts.DefaultTimeout),
		internal.IdentityInterceptor(internal.HeaderMapping(opts.Headers)),
	)
	if opts.Locales != nil {
		interceptors = append(interceptors, internal.LocaleInterceptor(opts.Locales))
	}
	if opts.Otel != nil {
		collector, err := internal.NewMetricsCollector(opts.Otel.MeterProvider())
		if err != nil {
			opts.Logger.Warn("rpc metrics disabled", log.Str("error", err.Error()))
		} else {
			interceptors = append(interceptors, internal.MetricsInterceptor(collector))
		}
	}
	interceptors = append(interceptors,
		internal.ErrorMappingInterceptor(),
		internal.LoggingInterceptor(opts.Logger, internal.LoggingOptions{SlowThreshold: opts.SlowRequest}),
	)
	return interceptors
}

// HandlerOptions returns the interceptor stack plus the JSON codec, ready
// for connect.NewUnaryHandler.
func HandlerOptions(opts Options) []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithInterceptors(DefaultInterceptors(opts)...),
		connect.WithCodec(JSONCodec{}),
	}
}

// JSONCodec serializes plain Go request and response structs.
type JSONCodec = internal.JSONCodec

// ToConnectError maps a core error to a *connect.Error carrying the
// matching code.
func ToConnectError(err error) error {
	return internal.ToConnectError(err)
}

// FromConnectError maps a Connect error received by a client back into a
// core error, so callers can branch on errors.CodeOf.
func FromConnectError(op string, err error) error {
	if err == nil {
		return nil
	}
	code := internal.CoreCode(connect.CodeOf(err))
	if ce, ok := err.(*connect.Error); ok {
		return errors.Build(code).WithOp(op).WithErr(err).WithMsg(ce.Message()).Err()
	}
	return errors.Wrap(code, op, err)
}

// Bind mounts a Connect handler on mux.
func Bind(mux *http.ServeMux, path string, handler http.Handler) {
	mux.Handle(path, handler)
}

func propagator() propagation.TextMapPropagator {
	if p := otel.GetTextMapPropagator(); len(p.Fields()) > 0 {
		return p
	}
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}
