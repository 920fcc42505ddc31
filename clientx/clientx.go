package clientx

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/sony/gobreaker"

	"go.eggybyte.com/settings/clientx/internal"
	"go.eggybyte.com/settings/connectx"
	"go.eggybyte.com/settings/core/identity"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/core/utils"
	"go.eggybyte.com/settings/i18nx"
	"go.eggybyte.com/settings/obsx"
)

// Options configures a Client.
type Options struct {
	Timeout          time.Duration  // Per-call HTTP timeout (default: 10s)
	MaxRetries       int            // Retries after the first attempt (default: 2)
	RetryBackoff     time.Duration  // Delay before the first retry (default: 100ms)
	EnableCircuit    bool           // Circuit breaker on (default: true)
	CircuitThreshold uint32         // Consecutive failures that open the breaker (default: 5)
	CircuitTimeout   time.Duration  // Open state duration before probing (default: 30s)
	Logger           log.Logger     // Breaker transitions are logged here
	Otel             *obsx.Provider // nil disables client metrics
	Headers          connectx.HeaderMapping
}

// Option is a functional option for configuring the client.
type Option func(*Options)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithRetry sets how many times a failed call is retried.
func WithRetry(maxRetries int) Option {
	return func(o *Options) { o.MaxRetries = maxRetries }
}

// WithRetryBackoff sets the delay before the first retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *Options) { o.RetryBackoff = d }
}

// WithCircuitBreaker enables or disables the circuit breaker.
func WithCircuitBreaker(enabled bool) Option {
	return func(o *Options) { o.EnableCircuit = enabled }
}

// WithCircuitThreshold sets the consecutive failures that open the breaker.
func WithCircuitThreshold(n uint32) Option {
	return func(o *Options) { o.CircuitThreshold = n }
}

// WithLogger sets the logger for breaker transitions.
func WithLogger(l log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithOtel enables client metrics on provider.
func WithOtel(p *obsx.Provider) Option {
	return func(o *Options) { o.Otel = p }
}

// Client holds the shared HTTP transport and Connect options for one
// upstream. All procedures created from it share a breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	options    []connect.ClientOption
}

// New creates a Client for baseURL.
//
// Parameters:
//   - baseURL: scheme and host of the settings service, e.g. "http://localhost:8080"
//   - opts: functional options
//
// Returns:
//   - *Client: ready client
func New(baseURL string, opts ...Option) *Client {
	o := Options{
		Timeout:          10 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     100 * time.Millisecond,
		EnableCircuit:    true,
		CircuitThreshold: 5,
		CircuitTimeout:   30 * time.Second,
		Logger:           log.Nop(),
		Headers:          connectx.DefaultHeaderMapping(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var breaker *gobreaker.CircuitBreaker
	if o.EnableCircuit {
		threshold := o.CircuitThreshold
		logger := o.Logger
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    baseURL,
			Timeout: o.CircuitTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					log.Str("upstream", name), log.Str("from", from.String()), log.Str("to", to.String()))
			},
		})
	}

	retry := utils.RetryConfig{
		MaxAttempts: o.MaxRetries + 1,
		BaseDelay:   o.RetryBackoff,
		MaxDelay:    2 * time.Second,
		Multiplier:  2,
	}

	interceptors := []connect.Interceptor{
		OutgoingIdentityInterceptor(o.Headers),
	}
	if o.Otel != nil {
		if collector, err := NewClientMetricsCollector(o.Otel.MeterProvider()); err == nil {
			interceptors = append(interceptors, ClientMetricsInterceptor(collector))
		} else {
			o.Logger.Warn("client metrics disabled", log.Str("error", err.Error()))
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   o.Timeout,
			Transport: internal.NewRetryTransport(http.DefaultTransport, retry, breaker),
		},
		breaker: breaker,
		options: []connect.ClientOption{
			connect.WithCodec(connectx.JSONCodec{}),
			connect.WithInterceptors(interceptors...),
		},
	}
}

// HTTPClient returns the resilient HTTP client.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// BaseURL returns the upstream base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// BreakerState reports the breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// NewUnary creates a typed Connect client for one procedure.
//
//	get := clientx.NewUnary[GetSettingRequest, SettingResponse](c, "/settings.v1.SettingService/GetSetting")
func NewUnary[Req, Res any](c *Client, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](c.httpClient, c.baseURL+procedure, c.options...)
}

// Call invokes a unary client and converts failures into core errors.
func Call[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		if internal.IsBreakerOpen(err) {
			return nil, connectx.FromConnectError("clientx.call", connect.NewError(connect.CodeUnavailable, err))
		}
		return nil, connectx.FromConnectError("clientx.call", err)
	}
	return resp.Msg, nil
}

// OutgoingIdentityInterceptor forwards the caller identity, request id and
// locale carried by ctx as request headers.
func OutgoingIdentityInterceptor(h connectx.HeaderMapping) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if user, ok := identity.UserFrom(ctx); ok {
				setIfEmpty(req.Header(), h.UserID, user.UserID)
				setIfEmpty(req.Header(), h.UserName, user.UserName)
			}
			if meta, ok := identity.MetaFrom(ctx); ok {
				setIfEmpty(req.Header(), h.RequestID, meta.RequestID)
				setIfEmpty(req.Header(), h.InternalToken, meta.InternalToken)
			}
			if tag, ok := i18nx.LocaleFrom(ctx); ok {
				setIfEmpty(req.Header(), "Accept-Language", tag.String())
			}
			return next(ctx, req)
		}
	}
}

func setIfEmpty(h http.Header, key, value string) {
	if key != "" && value != "" && h.Get(key) == "" {
		h.Set(key, value)
	}
}
