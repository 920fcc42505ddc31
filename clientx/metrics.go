package clientx

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ClientMetricsCollector holds the outbound RPC instruments.
type ClientMetricsCollector struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewClientMetricsCollector creates rpc_client_requests_total and
// rpc_client_request_duration_seconds on mp.
func NewClientMetricsCollector(mp metric.MeterProvider) (*ClientMetricsCollector, error) {
	meter := mp.Meter("go.eggybyte.com/settings/clientx")

	requests, err := meter.Int64Counter("rpc_client_requests_total",
		metric.WithDescription("Outbound RPC calls by procedure and code"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("rpc_client_request_duration_seconds",
		metric.WithDescription("Outbound RPC latency in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	return &ClientMetricsCollector{requests: requests, duration: duration}, nil
}

// ClientMetricsInterceptor records every outbound call.
func ClientMetricsInterceptor(c *ClientMetricsCollector) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			attrs := metric.WithAttributes(
				attribute.String("rpc_procedure", req.Spec().Procedure),
				attribute.String("rpc_code", code),
			)
			c.requests.Add(ctx, 1, attrs)
			c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			return resp, err
		}
	}
}
