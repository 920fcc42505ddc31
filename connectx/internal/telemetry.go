package internal

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "go.eggybyte.com/settings/connectx"

// MetricsCollector holds the RPC instruments.
type MetricsCollector struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetricsCollector creates rpc_requests_total and
// rpc_request_duration_seconds on mp.
func NewMetricsCollector(mp metric.MeterProvider) (*MetricsCollector, error) {
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("rpc_requests_total",
		metric.WithDescription("RPC requests by service, method and code"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("rpc_request_duration_seconds",
		metric.WithDescription("RPC latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	return &MetricsCollector{requests: requests, duration: duration}, nil
}

// MetricsInterceptor records one request and its latency per call.
func MetricsInterceptor(c *MetricsCollector) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			service, method := ParseProcedure(req.Spec().Procedure)
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			attrs := metric.WithAttributes(
				attribute.String("rpc_service", service),
				attribute.String("rpc_method", method),
				attribute.String("rpc_code", code),
			)
			c.requests.Add(ctx, 1, attrs)
			c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			return resp, err
		}
	}
}

// TracingInterceptor starts a server span per call, continuing any trace
// propagated in the request headers.
func TracingInterceptor(tp trace.TracerProvider, prop propagation.TextMapPropagator) connect.UnaryInterceptorFunc {
	tracer := tp.Tracer(instrumentationName)
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			service, method := ParseProcedure(procedure)

			ctx = prop.Extract(ctx, propagation.HeaderCarrier(req.Header()))
			ctx, span := tracer.Start(ctx, strings.TrimPrefix(procedure, "/"),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("rpc.system", "connect_rpc"),
					attribute.String("rpc.service", service),
					attribute.String("rpc.method", method),
				),
			)
			defer span.End()

			resp, err := next(ctx, req)
			if err != nil {
				span.SetAttributes(attribute.String("rpc.connect_rpc.error_code", connect.CodeOf(err).String()))
				if IsServerError(err) {
					span.SetStatus(codes.Error, err.Error())
				}
			}
			return resp, err
		}
	}
}

// ParseProcedure splits "/settings.v1.SettingService/GetSetting" into
// service and method.
func ParseProcedure(procedure string) (service, method string) {
	procedure = strings.TrimPrefix(procedure, "/")
	i := strings.LastIndex(procedure, "/")
	if i < 0 {
		return "", procedure
	}
	return procedure[:i], procedure[i+1:]
}
