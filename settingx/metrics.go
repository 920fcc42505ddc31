package settingx

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// storeMetrics is nil-safe: a nil receiver records nothing.
type storeMetrics struct {
	writes             metric.Int64Counter
	validationFailures metric.Int64Counter
}

func newStoreMetrics(mp metric.MeterProvider) (*storeMetrics, error) {
	meter := mp.Meter("go.eggybyte.com/settings/settingx")

	writes, err := meter.Int64Counter(
		"settings_writes_total",
		metric.WithDescription("Setting writes by operation and result"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"settings_validation_failures_total",
		metric.WithDescription("Values rejected because their shape did not match the declared type"),
	)
	if err != nil {
		return nil, err
	}

	return &storeMetrics{writes: writes, validationFailures: failures}, nil
}

func (m *storeMetrics) write(ctx context.Context, op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	))
}

func (m *storeMetrics) validationFailed(ctx context.Context, t Type) {
	if m == nil {
		return
	}
	m.validationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(t))))
}
