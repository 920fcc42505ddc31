package internal

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterDBMetrics observes db's pool statistics on every collection,
// labelled with db_name=name.
//
// Metrics:
//   - db_pool_open_connections
//   - db_pool_in_use
//   - db_pool_idle
//   - db_pool_max_open
//   - db_pool_wait_count_total
//   - db_pool_wait_seconds_total
func RegisterDBMetrics(name string, db *sql.DB, mp metric.MeterProvider) error {
	meter := mp.Meter("go.eggybyte.com/settings/obsx/database")
	attrs := metric.WithAttributes(attribute.String("db_name", name))

	gauges := map[string]string{
		"db_pool_open_connections": "Established connections, in use and idle",
		"db_pool_in_use":           "Connections currently in use",
		"db_pool_idle":             "Idle connections",
		"db_pool_max_open":         "Maximum number of open connections",
	}
	instruments := make(map[string]metric.Int64ObservableGauge, len(gauges))
	observables := make([]metric.Observable, 0, len(gauges)+2)
	for n, desc := range gauges {
		g, err := meter.Int64ObservableGauge(n, metric.WithDescription(desc))
		if err != nil {
			return err
		}
		instruments[n] = g
		observables = append(observables, g)
	}

	waitCount, err := meter.Int64ObservableCounter("db_pool_wait_count_total",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return err
	}
	waitSeconds, err := meter.Float64ObservableCounter("db_pool_wait_seconds_total",
		metric.WithDescription("Time blocked waiting for a connection"), metric.WithUnit("s"))
	if err != nil {
		return err
	}
	observables = append(observables, waitCount, waitSeconds)

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := db.Stats()
		o.ObserveInt64(instruments["db_pool_open_connections"], int64(s.OpenConnections), attrs)
		o.ObserveInt64(instruments["db_pool_in_use"], int64(s.InUse), attrs)
		o.ObserveInt64(instruments["db_pool_idle"], int64(s.Idle), attrs)
		o.ObserveInt64(instruments["db_pool_max_open"], int64(s.MaxOpenConnections), attrs)
		o.ObserveInt64(waitCount, s.WaitCount, attrs)
		o.ObserveFloat64(waitSeconds, s.WaitDuration.Seconds(), attrs)
		return nil
	}, observables...)
	return err
}
