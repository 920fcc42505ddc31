package internal

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var processStart = time.Now()

// EnableRuntimeMetrics registers Go runtime and process gauges on mp.
//
// Metrics:
//   - process_runtime_go_goroutines
//   - process_runtime_go_memory_heap_bytes
//   - process_runtime_go_memory_stack_bytes
//   - process_runtime_go_gc_count_total
//   - process_start_time_seconds
//   - process_uptime_seconds
func EnableRuntimeMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter("go.eggybyte.com/settings/obsx/runtime")

	goroutines, err := meter.Int64ObservableGauge("process_runtime_go_goroutines",
		metric.WithDescription("Number of goroutines that currently exist"))
	if err != nil {
		return err
	}
	heap, err := meter.Int64ObservableGauge("process_runtime_go_memory_heap_bytes",
		metric.WithDescription("Heap memory in bytes"), metric.WithUnit("By"))
	if err != nil {
		return err
	}
	stack, err := meter.Int64ObservableGauge("process_runtime_go_memory_stack_bytes",
		metric.WithDescription("Stack memory in bytes"), metric.WithUnit("By"))
	if err != nil {
		return err
	}
	gc, err := meter.Int64ObservableCounter("process_runtime_go_gc_count_total",
		metric.WithDescription("Completed GC cycles"))
	if err != nil {
		return err
	}
	start, err := meter.Float64ObservableGauge("process_start_time_seconds",
		metric.WithDescription("Start time of the process since unix epoch"), metric.WithUnit("s"))
	if err != nil {
		return err
	}
	uptime, err := meter.Float64ObservableGauge("process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heap, int64(m.HeapAlloc))
		o.ObserveInt64(stack, int64(m.StackInuse))
		o.ObserveInt64(gc, int64(m.NumGC))
		o.ObserveFloat64(start, float64(processStart.Unix()))
		o.ObserveFloat64(uptime, time.Since(processStart).Seconds())
		return nil
	}, goroutines, heap, stack, gc, start, uptime)
	return err
}
