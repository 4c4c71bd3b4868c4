package counter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsMeterName is the name of the counter meter
const MetricsMeterName = "github.com/d0ngw/timeline-counter/counter"

// operation outcomes
const (
	outcomeOK            = "ok"
	outcomeContention    = "contention"
	outcomeNotFound      = "not_found"
	outcomeUnsupported   = "unsupported"
	outcomePersistFailed = "persist_failed"
	outcomeError         = "error"
)

// opUnknown labels the operations that failed to parse, the raw name is never a label value
const opUnknown Operation = "unknown"

// Metrics holds the OpenTelemetry instruments of the coordinator
type Metrics struct {
	operations metric.Int64Counter
	attempts   metric.Int64Histogram
	duration   metric.Float64Histogram
	evictions  metric.Int64Counter
}

// NewMetrics creates the instruments with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(MetricsMeterName)

	operations, err := meter.Int64Counter(
		"counter_operations_total",
		metric.WithDescription("Counter operations by operation and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	attempts, err := meter.Int64Histogram(
		"counter_cas_attempts",
		metric.WithDescription("Compare-and-swap attempts per operation"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 6, 8, 12, 16, 32),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"counter_operation_duration_seconds",
		metric.WithDescription("Duration of counter operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3),
	)
	if err != nil {
		return nil, err
	}
	evictions, err := meter.Int64Counter(
		"counter_unguarded_applies_total",
		metric.WithDescription("Operations applied on the stored value after the cache entry was evicted"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		operations: operations,
		attempts:   attempts,
		duration:   duration,
		evictions:  evictions,
	}, nil
}

// RecordOperation records one finished operation
func (m *Metrics) RecordOperation(ctx context.Context, op Operation, outcome string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("outcome", outcome),
	)
	m.operations.Add(ctx, 1, attrs)
	if attempts > 0 {
		m.attempts.Record(ctx, int64(attempts), metric.WithAttributes(attribute.String("operation", string(op))))
	}
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordUnguardedApply records an operation applied without version guard
func (m *Metrics) RecordUnguardedApply(ctx context.Context, op Operation) {
	if m == nil {
		return
	}
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", string(op))))
}
