package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/madrasa/backend/internal/application/fee"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPDurationBuckets are the request latency bucket bounds in seconds
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// FeeMetrics counts the outcome of due generation and reminder runs
type FeeMetrics struct {
	created   metric.Int64Counter
	skipped   metric.Int64Counter
	failed    metric.Int64Counter
	reminders metric.Int64Counter
}

// NewFeeMetrics registers the fee instruments on meter
func NewFeeMetrics(meter metric.Meter) (*FeeMetrics, error) {
	created, err := meter.Int64Counter("madrasa.fee.dues.created",
		metric.WithDescription("Dues created by batch jobs"),
		metric.WithUnit("{due}"))
	if err != nil {
		return nil, err
	}
	skipped, err := meter.Int64Counter("madrasa.fee.dues.skipped",
		metric.WithDescription("Student and fee type pairs skipped by batch jobs"),
		metric.WithUnit("{due}"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("madrasa.fee.dues.errors",
		metric.WithDescription("Students whose dues failed to generate"),
		metric.WithUnit("{student}"))
	if err != nil {
		return nil, err
	}
	reminders, err := meter.Int64Counter("madrasa.fee.reminders.queued",
		metric.WithDescription("Overdue reminder emails queued"),
		metric.WithUnit("{email}"))
	if err != nil {
		return nil, err
	}
	return &FeeMetrics{created: created, skipped: skipped, failed: failed, reminders: reminders}, nil
}

// RecordDueBatch implements fee.BatchRecorder
func (m *FeeMetrics) RecordDueBatch(ctx context.Context, job string, result fee.BatchResult) {
	attrs := metric.WithAttributes(attribute.String("job", job))
	m.created.Add(ctx, int64(result.Created), attrs)
	m.failed.Add(ctx, int64(result.Errors), attrs)
}

// RecordDueSkipped implements fee.BatchRecorder
func (m *FeeMetrics) RecordDueSkipped(ctx context.Context, job string, reason fee.SkipReason) {
	m.skipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("reason", string(reason)),
	))
}

// RecordRemindersQueued implements fee.BatchRecorder
func (m *FeeMetrics) RecordRemindersQueued(ctx context.Context, count int) {
	m.reminders.Add(ctx, int64(count))
}

var _ fee.BatchRecorder = (*FeeMetrics)(nil)

// HTTPMetrics records request counts and latency per route
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the HTTP server instruments on meter
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := meter.Int64Counter("http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency distribution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(HTTPDurationBuckets...))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Requests currently being served"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requests: requests, duration: duration, active: active}, nil
}

// Begin marks a request in flight. Call the returned func when it ends.
func (m *HTTPMetrics) Begin(ctx context.Context, method string) func(route string, status int) {
	start := time.Now()
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String("http.method", method)))
	return func(route string, status int) {
		m.active.Add(ctx, -1, metric.WithAttributes(attribute.String("http.method", method)))
		attrs := metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.String("http.status_code", strconv.Itoa(status)),
		)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
