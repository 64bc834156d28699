package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
	"github.com/fyrsmithlabs/weekpulse/internal/weekly"
)

const instrumentationName = "github.com/fyrsmithlabs/weekpulse/internal/mcp"

// Metrics records tool calls and which insight engine answered them.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	calls    metric.Int64Counter
	duration metric.Float64Histogram
	failures metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	engines  metric.Int64Counter
}

// NewMetrics creates metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(instrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{meter: meter, logger: logger}

	var err error
	m.calls, err = meter.Int64Counter(
		"weekpulse.mcp.tool.calls_total",
		metric.WithDescription("MCP tool calls by tool and category"),
		metric.WithUnit("{call}"),
	)
	m.warn("calls", err)

	m.duration, err = meter.Float64Histogram(
		"weekpulse.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool call latency"),
		metric.WithUnit("s"),
		// Local tools finish in milliseconds; remote insight calls take seconds.
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 15, 30),
	)
	m.warn("duration", err)

	m.failures, err = meter.Int64Counter(
		"weekpulse.mcp.tool.failures_total",
		metric.WithDescription("Failed MCP tool calls by reason"),
		metric.WithUnit("{call}"),
	)
	m.warn("failures", err)

	m.inFlight, err = meter.Int64UpDownCounter(
		"weekpulse.mcp.tool.in_flight",
		metric.WithDescription("MCP tool calls in progress"),
		metric.WithUnit("{call}"),
	)
	m.warn("in_flight", err)

	m.engines, err = meter.Int64Counter(
		"weekpulse.mcp.insight.engine_total",
		metric.WithDescription("Insights served over MCP by engine and fallback"),
		metric.WithUnit("{insight}"),
	)
	m.warn("engine", err)

	return m
}

func (m *Metrics) warn(name string, err error) {
	if err != nil {
		m.logger.Warn("failed to create mcp instrument", zap.String("instrument", name), zap.Error(err))
	}
}

// Track marks a tool call as started and returns the function that ends it.
func (m *Metrics) Track(ctx context.Context, tool string, category ToolCategory) func(err error) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("category", string(category)),
	)
	start := time.Now()
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, attrs)
	}

	return func(err error) {
		if m.inFlight != nil {
			m.inFlight.Add(ctx, -1, attrs)
		}
		if m.calls != nil {
			m.calls.Add(ctx, 1, attrs)
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		if err != nil && m.failures != nil {
			m.failures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", tool),
				attribute.String("reason", categorizeError(err)),
			))
		}
	}
}

// RecordEngine counts an insight result by the engine that produced it.
func (m *Metrics) RecordEngine(ctx context.Context, res insight.Result) {
	if m.engines == nil {
		return
	}
	m.engines.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", string(res.Engine)),
		attribute.Bool("fallback", res.Fallback),
	))
}

// categorizeError maps an error onto a low-cardinality reason label.
func categorizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, reflection.ErrInvalid),
		errors.Is(err, weekly.ErrInvalidWeek):
		return "validation_error"
	case errors.Is(err, weekly.ErrWeekNotFound):
		return "not_found"
	case errors.Is(err, insight.ErrCredentialMissing):
		return "credential_missing"
	case errors.Is(err, insight.ErrTransport),
		errors.Is(err, insight.ErrNonSuccessStatus),
		errors.Is(err, insight.ErrMalformedResponse):
		return "remote_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal_error"
	}
}
