package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	if wk, ok := WeekFromContext(ctx); ok {
		fields = append(fields,
			zap.Int("week", wk.Week),
			zap.Int("year", wk.Year),
		)
	}

	return fields
}

type requestCtxKey struct{}
type weekCtxKey struct{}
type loggerCtxKey struct{}

// WeekKey identifies the week a log line is about.
type WeekKey struct {
	Week int
	Year int
}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateID validates a request ID.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("request ID cannot be empty")
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("request ID exceeds max length %d", maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("request ID contains invalid characters (must be alphanumeric, hyphen, underscore)")
	}
	return nil
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds a request ID to context. Invalid IDs are dropped since
// they usually come from a client-supplied header.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if validateID(requestID) != nil {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// WeekFromContext extracts the week key from context.
func WeekFromContext(ctx context.Context) (WeekKey, bool) {
	wk, ok := ctx.Value(weekCtxKey{}).(WeekKey)
	return wk, ok
}

// WithWeek adds a (week, year) key to context.
func WithWeek(ctx context.Context, week, year int) context.Context {
	return context.WithValue(ctx, weekCtxKey{}, WeekKey{Week: week, Year: year})
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
