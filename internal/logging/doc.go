// Package logging provides structured logging for weekpulse.
//
// The Logger wraps Zap with:
//   - a custom Trace level (-2, below Debug)
//   - stdout or stderr output, optionally teed to OpenTelemetry
//   - context field injection (trace_id, request.id, week)
//   - secret redaction by field name and value pattern
//   - sampling below Error
//
// Log with context:
//
//	ctx = logging.WithRequestID(ctx, "req-42")
//	ctx = logging.WithWeek(ctx, 2, 2025)
//	logger.Info(ctx, "week saved", zap.Int("tasks", n))
//
// Lower layers that only need a *zap.Logger receive Underlying().
//
// The MCP stdio transport owns stdout, so the mcp command logs to stderr.
package logging
