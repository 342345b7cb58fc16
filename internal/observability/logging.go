// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// WSLogger logs realtime hub lifecycle and client events.
type WSLogger struct {
	hubName string
	logger  *slog.Logger
}

// NewWSLogger creates a WSLogger for hubName. A nil logger uses slog.Default.
func NewWSLogger(hubName string, logger *slog.Logger) *WSLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSLogger{hubName: hubName, logger: logger}
}

// LogConnect logs a client registration.
func (l *WSLogger) LogConnect(ctx context.Context, userID uint, connections int) {
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.Int("user_connections", connections),
	)
}

// LogDisconnect logs a client removal.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("reason", reason),
	)
}

// LogRejected logs a registration refused by connection caps.
func (l *WSLogger) LogRejected(ctx context.Context, userID uint, reason string) {
	l.logger.WarnContext(ctx, "websocket rejected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("reason", reason),
	)
}

// LogError logs a failure while handling a client event.
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, eventType string) {
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogJob logs one scheduled job execution.
func LogJob(ctx context.Context, logger *slog.Logger, job string, started time.Time, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		slog.String("job", job),
		slog.Duration("duration", time.Since(started)),
	}
	if err != nil {
		logger.ErrorContext(ctx, "job failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	logger.InfoContext(ctx, "job completed", attrs...)
}
