package services

import (
	"context"
	"log/slog"

	"solarclean/internal/infrastructure"
)

// logDashboardError logs a failed dashboard operation with the request trace ID.
func logDashboardError(ctx context.Context, action string, err error, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	allAttrs := []slog.Attr{
		slog.String("component", "dashboard_service"),
		slog.String("action", action),
		slog.String("error", err.Error()),
	}
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, "dashboard operation failed", allAttrs...)
}
