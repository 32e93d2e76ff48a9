package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/funnel-bot/pkg/logger"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// Handler is the sink for errors no caller can act on: handler failures and
// recovered panics. It never talks to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, sentryEnabled: sentryEnabled}
}

// Handle logs err, counts it and forwards severe errors to Sentry.
// It reports whether the failed operation may be retried.
func (h *Handler) Handle(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	code, severity, retryable := classify(err)

	log := slog.Default()
	if h != nil && h.log != nil {
		log = h.log
	}

	attrs := []slog.Attr{
		slog.String("code", code),
		slog.String("severity", string(severity)),
		slog.Bool("retryable", retryable),
		slog.String("error", err.Error()),
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}

	log.LogAttrs(ctx, slog.LevelError, "update failed", attrs...)
	metrics.RecordError(code, string(severity))

	if h != nil && h.sentryEnabled && severity.rank() >= SeverityHigh.rank() {
		capture(ctx, err, code, severity)
	}

	return retryable
}

// classify maps err to its metric code. Plain errors count as high severity
// so that unexpected failures reach Sentry.
func classify(err error) (string, Severity, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code, appErr.Severity, appErr.Retryable
	}
	return "unknown", SeverityHigh, false
}

func capture(ctx context.Context, err error, code string, severity Severity) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", code)
		scope.SetTag("severity", string(severity))
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		hub.CaptureException(err)
	})
}
