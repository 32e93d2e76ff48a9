package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/bot/handlers"
	errors "github.com/Proton-105/funnel-bot/internal/errors"
	"github.com/Proton-105/funnel-bot/pkg/logger"
)

// updateAttrs are the fields every update log line carries. Payloads are
// never logged.
func updateAttrs(c telebot.Context) []any {
	var userID int64
	if sender := c.Sender(); sender != nil {
		userID = sender.ID
	}
	return []any{
		slog.Int("update_id", c.Update().ID),
		slog.Int64("user_id", userID),
		slog.String("route", handlers.Route(c)),
	}
}

// updateContext tags the error reporting context with the update id.
func updateContext(c telebot.Context) context.Context {
	return logger.WithCorrelationID(context.Background(), "update-"+strconv.Itoa(c.Update().ID))
}

// RecoveryMiddleware turns a handler panic into a reported PanicError. The user
// gets no reply.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				log.Error("handler panicked",
					append(updateAttrs(c), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))...)
				errHandler.Handle(updateContext(c), errors.NewPanicError(r))
				err = nil
			}()
			return next(c)
		}
	}
}

// ErrorHandlingMiddleware hands handler failures to errHandler and swallows
// them so that telebot does not log them a second time.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			if err := next(c); err != nil {
				errHandler.Handle(updateContext(c), err)
			}
			return nil
		}
	}
}

// LoggingMiddleware logs each handled update with its latency.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()
			err := next(c)

			attrs := append(updateAttrs(c), slog.Duration("duration", time.Since(start)))
			if err != nil {
				log.Warn("update handled with error", append(attrs, slog.Any("error", err))...)
				return err
			}
			log.Info("update handled", attrs...)
			return nil
		}
	}
}
