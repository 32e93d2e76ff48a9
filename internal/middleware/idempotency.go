package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/bot/handlers"
	"github.com/Proton-105/funnel-bot/internal/idempotency"
)

const defaultIdempotencyTTL = 24 * time.Hour

// Idempotency runs a handler at most once per Telegram message, so that a
// redelivered /start or web_app_data update does not repeat its side effects.
// A failed handler releases the key and the next delivery runs again. When
// the store is unreachable the update is handled anyway.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler { return next }
	}
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			key, ok := messageKey(c)
			if !ok {
				return next(c)
			}

			ran := false
			var handlerErr error
			res, err := manager.Execute(context.Background(), key, ttl, func(context.Context) (interface{}, error) {
				ran = true
				handlerErr = next(c)
				return nil, handlerErr
			})
			if ran {
				return handlerErr
			}

			attrs := []any{slog.String("key", key), slog.String("route", handlers.Route(c))}
			switch {
			case errors.Is(err, idempotency.ErrRequestInProgress):
				log.Debug("update is being handled elsewhere", attrs...)
			case err != nil:
				log.Warn("idempotency store unavailable, handling update anyway", append(attrs, slog.Any("error", err))...)
				return next(c)
			case res != nil && res.FromCache:
				log.Info("redelivered update skipped", attrs...)
			}
			return nil
		}
	}
}

// messageKey identifies the message behind an update. Message ids are unique
// per chat only, hence both parts.
func messageKey(c telebot.Context) (string, bool) {
	msg := c.Message()
	if msg == nil || msg.ID == 0 {
		return "", false
	}

	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	return idempotency.Fingerprint("message", chatID, msg.ID), true
}
