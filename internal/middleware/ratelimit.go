package middleware

import (
	"context"
	"log/slog"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/bot/handlers"
	"github.com/Proton-105/funnel-bot/internal/ratelimit"
)

const checkTimeout = time.Second

// RateLimitMiddleware throttles chatty users before their updates reach the
// router. Throttled updates are dropped without a reply.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &RateLimitMiddleware{limiter: limiter, rules: rules, log: log}
}

// Handle is the telebot middleware. Checkout results from the Web App are
// exempt, as are whitelisted users. A limiter failure lets the update through.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		userID, limited := m.subject(c)
		if !limited {
			return next(c)
		}

		rule, err := m.rules.PerUser()
		if err != nil {
			m.log.Error("per-user rate limit rule is invalid", slog.Any("error", err))
			return next(c)
		}

		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		decision, err := m.limiter.Allow(ctx, userID, rule)
		switch {
		case err != nil:
			m.log.Warn("rate limiter unavailable", slog.Int64("user_id", userID), slog.Any("error", err))
		case !decision.Allowed:
			m.log.Warn("update dropped by rate limit",
				slog.Int64("user_id", userID),
				slog.String("route", handlers.Route(c)),
				slog.Duration("retry_after", decision.RetryAfter),
			)
			return nil
		}
		return next(c)
	}
}

// subject returns the user an update is counted against and whether the
// update is subject to limiting at all.
func (m *RateLimitMiddleware) subject(c telebot.Context) (int64, bool) {
	if m.limiter == nil || !m.rules.Enabled() {
		return 0, false
	}
	if handlers.Route(c) == handlers.RouteWebApp {
		return 0, false
	}

	sender := c.Sender()
	if sender == nil || m.rules.IsWhitelisted(sender.ID) {
		return 0, false
	}
	return sender.ID, true
}
