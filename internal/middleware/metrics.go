package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/bot/handlers"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// Metrics records the latency and outcome of every routed update, labeled by
// route key.
func Metrics(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.RecordCommand(handlers.Route(c), outcome, time.Since(start))
		return err
	}
}
