// Package bot wires Telegram updates to the funnel.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/funnel-bot/internal/bot/handlers"
	errors "github.com/Proton-105/funnel-bot/internal/errors"
	"github.com/Proton-105/funnel-bot/internal/idempotency"
	"github.com/Proton-105/funnel-bot/internal/middleware"
	"github.com/Proton-105/funnel-bot/pkg/config"
)

// Funnel is what the bot needs from the funnel service.
type Funnel interface {
	handlers.FunnelStarter
	handlers.CheckoutCompleter
}

// Bot owns the telebot instance and the update pipeline in front of the funnel.
type Bot struct {
	tb     *telebot.Bot
	router *Router
	log    *slog.Logger
}

// Options carries the optional collaborators of New. Nil fields disable the
// matching stage of the pipeline.
type Options struct {
	ErrorHandler   *errors.Handler
	Idempotency    idempotency.Manager
	IdempotencyTTL time.Duration
	RateLimit      *middleware.RateLimitMiddleware
}

// NewTelebot creates the telebot instance in polling or webhook mode.
func NewTelebot(cfg config.BotConfig) (*telebot.Bot, error) {
	var poller telebot.Poller = &telebot.LongPoller{Timeout: cfg.Timeout}
	if cfg.Mode == "webhook" {
		poller = &telebot.Webhook{
			Listen:   cfg.Listen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	}

	tb, err := telebot.NewBot(telebot.Settings{Token: cfg.Token, Poller: poller})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}
	return tb, nil
}

// New builds the update pipeline for fn and registers it on tb.
//
// The rate limit runs as telebot middleware ahead of routing. Routed updates
// then pass recovery, error reporting, duplicate suppression, logging and
// metrics before reaching the /start or web_app_data handler. Errors reach
// duplicate suppression before they are reported, so a failed update is not
// remembered and its redelivery runs again.
func New(tb *telebot.Bot, fn Funnel, log *slog.Logger, opts Options) *Bot {
	if log == nil {
		log = slog.Default()
	}

	r := NewRouter(log)
	r.Use(
		RecoveryMiddleware(log, opts.ErrorHandler),
		ErrorHandlingMiddleware(opts.ErrorHandler),
		middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL, log),
		LoggingMiddleware(log),
		middleware.Metrics,
	)
	r.RegisterCommand(CommandStart, handlers.NewStartHandler(fn, log))
	r.RegisterWebApp(handlers.NewWebAppHandler(fn, log))

	if opts.RateLimit != nil {
		tb.Use(opts.RateLimit.Handle)
	}
	for _, endpoint := range []string{CommandStart, telebot.OnText, telebot.OnWebApp} {
		tb.Handle(endpoint, r.Route)
	}

	return &Bot{tb: tb, router: r, log: log}
}

// Start runs the update loop and blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info("telegram bot started", slog.String("username", b.tb.Me.Username))
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot")
	b.tb.Stop()
}

// Telebot exposes the underlying instance for health checks and tests.
func (b *Bot) Telebot() *telebot.Bot {
	return b.tb
}
