package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/funnel-bot/internal/bot"
	"github.com/Proton-105/funnel-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/funnel-bot/internal/errors"
	"github.com/Proton-105/funnel-bot/internal/fulfilment"
	"github.com/Proton-105/funnel-bot/internal/funnel"
	"github.com/Proton-105/funnel-bot/internal/health"
	"github.com/Proton-105/funnel-bot/internal/idempotency"
	"github.com/Proton-105/funnel-bot/internal/lifecycle"
	"github.com/Proton-105/funnel-bot/internal/middleware"
	"github.com/Proton-105/funnel-bot/internal/notifier"
	"github.com/Proton-105/funnel-bot/internal/ratelimit"
	"github.com/Proton-105/funnel-bot/internal/state"
	"github.com/Proton-105/funnel-bot/internal/web"
	"github.com/Proton-105/funnel-bot/pkg/config"
	"github.com/Proton-105/funnel-bot/pkg/graceful"
	"github.com/Proton-105/funnel-bot/pkg/logger"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
	"github.com/Proton-105/funnel-bot/pkg/redis"
)

const (
	cleanupInterval   = 10 * time.Minute
	collectorInterval = 15 * time.Second
	sentryFlush       = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "funnel bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.AppEnv}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
	}

	log, logCloser := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Sentry:     cfg.Sentry.Enabled,
	})
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("starting funnel bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("http_port", cfg.Server.Port),
	)

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	tb, err := bot.NewTelebot(cfg.Bot)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.Telegram(tb))

	dispatcher := notifier.NewDispatcher(notifier.Options{
		QueueSize:   cfg.Notifier.QueueSize,
		Workers:     cfg.Notifier.Workers,
		MaxDuration: cfg.Notifier.MaxDuration,
	}, log)
	checker.AddCheck("dispatcher", health.Dispatcher(dispatcher))

	keyboards := keyboard.NewBuilder(cfg.WebApp.BaseURL, log)
	telegram := notifier.NewTelegram(dispatcher, tb, keyboards, log)

	opts := []funnel.Option{funnel.WithLogger(log)}
	if cfg.Fulfilment.Enabled {
		conn, err := fulfilment.Dial(cfg.Fulfilment.URL, cfg.Fulfilment.Exchange)
		if err != nil {
			return err
		}
		checker.AddCheck("amqp", conn)
		shutdown.Register(lifecycle.PhaseRelease, "amqp", conn.Shutdown)

		publisher := fulfilment.NewPublisher(conn.Channel(), cfg.Fulfilment.Exchange, cfg.Fulfilment.RoutingKey, log)
		opts = append(opts, funnel.WithOrderListener(publisher))
	}

	store := state.NewStore()
	svc := funnel.NewService(store, telegram, funnel.ContentFromConfig(cfg.Funnel), opts...)

	config.Watch(v, log, func(next *config.Config) {
		svc.UpdateContent(funnel.ContentFromConfig(next.Funnel))
		log.Info("funnel content reloaded", slog.Int("offers", len(next.Funnel.Offers)))
	})

	background, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	var workers sync.WaitGroup
	goBackground := func(run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run(background)
		}()
	}

	var (
		rdb      *redis.Client
		idemp    idempotency.Store
		memLimit = ratelimit.NewMemoryLimiter()
		limiter  ratelimit.Limiter = memLimit
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		checker.AddCheck("redis", rdb)
		shutdown.Register(lifecycle.PhaseRelease, "redis", rdb.Shutdown)

		redisStore := idempotency.NewRedisStore(rdb.Client, cfg.Idempotency.TTL, log)
		idemp = redisStore
		goBackground(idempotency.NewCleaner(redisStore, log, cleanupInterval).Run)
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Client), memLimit, log)
	} else {
		memStore := idempotency.NewMemoryStore()
		idemp = memStore
		goBackground(idempotency.NewCleaner(memStore, log, cleanupInterval).Run)
	}

	rules := ratelimit.NewRules(cfg.RateLimit)
	botOpts := bot.Options{ErrorHandler: errHandler}
	if cfg.Idempotency.Enabled {
		botOpts.Idempotency = idempotency.NewManager(idemp, log)
		botOpts.IdempotencyTTL = cfg.Idempotency.TTL
	}
	if rules.Enabled() {
		botOpts.RateLimit = middleware.NewRateLimitMiddleware(limiter, rules, log)

		rule, err := rules.PerUser()
		if err != nil {
			return fmt.Errorf("ratelimit rules: %w", err)
		}
		goBackground(ratelimit.NewCleaner(rawRedis(rdb), memLimit, rule.Window, log, cleanupInterval).Run)
	}

	funnelBot := bot.New(tb, svc, log, botOpts)

	goBackground(metrics.NewStateCollector(store, collectorInterval).Run)

	probes := lifecycle.NewProbes(checker, shutdown)
	server := graceful.NewServer(log, ":"+cfg.Server.Port, web.NewRouter(log, web.Options{
		Probes:         probes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}), cfg.Server.ShutdownTimeout)

	httpCtx, stopHTTP := context.WithCancel(context.Background())
	httpDone := make(chan error, 1)
	go func() { httpDone <- server.ListenAndServe(httpCtx) }()

	go funnelBot.Start()

	shutdown.Register(lifecycle.PhaseIngress, "telegram", func(context.Context) error {
		funnelBot.Stop()
		return nil
	})
	shutdown.Register(lifecycle.PhaseIngress, "http", func(context.Context) error {
		stopHTTP()
		return <-httpDone
	})
	shutdown.Register(lifecycle.PhaseFunnel, "funnel", func(context.Context) error {
		svc.Stop()
		return nil
	})
	shutdown.Register(lifecycle.PhaseDrain, "dispatcher", dispatcher.Close)
	shutdown.Register(lifecycle.PhaseDrain, "background", func(context.Context) error {
		cancelBackground()
		workers.Wait()
		return nil
	})
	if cfg.Sentry.Enabled {
		shutdown.Register(lifecycle.PhaseRelease, "sentry", func(context.Context) error {
			sentry.Flush(sentryFlush)
			return nil
		})
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-httpDone:
		// http hook must not wait on a drained channel
		httpDone <- err
		log.Error("http server stopped unexpectedly", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func rawRedis(c *redis.Client) *goredis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}
