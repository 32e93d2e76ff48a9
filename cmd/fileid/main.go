package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Proton-105/funnel-bot/internal/bot"
	"github.com/Proton-105/funnel-bot/internal/fileid"
	"github.com/Proton-105/funnel-bot/pkg/config"
	"github.com/Proton-105/funnel-bot/pkg/logger"
)

// tokenEnv selects a separate helper bot; the funnel bot token is used otherwise.
const tokenEnv = "FILEID_BOT_TOKEN"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fileid bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	log, closer := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer closer.Close()

	botCfg := cfg.Bot
	botCfg.Mode = "polling"
	if token := os.Getenv(tokenEnv); token != "" {
		botCfg.Token = token
	}

	tb, err := bot.NewTelebot(botCfg)
	if err != nil {
		return err
	}
	fileid.Register(tb, log)

	go tb.Start()
	log.Info("file id bot started", slog.String("username", tb.Me.Username))

	<-ctx.Done()
	tb.Stop()
	log.Info("file id bot stopped")

	return nil
}
