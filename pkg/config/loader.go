// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads ./configs/<APP_ENV>.yaml and environment variables, validates the
// result and returns it together with the viper instance used for watching.
func Load() (*Config, *viper.Viper, error) {
	for _, file := range []string{".env.local", ".env"} {
		// env files are optional
		_ = godotenv.Load(file)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	return LoadFile(fmt.Sprintf("./configs/%s.yaml", env), env)
}

// LoadFile is Load with an explicit config path. A missing file is not an
// error: defaults and environment variables still apply.
func LoadFile(path, env string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch reloads the configuration whenever the config file changes and hands
// every valid result to onChange. Invalid edits are logged and ignored.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Error("config reload rejected", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.listen", ":8443")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("webapp.base_url", "http://localhost:8080")

	v.SetDefault("funnel.presentation.photo", "")
	v.SetDefault("funnel.presentation.text", "I have 3 options just for you. Choose the package you want below.")
	v.SetDefault("funnel.offers", []map[string]any{
		{"code": "pkg1", "label": "Package 1 • $2.99", "url": "https://checkout.example.com/pkg1"},
		{"code": "pkg2", "label": "Package 2 • $4.99", "url": "https://checkout.example.com/pkg2"},
		{"code": "pkg3", "label": "Package 3 • $6.99", "url": "https://checkout.example.com/pkg3"},
	})
	v.SetDefault("funnel.remarketing.enabled", true)
	v.SetDefault("funnel.remarketing.delay", 30*time.Second)
	v.SetDefault("funnel.remarketing.photo", "")
	v.SetDefault("funnel.remarketing.text", "I've reserved a special gift for you: the complete package for the price of the first one.")
	v.SetDefault("funnel.remarketing.button_text", "THE BEST PACK FOR $2.99")
	v.SetDefault("funnel.remarketing.url", "https://checkout.example.com/special")
	v.SetDefault("funnel.completion.text", "Payment received! Send me a private message and I'll deliver your package.")
	v.SetDefault("funnel.completion.button_text", "SEND MESSAGE NOW")
	v.SetDefault("funnel.completion.button_url", "https://t.me/example")
	v.SetDefault("funnel.completion.ack_text", "")

	v.SetDefault("notifier.queue_size", 256)
	v.SetDefault("notifier.workers", 4)
	v.SetDefault("notifier.max_duration", 15*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.per_user.limit", 20)
	v.SetDefault("ratelimit.per_user.window", "1m")
	v.SetDefault("ratelimit.whitelist", []int64{})

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")

	v.SetDefault("fulfilment.enabled", false)
	v.SetDefault("fulfilment.url", "")
	v.SetDefault("fulfilment.exchange", "ex.funnel")
	v.SetDefault("fulfilment.routing_key", "order.completed")
}
