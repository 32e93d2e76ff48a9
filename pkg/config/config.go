package config

import "time"

// Config holds runtime configuration for the funnel bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Log         LogConfig         `mapstructure:"log"`
	Bot         BotConfig         `mapstructure:"bot"`
	Server      ServerConfig      `mapstructure:"server"`
	WebApp      WebAppConfig      `mapstructure:"webapp"`
	Funnel      FunnelConfig      `mapstructure:"funnel"`
	Notifier    NotifierConfig    `mapstructure:"notifier"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Fulfilment  FulfilmentConfig  `mapstructure:"fulfilment"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type BotConfig struct {
	Token      string        `mapstructure:"token" validate:"required"`
	Mode       string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	WebhookURL string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	Listen     string        `mapstructure:"listen"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// WebAppConfig points at the public address of the HTTP surface. Telegram only
// opens Web App buttons over HTTPS; any other scheme falls back to plain links.
type WebAppConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type FunnelConfig struct {
	Presentation PresentationConfig `mapstructure:"presentation"`
	Offers       []OfferConfig      `mapstructure:"offers" validate:"min=1,dive"`
	Remarketing  RemarketingConfig  `mapstructure:"remarketing"`
	Completion   CompletionConfig   `mapstructure:"completion"`
}

type PresentationConfig struct {
	Photo string `mapstructure:"photo"`
	Text  string `mapstructure:"text" validate:"required"`
}

type OfferConfig struct {
	Code  string `mapstructure:"code" validate:"required"`
	Label string `mapstructure:"label" validate:"required"`
	URL   string `mapstructure:"url" validate:"required,url"`
}

type RemarketingConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Delay      time.Duration `mapstructure:"delay" validate:"required_if=Enabled true"`
	Photo      string        `mapstructure:"photo"`
	Text       string        `mapstructure:"text" validate:"required_if=Enabled true"`
	ButtonText string        `mapstructure:"button_text" validate:"required_if=Enabled true"`
	URL        string        `mapstructure:"url" validate:"required_if=Enabled true"`
}

type CompletionConfig struct {
	Text       string `mapstructure:"text" validate:"required"`
	ButtonText string `mapstructure:"button_text" validate:"required"`
	ButtonURL  string `mapstructure:"button_url" validate:"required,url"`
	// AckText answers completion signals with an unrecognized status. Empty means silence.
	AckText string `mapstructure:"ack_text"`
}

type NotifierConfig struct {
	QueueSize   int           `mapstructure:"queue_size" validate:"gt=0"`
	Workers     int           `mapstructure:"workers" validate:"gt=0"`
	MaxDuration time.Duration `mapstructure:"max_duration" validate:"gt=0"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	PoolSize int    `mapstructure:"pool_size" validate:"gte=0"`
}

type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"gte=0"`
	Window string `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// FulfilmentConfig controls publishing of completed orders to RabbitMQ.
type FulfilmentConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url" validate:"required_if=Enabled true"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}
