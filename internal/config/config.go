package config

import (
	"fmt"
	"strings"

	"github.com/sela-fruits/sela-store/internal/logger"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	UserJWT     JWTConfig         `mapstructure:"user_jwt"`
	StaffJWT    JWTConfig         `mapstructure:"staff_jwt"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Security    SecurityConfig    `mapstructure:"security"`
	Order       OrderConfig       `mapstructure:"order"`
	Referral    ReferralConfig    `mapstructure:"referral"`
	Flutterwave FlutterwaveConfig `mapstructure:"flutterwave"`
}

// ServerConfig HTTP listener settings.
type ServerConfig struct {
	Host                     string `mapstructure:"host"`
	Port                     string `mapstructure:"port"`
	Mode                     string `mapstructure:"mode"` // debug / release
	ReadHeaderTimeoutSeconds int    `mapstructure:"read_header_timeout_seconds"`
}

// LogConfig log file rotation settings.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts to logger options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig connection pool settings.
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig database settings.
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig token verification settings.
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
}

// RedisConfig cache and rate limit backend.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig asynq backend.
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// KafkaConfig order event stream.
type KafkaConfig struct {
	Enabled  bool        `mapstructure:"enabled"`
	Brokers  []string    `mapstructure:"brokers"`
	ClientID string      `mapstructure:"client_id"`
	Topics   KafkaTopics `mapstructure:"topics"`
}

// KafkaTopics topic names.
type KafkaTopics struct {
	Orders string `mapstructure:"orders"`
}

// CORSConfig cross-origin settings.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig request throttling.
type SecurityConfig struct {
	CheckoutRateLimit RateLimitConfig `mapstructure:"checkout_rate_limit"`
	WebhookRateLimit  RateLimitConfig `mapstructure:"webhook_rate_limit"`
}

// RateLimitConfig fixed window limit.
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// OrderConfig checkout settings.
type OrderConfig struct {
	Currency                  string   `mapstructure:"currency"`
	BaseDeliveryFee           string   `mapstructure:"base_delivery_fee"`
	NearShopAreas             []string `mapstructure:"near_shop_areas"`
	WhatsAppNumber            string   `mapstructure:"whatsapp_number"`
	PaymentExpireMinutes      int      `mapstructure:"payment_expire_minutes"`
	ReferralCompleteAttempts  int      `mapstructure:"referral_complete_attempts"`
	ReferralCompleteBackoffMS int      `mapstructure:"referral_complete_backoff_ms"`
}

// ReferralConfig reward rules.
type ReferralConfig struct {
	Threshold       int    `mapstructure:"threshold"`
	DiscountPercent string `mapstructure:"discount_percent"`
}

// FlutterwaveConfig payment provider settings.
type FlutterwaveConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	SignatureHeader string `mapstructure:"signature_header"`
	APIBaseURL      string `mapstructure:"api_base_url"`
	RedirectURL     string `mapstructure:"redirect_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// Load reads config.yml, environment variables and defaults.
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../") // when started from cmd/server
	viper.AddConfigPath("./etc")

	setDefaults(viper.GetViper())

	// SERVER_PORT overrides server.port
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config unmarshal failed: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_header_timeout_seconds", 10)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "sela-store.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/sela.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("staff_jwt.secret", "staff-change-me-in-production")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sela")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"critical": 6,
		"default":  3,
	})
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.client_id", "sela-store")
	v.SetDefault("kafka.topics.orders", "sela.orders")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PATCH", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Authorization",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.checkout_rate_limit.window_seconds", 60)
	v.SetDefault("security.checkout_rate_limit.max_requests", 10)
	v.SetDefault("security.webhook_rate_limit.window_seconds", 60)
	v.SetDefault("security.webhook_rate_limit.max_requests", 120)
	v.SetDefault("order.currency", "NGN")
	v.SetDefault("order.base_delivery_fee", "2000")
	v.SetDefault("order.near_shop_areas", []string{
		"wuse",
		"garki",
		"maitama",
		"asokoro",
		"jabi",
		"utako",
	})
	v.SetDefault("order.whatsapp_number", "")
	v.SetDefault("order.payment_expire_minutes", 60)
	v.SetDefault("order.referral_complete_attempts", 3)
	v.SetDefault("order.referral_complete_backoff_ms", 200)
	v.SetDefault("referral.threshold", 3)
	v.SetDefault("referral.discount_percent", "15")
	v.SetDefault("flutterwave.secret_key", "")
	v.SetDefault("flutterwave.webhook_secret", "")
	v.SetDefault("flutterwave.signature_header", "flutterwave-signature")
	v.SetDefault("flutterwave.api_base_url", "https://api.flutterwave.com")
	v.SetDefault("flutterwave.redirect_url", "")
	v.SetDefault("flutterwave.timeout_seconds", 12)
}
