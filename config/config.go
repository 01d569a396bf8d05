package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port                   string `mapstructure:"port"`
	AllowedOrigins         string `mapstructure:"allowedOrigins"`
	BodyLimitMB            int    `mapstructure:"bodyLimitMB"`
	RateLimitMax           int    `mapstructure:"rateLimitMax"`
	RateLimitWindowSeconds int    `mapstructure:"rateLimitWindowSeconds"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslMode"`
	TimeZone string `mapstructure:"timeZone"`
}

// DSN builds a postgres connection string for gorm.io/driver/postgres.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone)
}

type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	TTLHours int    `mapstructure:"ttlHours"`
}

func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel maps the configured level name; unknown names fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type WebhookConfig struct {
	Workers        int `mapstructure:"workers"`
	QueueSize      int `mapstructure:"queueSize"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type BiddingConfig struct {
	ReconcileInterval time.Duration `mapstructure:"reconcileInterval"`
	CurrencyCacheSize int           `mapstructure:"currencyCacheSize"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Log     LogConfig     `mapstructure:"log"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Bidding BiddingConfig `mapstructure:"bidding"`
}

var envBindings = map[string]string{
	"server.port":                   "PORT",
	"server.allowedOrigins":         "ALLOWED_ORIGINS",
	"server.bodyLimitMB":            "BODY_LIMIT_MB",
	"server.rateLimitMax":           "RATE_LIMIT_MAX",
	"server.rateLimitWindowSeconds": "RATE_LIMIT_WINDOW_SECONDS",
	"db.host":                       "DB_HOST",
	"db.port":                       "DB_PORT",
	"db.user":                       "DB_USER",
	"db.password":                   "DB_PASSWORD",
	"db.name":                       "DB_NAME",
	"db.sslMode":                    "DB_SSLMODE",
	"db.timeZone":                   "DB_TIMEZONE",
	"jwt.secret":                    "JWT_SECRET_KEY",
	"jwt.ttlHours":                  "JWT_TTL_HOURS",
	"log.level":                     "LOG_LEVEL",
	"log.format":                    "LOG_FORMAT",
	"webhook.workers":               "WEBHOOK_WORKERS",
	"webhook.queueSize":             "WEBHOOK_QUEUE_SIZE",
	"webhook.timeoutSeconds":        "WEBHOOK_TIMEOUT_SECONDS",
	"bidding.reconcileInterval":     "BIDDING_RECONCILE_INTERVAL",
	"bidding.currencyCacheSize":     "CURRENCY_CACHE_SIZE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("server.bodyLimitMB", 4)
	v.SetDefault("server.rateLimitMax", 60)
	v.SetDefault("server.rateLimitWindowSeconds", 60)
	v.SetDefault("db.host", "db")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslMode", "disable")
	v.SetDefault("db.timeZone", "UTC")
	v.SetDefault("jwt.ttlHours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("webhook.workers", 4)
	v.SetDefault("webhook.queueSize", 256)
	v.SetDefault("webhook.timeoutSeconds", 10)
	v.SetDefault("bidding.reconcileInterval", 5*time.Minute)
	v.SetDefault("bidding.currencyCacheSize", 64)
}

// Load reads an optional .env file and then resolves every setting from the
// environment, falling back to defaults.
func Load() (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return cfg, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("JWT secret not configured (set JWT_SECRET_KEY)")
	}
	if c.Webhook.Workers < 1 {
		return errors.New("WEBHOOK_WORKERS must be at least 1")
	}
	if c.Bidding.CurrencyCacheSize < 1 {
		return errors.New("CURRENCY_CACHE_SIZE must be at least 1")
	}
	return nil
}
