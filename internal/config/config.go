package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables
// (optionally seeded from a .env file). Every field has a sensible default;
// only DATABASE_URL is required.
type Config struct {
	ServiceName string

	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrationsPath string

	// Redis backs the durable queue, push tokens, contact cache and in-app pub/sub.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Queue
	QueueBackend      string // "redis" or "memory"
	QueuePrefix       string
	QueuePollInterval time.Duration
	QueueLeaseTimeout time.Duration

	// Workers (one pool is shared across all channels)
	Workers int

	// Rate limiting: maximum sends per second per channel
	RateLimit int

	// Retry policy
	MaxAttempts    int
	BackoffBase    time.Duration
	AttemptTimeout time.Duration

	// Recovery sweep
	RecoveryInterval time.Duration
	PendingGrace     time.Duration

	// Transports
	AWSRegion       string
	EmailFrom       string
	InAppTopic      string
	PushBackend     string // "sns" or "webhook"
	PushWebhookURL  string
	PushTimeout     time.Duration
	PushTokenPrefix string
	ContactCacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string // "json" or "console"
}

var defaults = map[string]any{
	"SERVICE_NAME": "notification-service",

	"HTTP_PORT":        "8080",
	"READ_TIMEOUT":     5 * time.Second,
	"WRITE_TIMEOUT":    10 * time.Second,
	"SHUTDOWN_TIMEOUT": 30 * time.Second,

	"DB_MAX_CONNS":    25,
	"DB_MIN_CONNS":    5,
	"MIGRATIONS_PATH": "file://migrations",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"QUEUE_BACKEND":       "redis",
	"QUEUE_PREFIX":        "notifications:queue",
	"QUEUE_POLL_INTERVAL": 250 * time.Millisecond,
	"QUEUE_LEASE_TIMEOUT": 2 * time.Minute,

	"WORKERS":                10,
	"RATE_LIMIT_PER_CHANNEL": 100,

	"MAX_ATTEMPTS":    3,
	"BACKOFF_BASE":    2 * time.Second,
	"ATTEMPT_TIMEOUT": 30 * time.Second,

	"RECOVERY_INTERVAL": 30 * time.Second,
	"PENDING_GRACE":     10 * time.Minute,

	"AWS_REGION":        "us-east-1",
	"EMAIL_FROM":        "notifications@example.com",
	"INAPP_TOPIC":       "notifications",
	"PUSH_BACKEND":      "sns",
	"PUSH_WEBHOOK_URL":  "",
	"PUSH_TIMEOUT":      10 * time.Second,
	"PUSH_TOKEN_PREFIX": "push_token:",
	"CONTACT_CACHE_TTL": 5 * time.Minute,

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	cfg := &Config{
		ServiceName: v.GetString("SERVICE_NAME"),

		HTTPPort:        v.GetString("HTTP_PORT"),
		ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		DatabaseURL:    v.GetString("DATABASE_URL"),
		DBMaxConns:     v.GetInt32("DB_MAX_CONNS"),
		DBMinConns:     v.GetInt32("DB_MIN_CONNS"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		QueueBackend:      strings.ToLower(v.GetString("QUEUE_BACKEND")),
		QueuePrefix:       v.GetString("QUEUE_PREFIX"),
		QueuePollInterval: v.GetDuration("QUEUE_POLL_INTERVAL"),
		QueueLeaseTimeout: v.GetDuration("QUEUE_LEASE_TIMEOUT"),

		Workers:   v.GetInt("WORKERS"),
		RateLimit: v.GetInt("RATE_LIMIT_PER_CHANNEL"),

		MaxAttempts:    v.GetInt("MAX_ATTEMPTS"),
		BackoffBase:    v.GetDuration("BACKOFF_BASE"),
		AttemptTimeout: v.GetDuration("ATTEMPT_TIMEOUT"),

		RecoveryInterval: v.GetDuration("RECOVERY_INTERVAL"),
		PendingGrace:     v.GetDuration("PENDING_GRACE"),

		AWSRegion:       v.GetString("AWS_REGION"),
		EmailFrom:       v.GetString("EMAIL_FROM"),
		InAppTopic:      v.GetString("INAPP_TOPIC"),
		PushBackend:     strings.ToLower(v.GetString("PUSH_BACKEND")),
		PushWebhookURL:  v.GetString("PUSH_WEBHOOK_URL"),
		PushTimeout:     v.GetDuration("PUSH_TIMEOUT"),
		PushTokenPrefix: v.GetString("PUSH_TOKEN_PREFIX"),
		ContactCacheTTL: v.GetDuration("CONTACT_CACHE_TTL"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.QueueBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("QUEUE_BACKEND must be redis or memory, got %q", c.QueueBackend)
	}
	switch c.PushBackend {
	case "sns":
	case "webhook":
		if c.PushWebhookURL == "" {
			return fmt.Errorf("PUSH_WEBHOOK_URL is required when PUSH_BACKEND=webhook")
		}
	default:
		return fmt.Errorf("PUSH_BACKEND must be sns or webhook, got %q", c.PushBackend)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1")
	}
	// A lease that can lapse mid-attempt gets the job requeued and sent twice.
	if c.QueueBackend == "redis" {
		if c.AttemptTimeout <= 0 {
			return fmt.Errorf("ATTEMPT_TIMEOUT must be positive with the redis queue")
		}
		if c.QueueLeaseTimeout <= c.AttemptTimeout {
			return fmt.Errorf("QUEUE_LEASE_TIMEOUT (%s) must exceed ATTEMPT_TIMEOUT (%s)",
				c.QueueLeaseTimeout, c.AttemptTimeout)
		}
	}
	return nil
}
