package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
	"golang.org/x/text/language"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	RabbitMQ  RabbitMQConfig  `envPrefix:"RABBITMQ_"`
	Payroll   PayrollConfig   `envPrefix:"PAYROLL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Name            string        `env:"NAME" envDefault:"timecard-payroll"`
	Version         string        `env:"VERSION" envDefault:"v1.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"timecard_payroll"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
	Migrate  bool   `env:"MIGRATE" envDefault:"true"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string        `env:"SECRET_KEY"`
	AccessExpiration time.Duration `env:"ACCESS_EXPIRATION_TIME" envDefault:"1h"`
}

// RedisConfig is optional; an empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	// HolidayChannel carries holiday cache invalidations between instances.
	HolidayChannel string `env:"HOLIDAY_CHANNEL" envDefault:"timecard:holidays:invalidate"`
}

// RabbitMQConfig is optional; an empty URL disables broker publishing.
type RabbitMQConfig struct {
	URL            string        `env:"URL"`
	Exchange       string        `env:"EXCHANGE" envDefault:"payroll.events"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"10s"`
}

type PayrollConfig struct {
	MaxBreaksPerShift int           `env:"MAX_BREAKS_PER_SHIFT" envDefault:"5"`
	LockBackend       string        `env:"LOCK_BACKEND" envDefault:"local"`
	LockTTL           time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	LiveTickInterval  time.Duration `env:"LIVE_TICK_INTERVAL" envDefault:"30s"`
	HolidayCacheTTL   time.Duration `env:"HOLIDAY_CACHE_TTL" envDefault:"1h"`
	CollationLocale   string        `env:"COLLATION_LOCALE" envDefault:"ja"`
}

type RateLimitConfig struct {
	ClockActions string `env:"CLOCK_ACTIONS" envDefault:"120-M"`
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, fmt.Errorf("invalid environment: %w", aggErr.Errors[0])
		}
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.MaxBreaksPerShift < 1 {
		return fmt.Errorf("PAYROLL_MAX_BREAKS_PER_SHIFT must be at least 1")
	}
	switch c.Payroll.LockBackend {
	case LockBackendLocal:
	case LockBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when PAYROLL_LOCK_BACKEND=redis")
		}
	default:
		return fmt.Errorf("PAYROLL_LOCK_BACKEND must be %q or %q", LockBackendLocal, LockBackendRedis)
	}
	if c.Payroll.LiveTickInterval <= 0 {
		return fmt.Errorf("PAYROLL_LIVE_TICK_INTERVAL must be positive")
	}
	if _, err := language.Parse(c.Payroll.CollationLocale); err != nil {
		return fmt.Errorf("PAYROLL_COLLATION_LOCALE: %w", err)
	}
	if _, err := limiter.NewRateFromFormatted(c.RateLimit.ClockActions); err != nil {
		return fmt.Errorf("RATE_LIMIT_CLOCK_ACTIONS: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Locale is the collation locale for employee ordering.
func (c *Config) Locale() language.Tag {
	return language.Make(c.Payroll.CollationLocale)
}

func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
