package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/arvault/arvault/internal/currency"
	"github.com/arvault/arvault/internal/transfer"
)

const (
	defaultAppName        = "arVault"
	defaultAppEnv         = "development"
	defaultPort           = "3000"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultMetricsNS      = "arvault"
	defaultMigrationsPath = "migrations"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	Currencies       currency.Set
	SeedFile         string
	TransferMinDelay time.Duration
	TransferMaxDelay time.Duration
	MetricsNamespace string
	MigrationsPath   string
}

// Load reads an optional .env file, then the environment, and populates a
// Config instance.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		Currencies:       currency.Default,
		SeedFile:         os.Getenv("SEED_FILE"),
		TransferMinDelay: transfer.DefaultMinDelay,
		TransferMaxDelay: transfer.DefaultMaxDelay,
		MetricsNamespace: getEnv("METRICS_NAMESPACE", defaultMetricsNS),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", defaultMigrationsPath),
	}

	var err error
	if cfg.ShutdownPeriod, err = secondsOrDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.TransferMinDelay, err = duration("TRANSFER_MIN_DELAY", cfg.TransferMinDelay); err != nil {
		return Config{}, err
	}
	if cfg.TransferMaxDelay, err = duration("TRANSFER_MAX_DELAY", cfg.TransferMaxDelay); err != nil {
		return Config{}, err
	}
	if cfg.TransferMaxDelay < cfg.TransferMinDelay {
		return Config{}, fmt.Errorf("TRANSFER_MAX_DELAY (%s) is below TRANSFER_MIN_DELAY (%s)", cfg.TransferMaxDelay, cfg.TransferMinDelay)
	}

	if v := os.Getenv("SUPPORTED_CURRENCIES"); v != "" {
		set, err := currency.ParseSet(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SUPPORTED_CURRENCIES: %w", err)
		}
		cfg.Currencies = set
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the service may run on in-memory backends.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// secondsOrDuration reads KEY_SECONDS as an integer or KEY as a Go duration.
// The seconds form wins when both are set.
func secondsOrDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return duration(key, fallback)
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
