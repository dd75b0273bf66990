// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "NilePay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultHouseOwnerID   = "house"
	defaultRetryAttempts  = 3
	defaultRetryDelay     = 100 * time.Millisecond
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
)

// Config captures application runtime configuration.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	// DatabaseURL and RedisURL are optional. Without a database the service
	// runs on the in-memory ledger; without Redis the idempotency layer is
	// disabled.
	DatabaseURL string
	RedisURL    string

	// KafkaBrokers is optional. Without brokers audit facts go to the log.
	KafkaBrokers []string
	KafkaTopic   string

	// HouseOwnerID owns the per-currency holding wallets.
	HouseOwnerID string

	RetryAttempts  int
	RetryDelay     time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaTopic:     getEnv("KAFKA_AUDIT_TOPIC", "audit-facts"),
		HouseOwnerID:   getEnv("HOUSE_OWNER_ID", defaultHouseOwnerID),
		RetryAttempts:  defaultRetryAttempts,
		RetryDelay:     defaultRetryDelay,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts < 1 {
			return Config{}, fmt.Errorf("invalid RETRY_ATTEMPTS: %q", v)
		}
		cfg.RetryAttempts = attempts
	}

	var err error
	if cfg.RetryDelay, err = durationEnv("RETRY_DELAY", cfg.RetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
