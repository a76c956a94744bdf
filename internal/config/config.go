// Package config reads the portal's settings from the environment, after
// loading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds the server settings
type Config struct {
	Port         int
	JudgeDir     string
	AccountsFile string
	WebDir       string

	SessionStore string
	RedisURL     string

	BroadcastInterval time.Duration
	TickTimeout       time.Duration

	MessagesFile string
	LogLevel     slog.Level
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnvAsInt("PORT", 3000),
		JudgeDir:          getEnv("JUDGE_DIR", "Judge"),
		AccountsFile:      getEnv("ACCOUNTS_FILE", "accounts.json"),
		WebDir:            getEnv("WEB_DIR", "web"),
		SessionStore:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		RedisURL:          getEnv("REDIS_URL", ""),
		BroadcastInterval: getEnvAsDuration("BROADCAST_INTERVAL", time.Second),
		MessagesFile:      getEnv("MESSAGES_FILE", ""),
	}
	cfg.TickTimeout = getEnvAsDuration("TICK_TIMEOUT", cfg.BroadcastInterval)

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.BroadcastInterval <= 0 {
		return fmt.Errorf("invalid BROADCAST_INTERVAL %s", c.BroadcastInterval)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
