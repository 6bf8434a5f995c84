package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment string `validate:"oneof=development staging production"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	Database DatabaseConfig
	Server   ServerConfig
	Progress ProgressConfig
	Telegram TelegramConfig
}

// DatabaseConfig selects the record store backend
type DatabaseConfig struct {
	Type       string `validate:"oneof=sqlite postgres"`
	URL        string `validate:"required_if=Type postgres"`
	SQLitePath string `validate:"required_if=Type sqlite"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `validate:"required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// ProgressConfig tunes the streak and badge engines
type ProgressConfig struct {
	// Timezone decides where a calendar day starts and ends.
	Timezone      string        `validate:"required"`
	SweepInterval time.Duration `validate:"gte=1m"`
	ReminderHour  int           `validate:"gte=0,lte=23"`
	RecentLimit   int           `validate:"gte=1,lte=100"`
	// StreakProbe enables the read-only diagnostic streak fetch before advancing.
	StreakProbe bool
}

// TelegramConfig is optional; an empty token disables the bot
type TelegramConfig struct {
	Token  string
	ChatID int64 `validate:"required_with=Token"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			Type:       "sqlite",
			SQLitePath: "data/kidprogress.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Progress: ProgressConfig{
			Timezone:      "UTC",
			SweepInterval: 15 * time.Minute,
			ReminderHour:  17,
			RecentLimit:   10,
		},
	}
}

// Load reads .env (if present) and the process environment on top of the defaults
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))

	cfg.Database.Type = strings.ToLower(getEnv("DB_TYPE", cfg.Database.Type))
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)

	cfg.Server.Addr = getEnv("HTTP_ADDR", cfg.Server.Addr)

	var err error
	if cfg.Server.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout); err != nil {
		return nil, err
	}

	cfg.Progress.Timezone = getEnv("TIMEZONE", cfg.Progress.Timezone)
	if cfg.Progress.SweepInterval, err = getDuration("BADGE_SWEEP_INTERVAL", cfg.Progress.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.Progress.ReminderHour, err = getInt("STREAK_REMINDER_HOUR", cfg.Progress.ReminderHour); err != nil {
		return nil, err
	}
	if cfg.Progress.RecentLimit, err = getInt("DASHBOARD_RECENT_LIMIT", cfg.Progress.RecentLimit); err != nil {
		return nil, err
	}
	if cfg.Progress.StreakProbe, err = getBool("STREAK_PROBE", cfg.Progress.StreakProbe); err != nil {
		return nil, err
	}

	cfg.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", "")
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.Telegram.ChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Progress.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: unknown timezone %q: %w", c.Progress.Timezone, err)
	}
	return nil
}

// Location returns the time zone used for calendar-day arithmetic
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Progress.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
