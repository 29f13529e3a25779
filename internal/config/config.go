// Package config loads the server configuration from the environment,
// after merging an optional .env file.
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

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ProviderLocal  = "local"
	ProviderGoTrue = "gotrue"
)

type GoTrue struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
}

type Config struct {
	Port int

	DBDriver    string
	DBPath      string
	DatabaseURL string

	IdentityProvider string
	JWTSecret        string
	TokenTTL         time.Duration
	GoTrue           GoTrue

	LogLevel slog.Level
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load merges the given .env files (".env" when none are named) into the
// environment and reads the configuration. Variables already set in the
// environment win over the files, and a missing file is not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the configuration from the environment only.
func FromEnv() *Config {
	return &Config{
		Port:             getEnvAsInt("PORT", 4000),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:           getEnv("DB_PATH", "data/blogpost.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		IdentityProvider: strings.ToLower(getEnv("IDENTITY_PROVIDER", ProviderLocal)),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenTTL:         getEnvAsDuration("TOKEN_TTL", time.Hour),
		GoTrue: GoTrue{
			URL:            getEnv("SUPABASE_AUTH_URL", ""),
			AnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		},
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required when DB_DRIVER=sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver))
	}

	switch c.IdentityProvider {
	case ProviderLocal:
		if len(c.JWTSecret) < 16 {
			errs = append(errs, errors.New("JWT_SECRET of at least 16 characters is required when IDENTITY_PROVIDER=local"))
		}
	case ProviderGoTrue:
		if c.GoTrue.URL == "" {
			errs = append(errs, errors.New("SUPABASE_AUTH_URL is required when IDENTITY_PROVIDER=gotrue"))
		}
		if c.GoTrue.AnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_ANON_KEY is required when IDENTITY_PROVIDER=gotrue"))
		}
		if c.GoTrue.ServiceRoleKey == "" {
			errs = append(errs, errors.New("SUPABASE_SERVICE_ROLE_KEY is required when IDENTITY_PROVIDER=gotrue"))
		}
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_PROVIDER must be %q or %q, got %q", ProviderLocal, ProviderGoTrue, c.IdentityProvider))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
