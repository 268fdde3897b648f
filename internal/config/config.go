// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env                string  `mapstructure:"APP_ENV"`
	Port               string  `mapstructure:"PORT"`
	DBDriver           string  `mapstructure:"DB_DRIVER"`
	DBHost             string  `mapstructure:"DB_HOST"`
	DBPort             string  `mapstructure:"DB_PORT"`
	DBUser             string  `mapstructure:"DB_USER"`
	DBPassword         string  `mapstructure:"DB_PASSWORD"`
	DBName             string  `mapstructure:"DB_NAME"`
	DBSSLMode          string  `mapstructure:"DB_SSLMODE"`
	DBPath             string  `mapstructure:"DB_PATH"`
	DBMaxOpenConns     int     `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns     int     `mapstructure:"DB_MAX_IDLE_CONNS"`
	RedisURL           string  `mapstructure:"REDIS_URL"`
	BcryptCost         int     `mapstructure:"BCRYPT_COST"`
	AllowedOrigins     string  `mapstructure:"ALLOWED_ORIGINS"`
	LogLevel           string  `mapstructure:"LOG_LEVEL"`
	RateLimitPerMinute int     `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	OTELExporter       string  `mapstructure:"OTEL_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure       bool    `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	TraceSampleRatio   float64 `mapstructure:"OTEL_SAMPLE_RATIO"`
	ReadTimeoutSec     int     `mapstructure:"READ_TIMEOUT"`
	WriteTimeoutSec    int     `mapstructure:"WRITE_TIMEOUT"`
	IdleTimeoutSec     int     `mapstructure:"IDLE_TIMEOUT"`
	FeatureFlags       string  `mapstructure:"FEATURE_FLAGS"`
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsLocal reports whether the service runs on a developer machine or in tests.
func (c *Config) IsLocal() bool {
	switch c.Env {
	case "", "development", "dev", "test":
		return true
	}
	return false
}

// OTLPPlaintext reports whether spans go to the collector without TLS. Only
// local environments default to plain HTTP.
func (c *Config) OTLPPlaintext() bool {
	return c.OTLPInsecure || c.IsLocal()
}

// LoadConfig loads application configuration from .env, config.yml and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.OTELExporter = strings.ToLower(strings.TrimSpace(config.OTELExporter))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "happythoughts")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "happythoughts.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 20)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER", "stdout")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
	v.SetDefault("READ_TIMEOUT", 10)
	v.SetDefault("WRITE_TIMEOUT", 10)
	v.SetDefault("IDLE_TIMEOUT", 60)
	v.SetDefault("FEATURE_FLAGS", "realtime=on,thought_cache=on")
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" || c.DBUser == "" {
			return errors.New("DB_HOST, DB_NAME and DB_USER are required for postgres")
		}
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}

	if c.TracingEnabled && c.OTELExporter != "stdout" && c.OTELExporter != "otlp" {
		return fmt.Errorf("unsupported OTEL_EXPORTER %q (want stdout or otlp)", c.OTELExporter)
	}

	if c.IsProduction() {
		if c.TracingEnabled && c.OTELExporter == "otlp" && c.OTLPInsecure {
			return errors.New("OTEL_EXPORTER_OTLP_INSECURE is not allowed in production")
		}
		if c.AllowedOrigins == "*" {
			return errors.New("ALLOWED_ORIGINS must list explicit origins in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "postgres" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			slog.Warn("DB_SSLMODE is 'disable' in production; use SSL for database connections")
		}
	}

	return nil
}

// PostgresDSN builds the key/value connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	sslMode := c.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, sslMode,
	)
}
